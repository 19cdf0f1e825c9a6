package config

import "time"

// Well-known values for the GalaChain primary wallet and the ETH-GALA advisory.
const (
	DefaultPrimaryKey  = "gala"
	DefaultGenericKey  = "ethereum"
	DefaultLegacyKey   = "web3"
	DefaultRegistryKey = "providers"
	DefaultChainName   = "gala"

	// DefaultStorageKey is the client-local key holding the last primary address.
	DefaultStorageKey = "gala_wallet_address"

	// DefaultTokenContract is the ETH-GALA ERC-20 contract on Ethereum mainnet.
	DefaultTokenContract = "0xd1d2Eb1B1e90B638588728b4130137D262C87cae"

	// DefaultBridgeURL is where users migrate ETH-GALA to GalaChain.
	DefaultBridgeURL = "https://connect.gala.com/"

	// DefaultInjectionDelay gives slow extensions time to inject before connecting.
	DefaultInjectionDelay = 300 * time.Millisecond
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.walletlink",
		Detector: DetectorConfig{
			PrimaryKey:  DefaultPrimaryKey,
			GenericKey:  DefaultGenericKey,
			LegacyKey:   DefaultLegacyKey,
			RegistryKey: DefaultRegistryKey,
			ChainName:   DefaultChainName,
			Heuristic:   true,
		},
		Session: SessionConfig{
			StorageKey:     DefaultStorageKey,
			ConnectTimeout: 0, // no timeout; wallet prompts wait for the user
			InjectionDelay: DefaultInjectionDelay,
		},
		Advisory: AdvisoryConfig{
			Enabled:       true,
			TokenContract: DefaultTokenContract,
			TokenSymbol:   "ETH-GALA",
			BridgeURL:     DefaultBridgeURL,
		},
		Providers: []ProviderConfig{},
		Storage: StorageConfig{
			File: "state.json",
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.walletlink/walletlink.log",
		},
	}
}
