// Package config provides configuration management for walletlink.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Version   int              `yaml:"version" json:"version"`
	Home      string           `yaml:"home" json:"home"`
	Detector  DetectorConfig   `yaml:"detector" json:"detector"`
	Session   SessionConfig    `yaml:"session" json:"session"`
	Advisory  AdvisoryConfig   `yaml:"advisory" json:"advisory"`
	Providers []ProviderConfig `yaml:"providers" json:"providers"`
	Storage   StorageConfig    `yaml:"storage" json:"storage"`
	Output    OutputConfig     `yaml:"output" json:"output"`
	Logging   LoggingConfig    `yaml:"logging" json:"logging"`
}

// DetectorConfig names the well-known provider locations, in search order.
type DetectorConfig struct {
	PrimaryKey  string `yaml:"primary_key" json:"primary_key"`
	GenericKey  string `yaml:"generic_key" json:"generic_key"`
	LegacyKey   string `yaml:"legacy_key" json:"legacy_key"`
	RegistryKey string `yaml:"registry_key" json:"registry_key"`
	ChainName   string `yaml:"chain_name" json:"chain_name"`
	Heuristic   bool   `yaml:"heuristic" json:"heuristic"`
}

// SessionConfig defines connect behavior.
type SessionConfig struct {
	StorageKey     string        `yaml:"storage_key" json:"storage_key"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	InjectionDelay time.Duration `yaml:"injection_delay" json:"injection_delay"`
}

// AdvisoryConfig defines the bridge-balance advisory.
type AdvisoryConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	TokenContract string `yaml:"token_contract" json:"token_contract"`
	TokenSymbol   string `yaml:"token_symbol" json:"token_symbol"`
	BridgeURL     string `yaml:"bridge_url" json:"bridge_url"`
}

// ProviderConfig binds a JSON-RPC endpoint to a global name for the CLI environment.
type ProviderConfig struct {
	Name      string          `yaml:"name" json:"name"`
	RPC       string          `yaml:"rpc" json:"rpc"`
	Flags     map[string]bool `yaml:"flags,omitempty" json:"flags,omitempty"`
	RateLimit float64         `yaml:"rate_limit" json:"rate_limit"`
	Burst     int             `yaml:"burst" json:"burst"`
}

// StorageConfig defines where the persisted address lives.
type StorageConfig struct {
	File       string `yaml:"file" json:"file"`
	Passphrase string `yaml:"-" json:"-"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	Verbose       bool   `yaml:"verbose" json:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// StatePath returns the persisted-state file path, resolved against home.
func (c *Config) StatePath() string {
	home, err := ExpandHome(c.Home)
	if err != nil {
		home = c.Home
	}

	file := c.Storage.File
	if file == "" {
		file = "state.json"
	}
	if strings.HasPrefix(file, "~/") {
		if expanded, expandErr := ExpandHome(file); expandErr == nil {
			return expanded
		}
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(home, file)
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default walletlink home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletlink"
	}
	return filepath.Join(home, ".walletlink")
}
