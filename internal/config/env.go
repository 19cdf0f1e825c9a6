package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every walletlink environment variable.
const EnvPrefix = "WALLETLINK_"

// Environment variable names.
const (
	EnvHome              = EnvPrefix + "HOME"
	EnvLogLevel          = EnvPrefix + "LOG_LEVEL"
	EnvOutputFormat      = EnvPrefix + "OUTPUT_FORMAT"
	EnvVerbose           = EnvPrefix + "VERBOSE"
	EnvConnectTimeout    = EnvPrefix + "CONNECT_TIMEOUT"
	EnvTokenContract     = EnvPrefix + "TOKEN_CONTRACT"
	EnvStoragePassphrase = EnvPrefix + "STORAGE_PASSPHRASE" // #nosec G101 -- false positive, this is a const name not a credential
)

// envOverrides mirrors the subset of Config that may be set from the environment.
type envOverrides struct {
	Home              string         `env:"HOME"`
	LogLevel          string         `env:"LOG_LEVEL"`
	OutputFormat      string         `env:"OUTPUT_FORMAT"`
	Verbose           string         `env:"VERBOSE"`
	ConnectTimeout    *time.Duration `env:"CONNECT_TIMEOUT"`
	TokenContract     string         `env:"TOKEN_CONTRACT"`
	StoragePassphrase string         `env:"STORAGE_PASSPHRASE"`
}

// ApplyEnvironment applies environment variable overrides to the configuration.
func ApplyEnvironment(cfg *Config) error {
	return applyEnvironment(cfg, env.Options{Prefix: EnvPrefix})
}

// ApplyEnvironmentFrom applies overrides from an explicit variable map.
func ApplyEnvironmentFrom(cfg *Config, environ map[string]string) error {
	return applyEnvironment(cfg, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func applyEnvironment(cfg *Config, opts env.Options) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return err
	}

	if o.Home != "" {
		cfg.Home = o.Home
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(o.LogLevel)
	}
	if o.OutputFormat != "" {
		cfg.Output.DefaultFormat = strings.ToLower(o.OutputFormat)
	}
	if o.Verbose != "" {
		cfg.Output.Verbose = parseBool(o.Verbose)
	}
	if o.ConnectTimeout != nil && *o.ConnectTimeout >= 0 {
		cfg.Session.ConnectTimeout = *o.ConnectTimeout
	}
	if o.TokenContract != "" {
		cfg.Advisory.TokenContract = strings.TrimSpace(o.TokenContract)
	}
	if o.StoragePassphrase != "" {
		cfg.Storage.Passphrase = o.StoragePassphrase
	}

	return nil
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
