// Package cli implements the walletlink command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/config"
	"github.com/arcano/walletlink/internal/metrics"
	"github.com/arcano/walletlink/internal/output"
	"github.com/arcano/walletlink/internal/version"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// BuildInfo is stamped into the binary by main.
type BuildInfo = version.Info

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	cmdCtx    *CommandContext
	buildInfo BuildInfo

	// Replaced in tests.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "walletlink",
	Short: "Connect to GalaChain and MetaMask-style wallets",
	Long: `walletlink discovers wallet providers, negotiates a connection, tracks the
active account and chain, and flags ETH-GALA balances that can be bridged to
GalaChain.

Providers are JSON-RPC endpoints bound to the global names a browser wallet
would inject (gala, ethereum, ...). Configure them in ~/.walletlink/config.yaml.

Example:
  walletlink detect
  walletlink connect
  walletlink connect --type secondary
  walletlink advisory check`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(); err != nil {
			return err
		}
		SetCmdContext(cmd, cmdCtx)
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	buildInfo = version.Resolve(info)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		formatErr(err)
		cleanup()
	}
	return err
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return linkerr.ExitCode(err)
}

func formatErr(err error) {
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(stderr, err, format)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		cfg = config.Defaults()
		cfg.Home = home
		cfg.Logging.File = filepath.Join(home, "walletlink.log")
	}

	if err := config.ApplyEnvironment(cfg); err != nil {
		return linkerr.WithCause(linkerr.ErrConfigInvalid, err)
	}

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	if cfg.IsVerbose() && cfg.GetLoggingFile() == "" {
		logger = config.NewWriterLogger(config.LogLevelDebug, stderr)
	} else if logger, err = config.NewLogger(config.ParseLogLevel(cfg.GetLoggingLevel()), cfg.GetLoggingFile()); err != nil {
		logger = config.NullLogger()
	}

	detected := output.DetectFormat(stdout, output.ParseFormat(cfg.GetOutputFormat()))
	formatter = output.NewFormatter(detected, stdout)

	cmdCtx = NewCommandContext(cfg, logger, formatter)
	return nil
}

// cleanup releases resources. It is safe to call more than once.
func cleanup() {
	if cmdCtx != nil {
		cmdCtx.Close()
	}
	if logger != nil {
		if snap := metrics.Global.Snapshot(); snap.RPCCalls > 0 || len(snap.Connects) > 0 {
			logger.Debugw("session metrics",
				"rpc_calls", snap.RPCCalls,
				"rpc_errors", snap.RPCErrors,
				"rpc_latency_avg_ms", snap.RPCLatencyMs,
				"connects", snap.Connects,
			)
		}
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

// Context returns the global command context.
func Context() *CommandContext {
	return cmdCtx
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "walletlink data directory (default: ~/.walletlink)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
