package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arcano/walletlink/internal/config"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and initialize walletlink configuration.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Create a default configuration file at <home>/config.yaml.

An existing file is kept unless --force is given.

Example:
  walletlink config init
  walletlink config init --force`,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after environment overrides are applied.
The storage passphrase is never shown.`,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	home := cc.config().Home
	path := config.Path(home)

	if _, err := os.Stat(path); err == nil && !configForce {
		return linkerr.WithSuggestion(
			linkerr.WithDetails(linkerr.ErrConfigInvalid, map[string]string{"path": path, "reason": "already exists"}),
			"Use --force to overwrite",
		)
	}

	defaults := config.Defaults()
	defaults.Home = home
	defaults.Logging.File = filepath.Join(home, "walletlink.log")
	if err := config.Save(defaults, path); err != nil {
		return linkerr.Wrap(err, "writing config file")
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Configuration initialized at %s\n\n", path)
	_, _ = fmt.Fprintln(w, "Add your endpoints under 'providers', for example:")
	_, _ = fmt.Fprintln(w, "  - name: gala")
	_, _ = fmt.Fprintln(w, "    rpc: http://127.0.0.1:8545")
	_, _ = fmt.Fprintln(w, "  - name: ethereum")
	_, _ = fmt.Fprintln(w, "    rpc: https://ethereum-rpc.publicnode.com")
	_, _ = fmt.Fprintln(w, "    flags: {isMetaMask: true}")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	p := cc.printer()
	if p.IsJSON() {
		return p.Print(cc.config())
	}
	data, err := yaml.Marshal(cc.config())
	if err != nil {
		return err
	}
	return p.Print(string(data))
}
