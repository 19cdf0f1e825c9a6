package cli

import (
	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/output"
)

// disconnectCmd forgets the primary connection.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect the primary wallet",
	Long: `Release the primary wallet and forget the remembered address.

The wallet itself keeps its authorization; revoke it from the wallet if needed.`,
	RunE: runDisconnect,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(disconnectCmd)
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	sess, err := cc.Session()
	if err != nil {
		return err
	}
	sess.Disconnect()
	return output.FormatSuccess(cc.printer().Writer(), "Disconnected", cc.printer().Format())
}
