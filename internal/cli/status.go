package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/state"
)

// statusCmd shows the primary connection.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the primary wallet connection",
	Long: `Silently re-check the primary wallet and show the connection state.

The wallet is only asked for accounts it has already authorized; no approval
prompt is raised. The remembered address from the last connection is shown
for reference.

Example:
  walletlink status
  walletlink status -o json`,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusView struct {
	state.ConnectionState
	LastAccount string `json:"last_account,omitempty"`
}

func (v statusView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Status:  %s\n", v.Status)
	if v.Account != "" {
		fmt.Fprintf(&sb, "Account: %s\n", v.Account)
	}
	if v.ChainID != "" {
		fmt.Fprintf(&sb, "Chain:   %s\n", v.ChainID)
	}
	if v.LastAccount != "" && v.LastAccount != v.Account {
		fmt.Fprintf(&sb, "Last connected: %s\n", v.LastAccount)
	}
	return sb.String()
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	sess, err := cc.Session()
	if err != nil {
		return err
	}

	sess.Resync(cmd.Context())

	view := statusView{ConnectionState: sess.Store().Snapshot()}
	view.LastAccount, _ = sess.PersistedAddress()
	return cc.printer().Print(view)
}
