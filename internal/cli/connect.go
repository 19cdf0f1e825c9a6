package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/advisory"
	"github.com/arcano/walletlink/internal/metrics"
	"github.com/arcano/walletlink/internal/output"
	"github.com/arcano/walletlink/internal/provider"
)

// connectCmd connects a wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet",
	Long: `Ask a wallet for an account. Without --type the primary wallet is
connected and the account is remembered for the next run.

--type secondary asks the MetaMask-style wallet instead. The secondary
connection is only used to look for a bridgeable balance and does not change
the primary connection.

Example:
  walletlink connect
  walletlink connect --type secondary`,
	RunE: runConnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var connectType string

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVarP(&connectType, "type", "t", "", "wallet to connect: primary or secondary")
}

type connectView struct {
	Wallet  provider.WalletType `json:"wallet"`
	Account string              `json:"account"`
	ChainID string              `json:"chain_id,omitempty"`
}

func (v connectView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Connected %s wallet\n", v.Wallet)
	fmt.Fprintf(&sb, "  Account: %s\n", v.Account)
	if v.ChainID != "" {
		fmt.Fprintf(&sb, "  Chain:   %s\n", v.ChainID)
	}
	return sb.String()
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	sess, err := cc.Session()
	if err != nil {
		return err
	}

	wallet := provider.WalletPrimary
	if connectType != "" {
		if wallet, err = provider.ParseWalletType(connectType); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	result, err := sess.ConnectByType(ctx, wallet)
	metrics.Global.RecordConnect(err)
	if err != nil {
		return err
	}

	if err := cc.printer().Print(connectView{Wallet: wallet, Account: result.Account, ChainID: result.ChainID}); err != nil {
		return err
	}
	if wallet == provider.WalletPrimary {
		adviseBridge(ctx, cc)
	}
	return nil
}

// adviseBridge prints a notice when the secondary wallet holds a bridgeable
// balance the user has not dismissed.
func adviseBridge(ctx context.Context, cc *CommandContext) {
	if !cc.config().Advisory.Enabled {
		return
	}
	m, err := cc.Advisory()
	if err != nil {
		cc.logger().Debug("advisory unavailable: %v", err)
		return
	}
	m.CheckSecondaryBalance(ctx)
	if st := m.State(); st.Visible {
		output.Info(stderr, "%s holds %s %s that can be bridged to GalaChain. Run 'walletlink advisory bridge'.",
			advisory.FormatAddress(st.SecondaryAddress), m.DisplayBalance(), m.TokenSymbol())
	}
}
