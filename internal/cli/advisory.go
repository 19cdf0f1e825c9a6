package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/advisory"
)

// advisoryCmd groups the bridge-balance advisory commands.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var advisoryCmd = &cobra.Command{
	Use:   "advisory",
	Short: "Check for ETH-GALA that can be bridged to GalaChain",
	Long: `Look at the secondary wallet's already-authorized account for an ETH-GALA
balance and show a prompt to move it to GalaChain.

The secondary wallet is never asked for approval here. Run
'walletlink connect --type secondary' first if it has not authorized an account.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var advisoryCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the secondary wallet's token balance",
	RunE:  runAdvisoryCheck,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var advisoryDismissCmd = &cobra.Command{
	Use:   "dismiss",
	Short: "Hide the prompt until the balance changes",
	RunE:  runAdvisoryDismiss,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var advisoryBridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Print the bridge URL and hide the prompt",
	RunE:  runAdvisoryBridge,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(advisoryCmd)
	advisoryCmd.AddCommand(advisoryCheckCmd)
	advisoryCmd.AddCommand(advisoryDismissCmd)
	advisoryCmd.AddCommand(advisoryBridgeCmd)
}

type advisoryView struct {
	Installed  bool   `json:"secondary_installed"`
	Address    string `json:"secondary_address,omitempty"`
	Balance    string `json:"balance"`
	RawBalance string `json:"raw_balance,omitempty"`
	Symbol     string `json:"symbol"`
	Visible    bool   `json:"visible"`
	BridgeURL  string `json:"bridge_url,omitempty"`
}

func (v advisoryView) Text() string {
	if !v.Installed {
		return "No secondary wallet detected"
	}
	if v.Address == "" {
		return "Secondary wallet has no authorized account"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Secondary: %s\n", v.Address)
	fmt.Fprintf(&sb, "Balance:   %s %s\n", v.Balance, v.Symbol)
	switch {
	case v.BridgeURL != "":
		fmt.Fprintf(&sb, "Bridge:    %s\n", v.BridgeURL)
	case v.Visible:
		sb.WriteString("\nThis balance can be bridged to GalaChain. Run 'walletlink advisory bridge'.\n")
	}
	return sb.String()
}

func newAdvisoryView(cc *CommandContext, m *advisory.Monitor) (advisoryView, error) {
	detector, err := cc.Detector()
	if err != nil {
		return advisoryView{}, err
	}
	st := m.State()
	view := advisoryView{
		Installed: detector.DetectSecondary() != nil,
		Address:   st.SecondaryAddress,
		Balance:   m.DisplayBalance(),
		Symbol:    m.TokenSymbol(),
		Visible:   st.Visible,
	}
	if st.TokenBalance != nil {
		view.RawBalance = st.TokenBalance.String()
	}
	return view, nil
}

// checkedMonitor returns the monitor after a fresh balance check.
func checkedMonitor(cmd *cobra.Command) (*CommandContext, *advisory.Monitor, error) {
	cc := commandContext(cmd)
	m, err := cc.Advisory()
	if err != nil {
		return nil, nil, err
	}
	m.CheckSecondaryBalance(cmd.Context())
	return cc, m, nil
}

func runAdvisoryCheck(cmd *cobra.Command, _ []string) error {
	cc, m, err := checkedMonitor(cmd)
	if err != nil {
		return err
	}
	view, err := newAdvisoryView(cc, m)
	if err != nil {
		return err
	}
	return cc.printer().Print(view)
}

func runAdvisoryDismiss(cmd *cobra.Command, _ []string) error {
	cc, m, err := checkedMonitor(cmd)
	if err != nil {
		return err
	}
	m.Dismiss()
	if err := cc.SaveDismissed(m); err != nil {
		return err
	}
	view, err := newAdvisoryView(cc, m)
	if err != nil {
		return err
	}
	return cc.printer().Print(view)
}

func runAdvisoryBridge(cmd *cobra.Command, _ []string) error {
	cc, m, err := checkedMonitor(cmd)
	if err != nil {
		return err
	}
	url := m.RedirectToBridge()
	view, err := newAdvisoryView(cc, m)
	if err != nil {
		return err
	}
	view.BridgeURL = url
	return cc.printer().Print(view)
}
