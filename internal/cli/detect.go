package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/output"
	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/provider/rpc"
)

// detectCmd reports which provider each wallet slot would use.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show discovered wallet providers",
	Long: `Run provider discovery against the configured environment and report the
provider the primary connection would use, whether a secondary wallet is
present, and the capability of every configured endpoint.

Discovery never contacts the endpoints.

Example:
  walletlink detect
  walletlink detect -o json`,
	RunE: runDetect,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(detectCmd)
}

type endpointView struct {
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Capability string   `json:"capability"`
	Flags      []string `json:"flags,omitempty"`
}

type detectView struct {
	Primary            string         `json:"primary,omitempty"`
	PrimaryInstalled   bool           `json:"primary_installed"`
	Secondary          string         `json:"secondary,omitempty"`
	SecondaryInstalled bool           `json:"secondary_installed"`
	Endpoints          []endpointView `json:"endpoints"`
}

func (v detectView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Primary:   %s\n", orNone(v.Primary, "not installed"))
	fmt.Fprintf(&sb, "Secondary: %s\n", orNone(v.Secondary, "not installed"))
	if len(v.Endpoints) == 0 {
		sb.WriteString("\nNo providers configured.\n")
		return sb.String()
	}
	sb.WriteString("\n")
	tbl := output.NewTable("NAME", "CAPABILITY", "FLAGS", "URL")
	for _, e := range v.Endpoints {
		tbl.AddRow(e.Name, e.Capability, strings.Join(e.Flags, ","), e.URL)
	}
	sb.WriteString(tbl.String())
	return sb.String()
}

func runDetect(cmd *cobra.Command, _ []string) error {
	cc := commandContext(cmd)
	detector, err := cc.Detector()
	if err != nil {
		return err
	}
	_, endpoints, err := cc.Environment()
	if err != nil {
		return err
	}

	primary := detector.Detect()
	secondary := detector.DetectSecondary()
	view := detectView{
		Primary:            providerName(primary),
		PrimaryInstalled:   primary != nil,
		Secondary:          providerName(secondary),
		SecondaryInstalled: secondary != nil,
		Endpoints:          make([]endpointView, 0, len(endpoints)),
	}
	for i, p := range endpoints {
		view.Endpoints = append(view.Endpoints, endpointView{
			Name:       p.Name(),
			URL:        p.URL(),
			Capability: provider.Probe(p).String(),
			Flags:      enabledFlags(cc.config().Providers[i].Flags),
		})
	}
	return cc.printer().Print(view)
}

// providerName names a detected provider for display.
func providerName(p provider.Provider) string {
	switch v := p.(type) {
	case nil:
		return ""
	case *rpc.Provider:
		return v.Name()
	default:
		return fmt.Sprintf("%T", p)
	}
}

func enabledFlags(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for k, on := range flags {
		if on {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func orNone(s, none string) string {
	if s == "" {
		return none
	}
	return s
}
