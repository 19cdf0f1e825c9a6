package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/advisory"
	"github.com/arcano/walletlink/internal/metrics"
	"github.com/arcano/walletlink/internal/output"
	"github.com/arcano/walletlink/internal/state"
)

// watchCmd follows the primary connection until interrupted.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow account and chain changes",
	Long: `Poll every configured endpoint and print the primary connection state each
time it changes. Account and chain changes reported by the endpoints are
applied exactly as wallet events would be; an empty account list disconnects.

The bridge advisory is re-checked whenever the secondary wallet's account
changes.

Example:
  walletlink watch
  walletlink watch --connect --interval 2s
  walletlink watch -o json --for 1m`,
	RunE: runWatch,
}

// watchIntervalDefault suits public endpoints without tripping rate limits.
const watchIntervalDefault = 4 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	watchInterval time.Duration
	watchFor      time.Duration
	watchConnect  bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watchIntervalDefault, "poll interval")
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "stop after this long (0 runs until interrupted)")
	watchCmd.Flags().BoolVar(&watchConnect, "connect", false, "prompt the primary wallet before watching")
}

// statePrinter serializes writes from event handlers running on poll goroutines.
type statePrinter struct {
	mu sync.Mutex
	f  *output.Formatter
}

type stateLine struct {
	state.ConnectionState
}

func (l stateLine) Text() string {
	s := string(l.Status)
	if l.Account != "" {
		s += " account=" + l.Account
	}
	if l.ChainID != "" {
		s += " chain=" + l.ChainID
	}
	if l.LastError != "" {
		s += " error=" + string(l.LastError)
	}
	return s
}

func (p *statePrinter) print(v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.f.Print(v)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if watchInterval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", watchInterval)
	}

	cc := commandContext(cmd)
	sess, err := cc.Session()
	if err != nil {
		return err
	}
	_, endpoints, err := cc.Environment()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if watchFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, watchFor)
		defer cancel()
	}

	printer := &statePrinter{f: cc.printer()}
	store := sess.Store()
	printer.print(stateLine{store.Snapshot()})
	unsubscribe := store.Subscribe(func(st state.ConnectionState) {
		printer.print(stateLine{st})
	})
	defer unsubscribe()

	if watchConnect {
		_, err := sess.ConnectPrimary(ctx)
		metrics.Global.RecordConnect(err)
		if err != nil {
			return err
		}
	} else {
		sess.Resync(ctx)
	}

	var monitor *advisory.Monitor
	if cc.config().Advisory.Enabled {
		if m, err := cc.Advisory(); err == nil && m.Start(ctx) {
			monitor = m
		}
	}

	var wg sync.WaitGroup
	for _, p := range endpoints {
		wg.Go(func() {
			p.Watch(ctx, watchInterval, func(err error) {
				cc.logger().Debug("watch: polling %s failed: %v", p.Name(), err)
			})
		})
	}

	if monitor != nil {
		watchAdvisory(ctx, monitor, printer)
	}
	<-ctx.Done()
	wg.Wait()
	return nil
}

// watchAdvisory re-checks the secondary balance every interval and prints a
// notice each time the advisory becomes visible.
func watchAdvisory(ctx context.Context, m *advisory.Monitor, printer *statePrinter) {
	shown := false
	report := func() {
		st := m.State()
		if st.Visible && !shown {
			printer.mu.Lock()
			output.Info(stderr, "%s holds %s %s that can be bridged to GalaChain",
				advisory.FormatAddress(st.SecondaryAddress), m.DisplayBalance(), m.TokenSymbol())
			printer.mu.Unlock()
		}
		shown = st.Visible
	}
	report()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckSecondaryBalance(ctx)
			report()
		}
	}
}
