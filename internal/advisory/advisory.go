// Package advisory watches the secondary wallet for a bridgeable token
// balance and raises a dismissible prompt. It only ever reads from the
// secondary provider and has no access to the primary connection state.
package advisory

import (
	"context"
	"math/big"
	"sync"

	"github.com/arcano/walletlink/internal/erc20"
	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/walletclient"
)

// Defaults for the ETH-GALA bridge prompt.
const (
	DefaultTokenContract = "0xd1d2Eb1B1e90B638588728b4130137D262C87cae"
	DefaultTokenSymbol   = "ETH-GALA"
	DefaultBridgeURL     = "https://connect.gala.com/"
)

// State is the advisory snapshot. TokenBalance is nil when unknown or zero.
type State struct {
	SecondaryAddress string   `json:"secondary_address,omitempty"`
	TokenBalance     *big.Int `json:"token_balance,omitempty"`
	Visible          bool     `json:"visible"`
}

// SecondaryDetector finds the secondary wallet's provider.
type SecondaryDetector interface {
	DetectSecondary() provider.Provider
}

// BalanceFunc queries an ERC-20 balance. erc20.BalanceOf is the default.
type BalanceFunc func(ctx context.Context, p provider.Provider, token, owner string) (*big.Int, error)

// Logger is the subset of config.Logger the monitor needs.
type Logger interface {
	Debug(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// Options configures the monitor.
type Options struct {
	TokenContract string
	TokenSymbol   string
	BridgeURL     string
}

// Monitor owns the AdvisoryState.
type Monitor struct {
	detector  SecondaryDetector
	balanceOf BalanceFunc
	logger    Logger
	opts      Options

	mu        sync.Mutex
	state     State
	dismissed *big.Int // balance hidden by the last Dismiss
	unwatch   func()
}

// NewMonitor creates a monitor. Empty options fall back to the ETH-GALA defaults.
func NewMonitor(detector SecondaryDetector, balanceOf BalanceFunc, logger Logger, opts Options) *Monitor {
	if balanceOf == nil {
		balanceOf = erc20.BalanceOf
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if opts.TokenContract == "" {
		opts.TokenContract = DefaultTokenContract
	}
	if opts.TokenSymbol == "" {
		opts.TokenSymbol = DefaultTokenSymbol
	}
	if opts.BridgeURL == "" {
		opts.BridgeURL = DefaultBridgeURL
	}
	return &Monitor{detector: detector, balanceOf: balanceOf, logger: logger, opts: opts}
}

// Start checks the balance and watches for account changes when a secondary
// wallet is present. It reports whether one was found.
func (m *Monitor) Start(ctx context.Context) bool {
	if !m.Watch(ctx) {
		return false
	}
	m.CheckSecondaryBalance(ctx)
	return true
}

// CheckSecondaryBalance refreshes the advisory from the secondary wallet's
// already-authorized account. Failures are logged and swallowed.
func (m *Monitor) CheckSecondaryBalance(ctx context.Context) {
	p := m.detector.DetectSecondary()
	if p == nil {
		return
	}

	accounts, err := provider.Accounts(ctx, p)
	if err != nil {
		m.logger.Debug("advisory: account query failed: %v", err)
		return
	}
	accounts = walletclient.NormalizeAccounts(accounts)
	if len(accounts) == 0 {
		return
	}
	address := accounts[0]

	m.mu.Lock()
	m.state.SecondaryAddress = address
	m.mu.Unlock()

	balance, err := m.balanceOf(ctx, p, m.opts.TokenContract, address)
	if err != nil {
		m.logger.Debug("advisory: balance query for %s failed: %v", address, err)
		return
	}
	m.apply(address, balance)
}

// Dismiss hides the prompt but keeps the balance. The prompt returns only
// when a later check sees a different balance.
func (m *Monitor) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Visible = false
	if m.state.TokenBalance != nil {
		m.dismissed = new(big.Int).Set(m.state.TokenBalance)
	}
}

// Dismissed returns the balance hidden by the last Dismiss, or nil.
func (m *Monitor) Dismissed() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dismissed == nil {
		return nil
	}
	return new(big.Int).Set(m.dismissed)
}

// RestoreDismissed seeds the dismissed balance, typically from a previous run.
// A nil or non-positive balance clears it.
func (m *Monitor) RestoreDismissed(balance *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if balance == nil || balance.Sign() <= 0 {
		m.dismissed = nil
		return
	}
	m.dismissed = new(big.Int).Set(balance)
}

// RedirectToBridge hides the prompt and returns the bridge URL to open.
func (m *Monitor) RedirectToBridge() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Visible = false
	return m.opts.BridgeURL
}

// State returns a copy of the advisory state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state
	if st.TokenBalance != nil {
		st.TokenBalance = new(big.Int).Set(st.TokenBalance)
	}
	return st
}

// DisplayBalance returns the formatted token balance.
func (m *Monitor) DisplayBalance() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FormatBalance(m.state.TokenBalance)
}

// TokenSymbol returns the symbol shown next to the balance.
func (m *Monitor) TokenSymbol() string {
	return m.opts.TokenSymbol
}

// Watch re-checks on every non-empty accountsChanged from the secondary
// wallet and clears the advisory on an empty one. Calling Watch again
// replaces the previous listener.
func (m *Monitor) Watch(ctx context.Context) bool {
	p := m.detector.DetectSecondary()
	if p == nil {
		return false
	}
	src, ok := p.(provider.EventSource)
	if !ok || !provider.HasEvents(p) {
		return true
	}

	m.Close()

	id, ok := onQuietly(src, provider.EventAccountsChanged, func(payload any) {
		if len(provider.AccountsFromPayload(payload)) == 0 {
			m.clear()
			return
		}
		m.CheckSecondaryBalance(ctx)
	})
	if !ok {
		return true
	}

	var once sync.Once
	unwatch := func() {
		once.Do(func() {
			if remover, ok := p.(provider.ListenerRemover); ok {
				removeQuietly(remover, provider.EventAccountsChanged, id)
			}
		})
	}

	m.mu.Lock()
	m.unwatch = unwatch
	m.mu.Unlock()
	return true
}

// Close stops watching. It is safe to call more than once.
func (m *Monitor) Close() {
	m.mu.Lock()
	unwatch := m.unwatch
	m.unwatch = nil
	m.mu.Unlock()
	if unwatch != nil {
		unwatch()
	}
}

func (m *Monitor) apply(address string, balance *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.SecondaryAddress != address {
		return
	}
	if balance == nil || balance.Sign() <= 0 {
		m.state.TokenBalance = nil
		m.state.Visible = false
		m.dismissed = nil
		return
	}

	m.state.TokenBalance = new(big.Int).Set(balance)
	if m.dismissed != nil && m.dismissed.Cmp(balance) == 0 {
		return
	}
	m.dismissed = nil
	m.state.Visible = true
}

func (m *Monitor) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	m.dismissed = nil
}

func onQuietly(src provider.EventSource, event string, h provider.Handler) (id provider.ListenerID, ok bool) {
	defer func() {
		if recover() != nil {
			id, ok = 0, false
		}
	}()
	return src.On(event, h), true
}

func removeQuietly(r provider.ListenerRemover, event string, id provider.ListenerID) {
	defer func() { _ = recover() }()
	r.RemoveListener(event, id)
}
