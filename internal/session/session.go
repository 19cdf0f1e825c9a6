// Package session drives the wallet connection lifecycle. It owns at most one
// wallet client per slot, funnels every connect attempt through Connecting to
// a terminal state, and ignores events from clients it has already released.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/state"
	"github.com/arcano/walletlink/internal/walletclient"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// Detector resolves providers for each wallet slot.
type Detector interface {
	Detect() provider.Provider
	DetectSecondary() provider.Provider
}

// Logger is the subset of config.Logger the session needs.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options tunes connect behavior.
type Options struct {
	// InjectionDelay is waited before detection so late-injecting
	// extensions are found.
	InjectionDelay time.Duration
	// ConnectTimeout bounds the approval prompt. Zero waits indefinitely.
	ConnectTimeout time.Duration
}

// Result is the outcome of ConnectByType.
type Result struct {
	Account string `json:"account"`
	ChainID string `json:"chain_id,omitempty"`
}

// SecondaryState is the local view of the secondary wallet.
type SecondaryState struct {
	Account string `json:"account,omitempty"`
	ChainID string `json:"chain_id,omitempty"`
}

// slot is one logical wallet. gen changes whenever the slot's client is
// released, so handlers bound to an older gen become no-ops.
type slot struct {
	connecting bool
	gen        uint64
	sub        *Subscription
	client     walletclient.Client
	provider   provider.Provider
	local      SecondaryState
}

// Session manages the primary and secondary wallet slots.
type Session struct {
	detector Detector
	factory  walletclient.Factory
	store    *state.Store
	logger   Logger
	opts     Options

	mu        sync.Mutex
	nextGen   uint64
	epoch     uint64 // bumped by Disconnect; in-flight primary connects compare against it
	primary   slot
	secondary slot
}

// New creates a session. A nil factory uses walletclient.New.
func New(detector Detector, factory walletclient.Factory, store *state.Store, logger Logger, opts Options) *Session {
	if factory == nil {
		factory = walletclient.New
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Session{
		detector: detector,
		factory:  factory,
		store:    store,
		logger:   logger,
		opts:     opts,
	}
}

// Store returns the state store the session mutates.
func (s *Session) Store() *state.Store {
	return s.store
}

// ConnectPrimary prompts the primary wallet for an account.
// The store passes through Connecting and always ends Connected or
// Disconnected, even if the wallet client panics.
func (s *Session) ConnectPrimary(ctx context.Context) (account string, err error) {
	if !s.claim(&s.primary) {
		return "", linkerr.ErrConnectInProgress
	}
	defer s.unclaim(&s.primary)
	epoch := s.currentEpoch()

	var gen uint64
	s.store.BeginConnect()
	defer func() {
		if r := recover(); r != nil {
			err = linkerr.WithCause(linkerr.ErrConnectionFailed, fmt.Errorf("wallet client panicked: %v", r))
		}
		if err != nil {
			if gen != 0 {
				s.releasePrimaryGen(gen)
			}
			s.logger.Debug("session: connect failed: %v", err)
			s.store.Disconnect(linkerr.KindOf(err))
		}
	}()

	if err := s.waitForInjection(ctx); err != nil {
		return "", mapConnectError(err)
	}
	if s.currentEpoch() != epoch {
		return "", linkerr.WithCause(linkerr.ErrConnectionFailed, errSuperseded)
	}

	s.releasePrimary()

	p := s.detector.Detect()
	if p == nil {
		return "", linkerr.ErrNoProviderFound
	}

	client, err := s.factory(p)
	if err != nil {
		return "", mapConnectError(err)
	}
	gen = s.installPrimary(p, client)

	connectCtx, cancel := s.connectContext(ctx)
	defer cancel()

	account, err = client.Connect(connectCtx)
	if err == nil && account == "" {
		err = walletclient.ErrNoAddress
	}
	if err != nil {
		return "", mapConnectError(err)
	}

	if !s.activePrimary(gen) || s.currentEpoch() != epoch {
		return "", linkerr.WithCause(linkerr.ErrConnectionFailed, errSuperseded)
	}

	s.store.Connect(account)
	if s.currentEpoch() != epoch {
		// Disconnect landed between the check and the store update.
		return "", linkerr.WithCause(linkerr.ErrConnectionFailed, errSuperseded)
	}
	s.syncChain(ctx, p, gen)
	s.logger.Debug("session: primary connected %s", account)
	return account, nil
}

// ConnectByType connects the wallet chosen in a selection dialog.
// The secondary wallet is asked for accounts directly and never touches the
// primary connection state.
func (s *Session) ConnectByType(ctx context.Context, t provider.WalletType) (Result, error) {
	switch t {
	case provider.WalletPrimary:
		account, err := s.ConnectPrimary(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Account: account, ChainID: s.store.Snapshot().ChainID}, nil
	case provider.WalletSecondary:
		return s.connectSecondary(ctx)
	default:
		return Result{}, linkerr.WithDetails(linkerr.ErrInvalidWalletType, map[string]string{"type": string(t)})
	}
}

// Disconnect releases the primary client, clears the store and removes the
// persisted account. It is idempotent and never fails.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
	s.releasePrimary()
	s.store.Disconnect(linkerr.KindNone)
}

// DisconnectSecondary releases the secondary wallet's listeners and local state.
func (s *Session) DisconnectSecondary() {
	s.mu.Lock()
	sub := s.retireLocked(&s.secondary)
	s.mu.Unlock()
	sub.Close()
}

// Close releases both slots without touching persisted state.
func (s *Session) Close() {
	s.mu.Lock()
	primary := s.retireLocked(&s.primary)
	secondary := s.retireLocked(&s.secondary)
	s.mu.Unlock()
	primary.Close()
	secondary.Close()
}

// OnAccountsChanged applies a primary account-changed event. An empty list
// disconnects and releases the client.
func (s *Session) OnAccountsChanged(accounts []string) {
	if len(accounts) == 0 || accounts[0] == "" {
		s.logger.Debug("session: wallet reported no accounts")
		s.Disconnect()
		return
	}
	s.store.SetAccount(accounts)
}

// OnChainChanged records the primary wallet's chain id.
func (s *Session) OnChainChanged(raw any) {
	s.store.SetChain(provider.NormalizeChainID(raw))
}

// Secondary returns the secondary wallet's local state.
func (s *Session) Secondary() SecondaryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secondary.local
}

// PersistedAddress returns the last-connected primary account for display.
func (s *Session) PersistedAddress() (string, bool) {
	return s.store.PersistedAccount()
}

// Resync silently restores a primary connection the wallet already authorized.
// It only issues read-only queries and swallows every failure.
func (s *Session) Resync(ctx context.Context) {
	if !s.claim(&s.primary) {
		return
	}
	defer s.unclaim(&s.primary)

	if s.store.Snapshot().Status == state.Connected {
		return
	}

	p := s.detector.Detect()
	if p == nil {
		s.logger.Debug("session: resync found no provider")
		return
	}

	accounts, err := provider.Accounts(ctx, p)
	if err != nil {
		s.logger.Debug("session: resync account query failed: %v", err)
		return
	}
	accounts = walletclient.NormalizeAccounts(accounts)
	if len(accounts) == 0 {
		s.logger.Debug("session: resync found no authorized account")
		return
	}

	client, err := s.factory(p)
	if err != nil {
		s.logger.Debug("session: resync could not build client: %v", err)
		return
	}
	s.releasePrimary()
	gen := s.installPrimary(p, client)

	s.store.Connect(accounts[0])
	s.syncChain(ctx, p, gen)
	s.logger.Debug("session: resynced primary %s", accounts[0])
}

func (s *Session) connectSecondary(ctx context.Context) (Result, error) {
	if !s.claim(&s.secondary) {
		return Result{}, linkerr.ErrConnectInProgress
	}
	defer s.unclaim(&s.secondary)

	if err := s.waitForInjection(ctx); err != nil {
		return Result{}, mapConnectError(err)
	}

	p := s.detector.DetectSecondary()
	if p == nil {
		return Result{}, linkerr.WithSuggestion(linkerr.ErrNoProviderFound,
			"Install MetaMask to check for bridgeable balances")
	}

	s.DisconnectSecondary()

	connectCtx, cancel := s.connectContext(ctx)
	defer cancel()

	accounts, err := requestAccountsSafely(connectCtx, p)
	if err != nil {
		return Result{}, mapConnectError(err)
	}
	accounts = walletclient.NormalizeAccounts(accounts)
	if len(accounts) == 0 {
		return Result{}, mapConnectError(walletclient.ErrNoAddress)
	}

	chainID, err := provider.ChainID(ctx, p)
	if err != nil {
		s.logger.Debug("session: secondary chain id unavailable: %v", err)
	}

	local := SecondaryState{Account: accounts[0], ChainID: chainID}
	s.installSecondary(p, local)
	return Result(local), nil
}

// claim marks a slot as connecting. It fails when a connect is in flight.
func (s *Session) claim(sl *slot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl.connecting {
		return false
	}
	sl.connecting = true
	return true
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) unclaim(sl *slot) {
	s.mu.Lock()
	sl.connecting = false
	s.mu.Unlock()
}

func (s *Session) waitForInjection(ctx context.Context) error {
	if s.opts.InjectionDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.opts.InjectionDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) connectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.ConnectTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.ConnectTimeout)
	}
	return context.WithCancel(ctx)
}

// installPrimary makes client the active primary client and subscribes to its
// events. It returns the generation the handlers are bound to.
func (s *Session) installPrimary(p provider.Provider, client walletclient.Client) uint64 {
	sub := newSubscription()

	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.primary.gen = gen
	s.primary.sub = sub
	s.primary.client = client
	s.primary.provider = p
	s.mu.Unlock()

	id := client.On(walletclient.EventAccountChanged, func(payload any) {
		if !s.activePrimary(gen) {
			return
		}
		s.OnAccountsChanged(provider.AccountsFromPayload(payload))
	})
	sub.add(func() { client.RemoveListener(walletclient.EventAccountChanged, id) })
	sub.add(func() {
		if err := client.Disconnect(); err != nil {
			s.logger.Debug("session: client disconnect: %v", err)
		}
	})

	subscribeProvider(sub, p, provider.EventChainChanged, func(payload any) {
		if !s.activePrimary(gen) {
			return
		}
		s.OnChainChanged(payload)
	})
	return gen
}

func (s *Session) installSecondary(p provider.Provider, local SecondaryState) {
	sub := newSubscription()

	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.secondary.gen = gen
	s.secondary.sub = sub
	s.secondary.provider = p
	s.secondary.local = local
	s.mu.Unlock()

	subscribeProvider(sub, p, provider.EventAccountsChanged, func(payload any) {
		accounts := walletclient.NormalizeAccounts(provider.AccountsFromPayload(payload))
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.secondary.gen != gen {
			return
		}
		if len(accounts) == 0 {
			s.secondary.local = SecondaryState{}
			return
		}
		s.secondary.local.Account = accounts[0]
	})
	subscribeProvider(sub, p, provider.EventChainChanged, func(payload any) {
		chainID := provider.NormalizeChainID(payload)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.secondary.gen != gen || s.secondary.local.Account == "" {
			return
		}
		s.secondary.local.ChainID = chainID
	})
}

func (s *Session) activePrimary(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primary.gen == gen && s.primary.client != nil
}

// releasePrimary tears down the active primary client, if any.
func (s *Session) releasePrimary() {
	s.mu.Lock()
	sub := s.retireLocked(&s.primary)
	s.mu.Unlock()
	sub.Close()
}

// releasePrimaryGen tears down the primary client only if it is still gen.
func (s *Session) releasePrimaryGen(gen uint64) {
	s.mu.Lock()
	if s.primary.gen != gen {
		s.mu.Unlock()
		return
	}
	sub := s.retireLocked(&s.primary)
	s.mu.Unlock()
	sub.Close()
}

// retireLocked detaches a slot's resources and bumps its generation. The
// caller closes the returned subscription after unlocking.
func (s *Session) retireLocked(sl *slot) *Subscription {
	sub := sl.sub
	s.nextGen++
	sl.gen = s.nextGen
	sl.sub = nil
	sl.client = nil
	sl.provider = nil
	sl.local = SecondaryState{}
	return sub
}

func (s *Session) syncChain(ctx context.Context, p provider.Provider, gen uint64) {
	chainID, err := provider.ChainID(ctx, p)
	if err != nil {
		s.logger.Debug("session: chain id unavailable: %v", err)
		return
	}
	if s.activePrimary(gen) {
		s.store.SetChain(chainID)
	}
}

// subscribeProvider registers h on the provider when it supports events and
// records the removal in sub. Providers without removeListener are tolerated;
// the generation guard silences their stale handlers.
func subscribeProvider(sub *Subscription, p provider.Provider, event string, h provider.Handler) {
	src, ok := p.(provider.EventSource)
	if !ok || !provider.HasEvents(p) {
		return
	}

	var id provider.ListenerID
	registered := false
	runQuietly(func() {
		id = src.On(event, h)
		registered = true
	})
	if !registered {
		return
	}
	if remover, ok := p.(provider.ListenerRemover); ok {
		sub.add(func() { remover.RemoveListener(event, id) })
	}
}

func requestAccountsSafely(ctx context.Context, p provider.Provider) (accounts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			accounts, err = nil, fmt.Errorf("%w: provider panicked: %v", provider.ErrProviderFault, r)
		}
	}()
	return provider.RequestAccounts(ctx, p)
}
