// Package walletclient wraps a discovered provider in the connect/disconnect
// handshake the session drives. The session treats a Client as opaque: it
// connects, listens for account changes and disconnects, nothing more.
package walletclient

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arcano/walletlink/internal/provider"
)

// EventAccountChanged is emitted with a []string payload whenever the wallet's
// authorized accounts change. An empty payload means the wallet disconnected.
const EventAccountChanged = "accountChanged"

var (
	// ErrUnusableProvider is returned when a client is built over a provider
	// that can neither request nor enable accounts.
	ErrUnusableProvider = errors.New("provider cannot serve account requests")

	// ErrNoAddress is returned when the handshake succeeds without an account.
	ErrNoAddress = errors.New("connection returned no address")

	// ErrClosed is returned by Connect after Disconnect.
	ErrClosed = errors.New("wallet client is disconnected")
)

// Client is the wallet-client surface the session depends on.
type Client interface {
	Connect(ctx context.Context) (string, error)
	Disconnect() error
	On(event string, handler provider.Handler) provider.ListenerID
	RemoveListener(event string, id provider.ListenerID)
}

// Factory builds a client over a detected provider.
type Factory func(p provider.Provider) (Client, error)

// upstream is a listener registered on the provider by the client.
type upstream struct {
	event string
	id    provider.ListenerID
}

// ProviderClient is a Client over an injected EIP-1193 provider.
type ProviderClient struct {
	p provider.Provider

	mu        sync.Mutex
	listeners map[string]map[provider.ListenerID]provider.Handler
	nextID    provider.ListenerID
	upstreams []upstream
	attached  bool
	closed    bool
}

var _ Client = (*ProviderClient)(nil)

// New is the default Factory.
func New(p provider.Provider) (Client, error) {
	return NewProviderClient(p)
}

// NewProviderClient creates a client over p.
func NewProviderClient(p provider.Provider) (*ProviderClient, error) {
	if provider.Probe(p) == provider.Unusable {
		return nil, ErrUnusableProvider
	}
	return &ProviderClient{
		p:         p,
		listeners: make(map[string]map[provider.ListenerID]provider.Handler),
	}, nil
}

// Connect prompts the wallet for accounts and returns the first one.
func (c *ProviderClient) Connect(ctx context.Context) (string, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	accounts, err := provider.RequestAccounts(ctx, c.p)
	if err != nil {
		return "", err
	}
	accounts = NormalizeAccounts(accounts)
	if len(accounts) == 0 {
		return "", ErrNoAddress
	}
	return accounts[0], nil
}

// On registers handler for event. The first accountChanged listener attaches
// the client to the provider's accountsChanged and disconnect events.
func (c *ProviderClient) On(event string, handler provider.Handler) provider.ListenerID {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	if c.listeners[event] == nil {
		c.listeners[event] = make(map[provider.ListenerID]provider.Handler)
	}
	c.listeners[event][id] = handler
	attach := event == EventAccountChanged && !c.attached && !c.closed
	if attach {
		c.attached = true
	}
	c.mu.Unlock()

	if attach {
		c.attach()
	}
	return id
}

// RemoveListener removes a handler registered with On.
func (c *ProviderClient) RemoveListener(event string, id provider.ListenerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners[event], id)
}

// Disconnect detaches from the provider and drops all listeners. It is
// idempotent. Injected providers have no revoke call, so the wallet itself
// stays authorized.
func (c *ProviderClient) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ups := c.upstreams
	c.upstreams = nil
	c.listeners = make(map[string]map[provider.ListenerID]provider.Handler)
	c.mu.Unlock()

	remover, ok := c.p.(provider.ListenerRemover)
	if !ok {
		return nil
	}
	for _, u := range ups {
		removeQuietly(remover, u)
	}
	return nil
}

func (c *ProviderClient) attach() {
	src, ok := c.p.(provider.EventSource)
	if !ok || !provider.HasEvents(c.p) {
		return
	}

	onAccounts := func(payload any) {
		c.emit(EventAccountChanged, NormalizeAccounts(provider.AccountsFromPayload(payload)))
	}
	onDisconnect := func(any) {
		c.emit(EventAccountChanged, []string{})
	}

	var ups []upstream
	for event, h := range map[string]provider.Handler{
		provider.EventAccountsChanged: onAccounts,
		provider.EventDisconnect:      onDisconnect,
	} {
		if id, ok := onQuietly(src, event, h); ok {
			ups = append(ups, upstream{event: event, id: id})
		}
	}

	c.mu.Lock()
	c.upstreams = append(c.upstreams, ups...)
	c.mu.Unlock()
}

func (c *ProviderClient) emit(event string, payload any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	handlers := make([]provider.Handler, 0, len(c.listeners[event]))
	for _, h := range c.listeners[event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

func onQuietly(src provider.EventSource, event string, h provider.Handler) (id provider.ListenerID, ok bool) {
	defer func() {
		if recover() != nil {
			id, ok = 0, false
		}
	}()
	return src.On(event, h), true
}

func removeQuietly(r provider.ListenerRemover, u upstream) {
	defer func() { _ = recover() }()
	r.RemoveListener(u.event, u.id)
}

// NormalizeAccounts drops blank entries and checksums hex addresses.
// Non-hex identifiers pass through unchanged.
func NormalizeAccounts(accounts []string) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		out = append(out, NormalizeAddress(a))
	}
	return out
}

// NormalizeAddress returns the EIP-55 checksummed form of a hex address, or
// the input unchanged when it is not one.
func NormalizeAddress(a string) string {
	if common.IsHexAddress(a) {
		return common.HexToAddress(a).Hex()
	}
	return a
}
