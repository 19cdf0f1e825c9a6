// Package providertest provides in-memory providers for tests.
package providertest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/arcano/walletlink/internal/provider"
)

// ErrUnhandledMethod is returned for methods without a configured response.
var ErrUnhandledMethod = errors.New("unhandled method")

// RequestFunc answers one request.
type RequestFunc func(ctx context.Context, params []any) (any, error)

// Provider is a request-capable, event-emitting fake provider.
type Provider struct {
	mu        sync.Mutex
	handlers  map[string]RequestFunc
	listeners map[string]map[provider.ListenerID]provider.Handler
	nextID    provider.ListenerID
	flags     map[string]bool
	calls     []provider.RequestArgs
	removed   int
}

var (
	_ provider.Requester       = (*Provider)(nil)
	_ provider.EventSource     = (*Provider)(nil)
	_ provider.ListenerRemover = (*Provider)(nil)
	_ provider.Flagger         = (*Provider)(nil)
)

// NewProvider creates a fake provider with no configured methods.
func NewProvider() *Provider {
	return &Provider{
		handlers:  make(map[string]RequestFunc),
		listeners: make(map[string]map[provider.ListenerID]provider.Handler),
		flags:     make(map[string]bool),
	}
}

// WithAccounts answers eth_accounts and eth_requestAccounts with accounts.
func (p *Provider) WithAccounts(accounts ...string) *Provider {
	answer := func(context.Context, []any) (any, error) { return accounts, nil }
	p.Handle(provider.MethodAccounts, answer)
	p.Handle(provider.MethodRequestAccounts, answer)
	return p
}

// WithChainID answers eth_chainId.
func (p *Provider) WithChainID(chainID string) *Provider {
	p.Handle(provider.MethodChainID, func(context.Context, []any) (any, error) { return chainID, nil })
	return p
}

// WithFlag sets a marker flag such as isMetaMask.
func (p *Provider) WithFlag(name string, value bool) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags[name] = value
	return p
}

// Handle sets the response for a method.
func (p *Provider) Handle(method string, fn RequestFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[method] = fn
}

// Request implements provider.Requester.
func (p *Provider) Request(ctx context.Context, args provider.RequestArgs) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, args)
	fn, ok := p.handlers[args.Method]
	p.mu.Unlock()

	if !ok {
		return nil, ErrUnhandledMethod
	}
	v, err := fn(ctx, args.Params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// On implements provider.EventSource.
func (p *Provider) On(event string, handler provider.Handler) provider.ListenerID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	if p.listeners[event] == nil {
		p.listeners[event] = make(map[provider.ListenerID]provider.Handler)
	}
	p.listeners[event][p.nextID] = handler
	return p.nextID
}

// RemoveListener implements provider.ListenerRemover.
func (p *Provider) RemoveListener(event string, id provider.ListenerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.listeners[event][id]; ok {
		delete(p.listeners[event], id)
		p.removed++
	}
}

// Flag implements provider.Flagger.
func (p *Provider) Flag(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags[name]
}

// Emit delivers payload to every listener of event, synchronously.
func (p *Provider) Emit(event string, payload any) {
	p.mu.Lock()
	handlers := make([]provider.Handler, 0, len(p.listeners[event]))
	for _, h := range p.listeners[event] {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

// ListenerCount returns the number of handlers registered for event.
func (p *Provider) ListenerCount(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners[event])
}

// Removed returns how many listeners were removed.
func (p *Provider) Removed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removed
}

// Calls returns the methods requested so far, in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.Method
	}
	return out
}

// CallCount returns how many times method was requested.
func (p *Provider) CallCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// EnableOnly is a legacy provider exposing only enable().
type EnableOnly struct {
	Accounts []string
	Err      error
}

// Enable implements provider.Enabler.
func (e *EnableOnly) Enable(context.Context) ([]string, error) {
	return e.Accounts, e.Err
}

// Panicky exposes every capability but panics on use.
type Panicky struct{}

// Request panics.
func (Panicky) Request(context.Context, provider.RequestArgs) (json.RawMessage, error) {
	panic("malformed provider")
}

// On panics.
func (Panicky) On(string, provider.Handler) provider.ListenerID {
	panic("malformed provider")
}

// Flag panics.
func (Panicky) Flag(string) bool {
	panic("malformed provider")
}

// Web3 is a legacy web3 global.
type Web3 struct {
	Current provider.Provider
}

// CurrentProvider implements provider.CurrentProviderHolder.
func (w *Web3) CurrentProvider() provider.Provider {
	return w.Current
}

// Detail is a registry entry wrapping a provider, as announced by EIP-6963.
type Detail struct {
	Name  string
	Inner provider.Provider
}

// Provider implements provider.ProviderHolder.
func (d *Detail) Provider() provider.Provider {
	return d.Inner
}
