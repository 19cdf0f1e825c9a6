package walletclient_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/provider/providertest"
	"github.com/arcano/walletlink/internal/walletclient"
)

const (
	lowerAddr    = "0x742d35cc6634c0532925a3b844bc454e4438f44e"
	checksumAddr = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
)

type payloads struct {
	mu  sync.Mutex
	got [][]string
}

func (p *payloads) handler(payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	accounts, _ := payload.([]string)
	p.got = append(p.got, accounts)
}

func (p *payloads) all() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.got...)
}

func TestNewProviderClient_Unusable(t *testing.T) {
	t.Parallel()
	_, err := walletclient.NewProviderClient(struct{}{})
	require.ErrorIs(t, err, walletclient.ErrUnusableProvider)

	_, err = walletclient.New(nil)
	require.ErrorIs(t, err, walletclient.ErrUnusableProvider)
}

func TestConnect(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(lowerAddr, "0xother")
	c, err := walletclient.NewProviderClient(p)
	require.NoError(t, err)

	addr, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checksumAddr, addr)
	assert.Equal(t, 1, p.CallCount(provider.MethodRequestAccounts))
}

func TestConnect_Errors(t *testing.T) {
	t.Parallel()
	rejected := errors.New("User rejected the request.")

	tests := []struct {
		name     string
		provider provider.Provider
		expected error
	}{
		{"no accounts", providertest.NewProvider().WithAccounts(), walletclient.ErrNoAddress},
		{"blank account", providertest.NewProvider().WithAccounts(" "), walletclient.ErrNoAddress},
		{"enable rejected", &providertest.EnableOnly{Err: rejected}, rejected},
		{"provider fault", providertest.Panicky{}, provider.ErrProviderFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := walletclient.NewProviderClient(tt.provider)
			require.NoError(t, err)
			_, err = c.Connect(context.Background())
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestConnect_NonHexIdentifierPassesThrough(t *testing.T) {
	t.Parallel()
	c, err := walletclient.NewProviderClient(providertest.NewProvider().WithAccounts("client|abc123"))
	require.NoError(t, err)

	addr, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "client|abc123", addr)
}

func TestAccountChanged_Forwarding(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider()
	c, err := walletclient.NewProviderClient(p)
	require.NoError(t, err)

	got := &payloads{}
	c.On(walletclient.EventAccountChanged, got.handler)
	c.On(walletclient.EventAccountChanged, func(any) {})
	assert.Equal(t, 1, p.ListenerCount(provider.EventAccountsChanged), "attached once")
	assert.Equal(t, 1, p.ListenerCount(provider.EventDisconnect))

	p.Emit(provider.EventAccountsChanged, []any{lowerAddr})
	p.Emit(provider.EventAccountsChanged, "0xabc")
	p.Emit(provider.EventAccountsChanged, []any{})
	p.Emit(provider.EventDisconnect, nil)

	assert.Equal(t, [][]string{{checksumAddr}, {"0xabc"}, {}, {}}, got.all())
}

func TestRemoveListener(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider()
	c, err := walletclient.NewProviderClient(p)
	require.NoError(t, err)

	got := &payloads{}
	id := c.On(walletclient.EventAccountChanged, got.handler)
	c.RemoveListener(walletclient.EventAccountChanged, id)

	p.Emit(provider.EventAccountsChanged, []any{"0xabc"})
	assert.Empty(t, got.all())
}

func TestDisconnect(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(lowerAddr)
	c, err := walletclient.NewProviderClient(p)
	require.NoError(t, err)

	got := &payloads{}
	c.On(walletclient.EventAccountChanged, got.handler)

	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())

	assert.Equal(t, 0, p.ListenerCount(provider.EventAccountsChanged))
	assert.Equal(t, 0, p.ListenerCount(provider.EventDisconnect))
	assert.Equal(t, 2, p.Removed())

	p.Emit(provider.EventAccountsChanged, []any{"0xabc"})
	assert.Empty(t, got.all())

	_, err = c.Connect(context.Background())
	require.ErrorIs(t, err, walletclient.ErrClosed)
}

func TestDisconnect_ProviderWithoutEvents(t *testing.T) {
	t.Parallel()
	c, err := walletclient.NewProviderClient(&providertest.EnableOnly{Accounts: []string{lowerAddr}})
	require.NoError(t, err)

	c.On(walletclient.EventAccountChanged, func(any) {})
	assert.NoError(t, c.Disconnect())
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()
	assert.Equal(t, checksumAddr, walletclient.NormalizeAddress(lowerAddr))
	assert.Equal(t, checksumAddr, walletclient.NormalizeAddress(checksumAddr))
	assert.Equal(t, "eth|abc", walletclient.NormalizeAddress("eth|abc"))
}
