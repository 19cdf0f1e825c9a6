package advisory_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcano/walletlink/internal/advisory"
	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/provider/providertest"
)

const (
	alice = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	bob   = "0x00000000219ab540356cBB839Cbe05303d7705Fa"
)

type fixedDetector struct{ p provider.Provider }

func (d fixedDetector) DetectSecondary() provider.Provider { return d.p }

// balances is a BalanceFunc backed by a map, recording queried owners.
type balances struct {
	mu     sync.Mutex
	values map[string]*big.Int
	err    error
	owners []string
	tokens []string
}

func (b *balances) set(owner string, v *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[owner] = v
}

func (b *balances) query(_ context.Context, _ provider.Provider, token, owner string) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owners = append(b.owners, owner)
	b.tokens = append(b.tokens, token)
	if b.err != nil {
		return nil, b.err
	}
	return b.values[owner], nil
}

func eth(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number " + s)
	}
	return v
}

func newMonitor(p provider.Provider, b *balances) *advisory.Monitor {
	return advisory.NewMonitor(fixedDetector{p: p}, b.query, nil, advisory.Options{})
}

func TestCheckSecondaryBalance_Visible(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(alice)
	b := &balances{values: map[string]*big.Int{alice: eth("1500000000000000000")}}
	m := newMonitor(p, b)

	m.CheckSecondaryBalance(context.Background())

	st := m.State()
	assert.True(t, st.Visible)
	assert.Equal(t, alice, st.SecondaryAddress)
	assert.Equal(t, "1.5", m.DisplayBalance())
	assert.Equal(t, []string{advisory.DefaultTokenContract}, b.tokens)
	assert.Equal(t, "ETH-GALA", m.TokenSymbol())

	assert.Equal(t, []string{provider.MethodAccounts}, p.Calls(), "read-only: never prompts the wallet")
}

func TestCheckSecondaryBalance_ZeroOrUnknown(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		balance *big.Int
		err     error
	}{
		{"zero", big.NewInt(0), nil},
		{"null", nil, nil},
		{"query failure", nil, errors.New("execution reverted")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := providertest.NewProvider().WithAccounts(alice)
			b := &balances{values: map[string]*big.Int{alice: tt.balance}, err: tt.err}
			m := newMonitor(p, b)

			require.NotPanics(t, func() { m.CheckSecondaryBalance(context.Background()) })
			st := m.State()
			assert.False(t, st.Visible)
			assert.Nil(t, st.TokenBalance)
			assert.Equal(t, "0", m.DisplayBalance())
		})
	}
}

func TestCheckSecondaryBalance_SilentWithoutWallet(t *testing.T) {
	t.Parallel()
	b := &balances{values: map[string]*big.Int{}}

	m := newMonitor(nil, b)
	m.CheckSecondaryBalance(context.Background())
	assert.Equal(t, advisory.State{}, m.State())

	locked := providertest.NewProvider().WithAccounts()
	m = newMonitor(locked, b)
	m.CheckSecondaryBalance(context.Background())
	assert.Equal(t, advisory.State{}, m.State())

	m = newMonitor(providertest.Panicky{}, b)
	require.NotPanics(t, func() { m.CheckSecondaryBalance(context.Background()) })
	assert.Empty(t, b.owners)
}

func TestDismiss_KeepsBalance(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(alice)
	b := &balances{values: map[string]*big.Int{alice: eth("1234567890123456789")}}
	m := newMonitor(p, b)

	m.CheckSecondaryBalance(context.Background())
	require.True(t, m.State().Visible)

	m.Dismiss()
	st := m.State()
	assert.False(t, st.Visible)
	assert.Equal(t, 0, eth("1234567890123456789").Cmp(st.TokenBalance))
	assert.Equal(t, "1.2345", m.DisplayBalance())

	m.CheckSecondaryBalance(context.Background())
	assert.False(t, m.State().Visible, "same balance stays dismissed")

	b.set(alice, eth("2000000000000000000"))
	m.CheckSecondaryBalance(context.Background())
	assert.True(t, m.State().Visible, "changed balance shows again")
	assert.Equal(t, "2", m.DisplayBalance())
}

func TestRedirectToBridge(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(alice)
	b := &balances{values: map[string]*big.Int{alice: eth("1000000000000000000")}}
	m := newMonitor(p, b)
	m.CheckSecondaryBalance(context.Background())

	assert.Equal(t, "https://connect.gala.com/", m.RedirectToBridge())
	assert.False(t, m.State().Visible)
	assert.NotNil(t, m.State().TokenBalance)
}

func TestWatch(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(alice)
	b := &balances{values: map[string]*big.Int{
		alice: eth("1000000000000000000"),
		bob:   eth("500000000000000"),
	}}
	m := newMonitor(p, b)
	t.Cleanup(m.Close)

	require.True(t, m.Start(context.Background()))
	assert.Equal(t, "1", m.DisplayBalance())
	assert.Equal(t, 1, p.ListenerCount(provider.EventAccountsChanged))

	p.WithAccounts(bob)
	p.Emit(provider.EventAccountsChanged, []any{bob})
	assert.Equal(t, bob, m.State().SecondaryAddress)
	assert.Equal(t, "0.0005", m.DisplayBalance())

	p.Emit(provider.EventAccountsChanged, []any{})
	assert.Equal(t, advisory.State{}, m.State())

	require.True(t, m.Watch(context.Background()))
	assert.Equal(t, 1, p.ListenerCount(provider.EventAccountsChanged), "re-watch replaces the listener")

	m.Close()
	m.Close()
	assert.Equal(t, 0, p.ListenerCount(provider.EventAccountsChanged))
}

func TestStart_NoSecondary(t *testing.T) {
	t.Parallel()
	m := newMonitor(nil, &balances{values: map[string]*big.Int{}})
	assert.False(t, m.Start(context.Background()))
	assert.NotPanics(t, m.Close)
}

func TestOptions(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(alice)
	b := &balances{values: map[string]*big.Int{alice: big.NewInt(1)}}
	m := advisory.NewMonitor(fixedDetector{p: p}, b.query, nil, advisory.Options{
		TokenContract: bob,
		TokenSymbol:   "TKN",
		BridgeURL:     "https://bridge.example/",
	})

	m.CheckSecondaryBalance(context.Background())
	assert.Equal(t, []string{bob}, b.tokens)
	assert.Equal(t, "TKN", m.TokenSymbol())
	assert.Equal(t, "0", m.DisplayBalance(), "one wei truncates to zero")
	assert.True(t, m.State().Visible, "any nonzero balance raises the prompt")
	assert.Equal(t, "https://bridge.example/", m.RedirectToBridge())
	assert.False(t, m.State().Visible)
}

func TestDismiss_ClearedWhenBalanceDrains(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(alice)
	b := &balances{values: map[string]*big.Int{alice: eth("3000000000000000000")}}
	m := newMonitor(p, b)
	ctx := context.Background()

	m.CheckSecondaryBalance(ctx)
	m.Dismiss()
	require.NotNil(t, m.Dismissed())

	b.set(alice, big.NewInt(0))
	m.CheckSecondaryBalance(ctx)
	assert.False(t, m.State().Visible)
	assert.Nil(t, m.Dismissed(), "a drained balance forgets the dismissal")

	b.set(alice, eth("3000000000000000000"))
	m.CheckSecondaryBalance(ctx)
	assert.True(t, m.State().Visible, "the same balance returning is a change")
}

func TestRestoreDismissed(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider().WithAccounts(alice)
	b := &balances{values: map[string]*big.Int{alice: eth("3000000000000000000")}}
	m := newMonitor(p, b)
	assert.Nil(t, m.Dismissed())

	m.RestoreDismissed(eth("3000000000000000000"))
	m.CheckSecondaryBalance(context.Background())
	assert.False(t, m.State().Visible, "restored dismissal hides the same balance")
	assert.Equal(t, 0, eth("3000000000000000000").Cmp(m.Dismissed()))

	m.RestoreDismissed(big.NewInt(0))
	assert.Nil(t, m.Dismissed())
	m.CheckSecondaryBalance(context.Background())
	assert.True(t, m.State().Visible)

	m.Dismiss()
	assert.Equal(t, 0, eth("3000000000000000000").Cmp(m.Dismissed()))
}
