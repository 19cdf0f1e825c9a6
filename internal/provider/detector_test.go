package provider_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/provider/providertest"
)

// panickyHolder is a registry entry whose provider getter throws.
type panickyHolder struct{}

func (panickyHolder) Provider() provider.Provider { panic("getter threw") }

// plainObject is a global that looks nothing like a provider.
type plainObject struct{ Name string }

// requestOnly exposes request but no events.
type requestOnly struct{ inner *providertest.Provider }

func (r requestOnly) Request(ctx context.Context, args provider.RequestArgs) (json.RawMessage, error) {
	return r.inner.Request(ctx, args)
}

// brokenEnvironment panics on every lookup except the allowed names.
type brokenEnvironment struct {
	allowed map[string]any
}

func (b brokenEnvironment) Lookup(name string) (any, bool) {
	if v, ok := b.allowed[name]; ok {
		return v, true
	}
	panic("getter threw")
}

func (b brokenEnvironment) Bindings() []provider.Binding {
	panic("enumeration threw")
}

func newDetector(values map[string]any) *provider.Detector {
	return provider.NewDetector(provider.NewStaticEnvironment(values), provider.DefaultLocations(), nil)
}

func TestDetect_NilEnvironment(t *testing.T) {
	t.Parallel()
	d := provider.NewDetector(nil, provider.DefaultLocations(), nil)
	assert.Nil(t, d.Detect())
	assert.Nil(t, d.DetectSecondary())

	var typedNil *provider.StaticEnvironment
	d = provider.NewDetector(typedNil, provider.DefaultLocations(), nil)
	assert.Nil(t, d.Detect())
}

func TestDetect_EmptyEnvironment(t *testing.T) {
	t.Parallel()
	assert.Nil(t, newDetector(nil).Detect())
	assert.Nil(t, newDetector(map[string]any{"document": plainObject{}, "count": 3}).Detect())
}

func TestDetect_SearchOrder(t *testing.T) {
	t.Parallel()
	gala := providertest.NewProvider()
	generic := providertest.NewProvider()
	legacy := providertest.NewProvider()
	registered := providertest.NewProvider()
	stray := providertest.NewProvider()

	tests := []struct {
		name     string
		values   map[string]any
		expected provider.Provider
	}{
		{
			name: "primary namespace wins over everything",
			values: map[string]any{
				"gala": gala, "ethereum": generic, "web3": &providertest.Web3{Current: legacy},
				"providers": []any{registered}, "strayWallet": stray,
			},
			expected: gala,
		},
		{
			name: "generic when primary absent",
			values: map[string]any{
				"ethereum": generic, "web3": &providertest.Web3{Current: legacy}, "providers": []any{registered},
			},
			expected: generic,
		},
		{
			name:     "legacy currentProvider",
			values:   map[string]any{"web3": &providertest.Web3{Current: legacy}, "providers": []any{registered}},
			expected: legacy,
		},
		{
			name:     "registry entry",
			values:   map[string]any{"providers": []any{registered}, "strayWallet": stray},
			expected: registered,
		},
		{
			name:     "heuristic last",
			values:   map[string]any{"strayWallet": stray},
			expected: stray,
		},
		{
			name:     "unusable primary falls through",
			values:   map[string]any{"gala": plainObject{Name: "gala"}, "ethereum": generic},
			expected: generic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Same(t, tt.expected, newDetector(tt.values).Detect())
		})
	}
}

func TestDetect_LegacyWithoutUsableProvider(t *testing.T) {
	t.Parallel()
	d := newDetector(map[string]any{"web3": &providertest.Web3{Current: plainObject{}}})
	assert.Nil(t, d.Detect())
}

func TestDetect_RegistrySkipsUnusableEntries(t *testing.T) {
	t.Parallel()
	inner := providertest.NewProvider()
	enableOnly := &providertest.EnableOnly{Accounts: []string{"0xabc"}}

	d := newDetector(map[string]any{
		"providers": []any{
			nil,
			plainObject{Name: "junk"},
			&providertest.Detail{Name: "empty"},
			&providertest.Detail{Name: "gala", Inner: inner},
			enableOnly,
		},
	})
	assert.Same(t, inner, d.Detect())

	d = newDetector(map[string]any{"providers": []any{plainObject{}, enableOnly}})
	assert.Same(t, enableOnly, d.Detect())
}

func TestDetect_PanickingEnvironment(t *testing.T) {
	t.Parallel()
	generic := providertest.NewProvider()

	d := provider.NewDetector(brokenEnvironment{allowed: map[string]any{"ethereum": generic}}, provider.DefaultLocations(), nil)
	assert.Same(t, generic, d.Detect())

	d = provider.NewDetector(brokenEnvironment{}, provider.DefaultLocations(), nil)
	assert.NotPanics(t, func() { assert.Nil(t, d.Detect()) })
}

func TestDetect_PanickingRegistryEntries(t *testing.T) {
	t.Parallel()
	good := providertest.NewProvider()

	d := newDetector(map[string]any{
		"providers": []any{panickyHolder{}, good},
	})
	assert.Same(t, good, d.Detect())
}

func TestDetect_HeuristicRequiresEvents(t *testing.T) {
	t.Parallel()
	d := newDetector(map[string]any{
		"someWallet": requestOnly{inner: providertest.NewProvider()},
	})
	assert.Nil(t, d.Detect())
}

func TestDetect_HeuristicWeighting(t *testing.T) {
	t.Parallel()
	generic := providertest.NewProvider()
	wallet := providertest.NewProvider()
	galaWallet := providertest.NewProvider()

	d := newDetector(map[string]any{
		"aaa":        generic,
		"bbbWallet":  wallet,
		"galaWallet": galaWallet,
	})
	assert.Same(t, galaWallet, d.Detect())

	d = newDetector(map[string]any{"aaa": generic, "bbbWallet": wallet})
	assert.Same(t, wallet, d.Detect())

	d = newDetector(map[string]any{"zzz": wallet, "aaa": generic})
	assert.Same(t, generic, d.Detect(), "ties resolve by name order")
}

func TestDetect_HeuristicDisabled(t *testing.T) {
	t.Parallel()
	loc := provider.DefaultLocations()
	loc.Heuristic = false
	d := provider.NewDetector(provider.NewStaticEnvironment(map[string]any{
		"galaWallet": providertest.NewProvider(),
	}), loc, nil)
	assert.Nil(t, d.Detect())
}

func TestDetect_LateInjection(t *testing.T) {
	t.Parallel()
	env := provider.NewStaticEnvironment(nil)
	d := provider.NewDetector(env, provider.DefaultLocations(), nil)
	assert.Nil(t, d.Detect())

	p := providertest.NewProvider()
	env.Set("gala", p)
	assert.Same(t, p, d.Detect())

	env.Delete("gala")
	assert.Nil(t, d.Detect())
}

func TestDetectSecondary(t *testing.T) {
	t.Parallel()
	metamask := providertest.NewProvider().WithFlag(provider.FlagMetaMask, true)
	galaInjected := providertest.NewProvider().WithFlag(provider.FlagMetaMask, true).WithFlag(provider.FlagGala, true)
	unflagged := providertest.NewProvider()

	tests := []struct {
		name     string
		values   map[string]any
		expected provider.Provider
	}{
		{"metamask only", map[string]any{"ethereum": metamask}, metamask},
		{"gala flags the generic provider", map[string]any{"ethereum": galaInjected}, nil},
		{"primary namespace present", map[string]any{"ethereum": metamask, "gala": providertest.NewProvider()}, nil},
		{"not metamask", map[string]any{"ethereum": unflagged}, nil},
		{"panicking flags", map[string]any{"ethereum": providertest.Panicky{}}, nil},
		{"nothing injected", map[string]any{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := newDetector(tt.values)
			got := d.DetectSecondary()
			if tt.expected == nil {
				assert.Nil(t, got)
				assert.False(t, d.Installed(provider.WalletSecondary))
				return
			}
			assert.Same(t, tt.expected, got)
			assert.True(t, d.Installed(provider.WalletSecondary))
		})
	}
}

func TestDetectFor(t *testing.T) {
	t.Parallel()
	gala := providertest.NewProvider()
	d := newDetector(map[string]any{"gala": gala})

	assert.Same(t, gala, d.DetectFor(provider.WalletPrimary))
	assert.Nil(t, d.DetectFor(provider.WalletSecondary))
	assert.Nil(t, d.DetectFor(provider.WalletType("phantom")))
	assert.True(t, d.Installed(provider.WalletPrimary))
}
