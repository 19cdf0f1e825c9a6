package provider

import (
	"sort"
	"strings"
)

// Marker flags set by wallet extensions on the generic provider.
const (
	FlagMetaMask = "isMetaMask"
	FlagGala     = "isGala"
)

// Locations names the well-known globals searched by the Detector, in order.
type Locations struct {
	Primary   string // chain-specific wallet namespace
	Generic   string // conventional injected provider
	Legacy    string // web3-style object carrying currentProvider
	Registry  string // multi-provider registry
	ChainName string // weights heuristic candidates
	Heuristic bool   // enables the last-resort scan
}

// DefaultLocations returns the GalaChain browser locations.
func DefaultLocations() Locations {
	return Locations{
		Primary:   "gala",
		Generic:   "ethereum",
		Legacy:    "web3",
		Registry:  "providers",
		ChainName: "gala",
		Heuristic: true,
	}
}

// Logger is the subset of config.Logger the detector needs.
type Logger interface {
	Debug(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// Detector finds the ambient provider. It has no side effects besides logging.
type Detector struct {
	env    Environment
	loc    Locations
	logger Logger
}

// NewDetector creates a detector over env. A nil env models a non-browser
// context in which every lookup finds nothing.
func NewDetector(env Environment, loc Locations, logger Logger) *Detector {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Detector{env: env, loc: loc, logger: logger}
}

// Detect returns the first usable provider in search order, or nil.
func (d *Detector) Detect() Provider {
	if d.env == nil || isNil(d.env) {
		return nil
	}

	if p := d.usableAt(d.loc.Primary); p != nil {
		d.logger.Debug("detector: using primary namespace %q", d.loc.Primary)
		return p
	}
	if p := d.usableAt(d.loc.Generic); p != nil {
		d.logger.Debug("detector: using generic provider %q", d.loc.Generic)
		return p
	}
	if p := d.legacy(); p != nil {
		d.logger.Debug("detector: using %s.currentProvider", d.loc.Legacy)
		return p
	}
	if p := d.fromRegistry(); p != nil {
		d.logger.Debug("detector: using entry of registry %q", d.loc.Registry)
		return p
	}
	if d.loc.Heuristic {
		if name, p := d.scan(); p != nil {
			d.logger.Debug("detector: heuristic match on global %q", name)
			return p
		}
	}

	d.logger.Debug("detector: no provider found")
	return nil
}

// DetectSecondary returns the generic provider only when it is a MetaMask-style
// wallet distinct from the primary wallet: it must flag isMetaMask, must not
// flag isGala, and the primary namespace must be absent.
func (d *Detector) DetectSecondary() Provider {
	if d.env == nil || isNil(d.env) {
		return nil
	}

	if v, ok := d.lookup(d.loc.Primary); ok && !isNil(v) {
		return nil
	}

	p := d.usableAt(d.loc.Generic)
	if p == nil {
		return nil
	}
	if !HasFlag(p, FlagMetaMask) || HasFlag(p, FlagGala) {
		return nil
	}
	return p
}

// DetectFor resolves the provider for a wallet type.
func (d *Detector) DetectFor(t WalletType) Provider {
	switch t {
	case WalletPrimary:
		return d.Detect()
	case WalletSecondary:
		return d.DetectSecondary()
	default:
		return nil
	}
}

// Installed reports whether the wallet type is available for selection.
func (d *Detector) Installed(t WalletType) bool {
	return d.DetectFor(t) != nil
}

func (d *Detector) lookup(name string) (v any, ok bool) {
	if name == "" {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	return d.env.Lookup(name)
}

func (d *Detector) usableAt(name string) Provider {
	v, ok := d.lookup(name)
	if !ok || Probe(v) == Unusable {
		return nil
	}
	return v
}

func (d *Detector) legacy() (p Provider) {
	v, ok := d.lookup(d.loc.Legacy)
	if !ok || isNil(v) {
		return nil
	}
	holder, ok := v.(CurrentProviderHolder)
	if !ok {
		return nil
	}
	defer func() {
		if recover() != nil {
			p = nil
		}
	}()
	current := holder.CurrentProvider()
	if Probe(current) == Unusable {
		return nil
	}
	return current
}

func (d *Detector) fromRegistry() Provider {
	v, ok := d.lookup(d.loc.Registry)
	if !ok || isNil(v) {
		return nil
	}

	for _, entry := range registryEntries(v) {
		if p := entryProvider(entry); p != nil {
			return p
		}
	}
	return nil
}

func registryEntries(v any) (entries []any) {
	defer func() {
		if recover() != nil {
			entries = nil
		}
	}()

	switch r := v.(type) {
	case Registry:
		return r.Entries()
	case []any:
		return r
	default:
		return nil
	}
}

// entryProvider returns the provider an entry exposes, skipping entries whose
// inspection panics.
func entryProvider(entry any) (p Provider) {
	defer func() {
		if recover() != nil {
			p = nil
		}
	}()

	if isNil(entry) {
		return nil
	}
	if holder, ok := entry.(ProviderHolder); ok {
		if inner := holder.Provider(); Probe(inner) != Unusable {
			return inner
		}
	}
	if Probe(entry) != Unusable {
		return entry
	}
	return nil
}

type candidate struct {
	name  string
	value Provider
	score int
}

// scan looks at every global for an object exposing (request|enable) and on.
// Names mentioning "wallet" or the chain name rank higher; ties keep name order.
func (d *Detector) scan() (string, Provider) {
	bindings := d.bindings()
	sort.SliceStable(bindings, func(i, j int) bool { return bindings[i].Name < bindings[j].Name })

	known := map[string]bool{
		d.loc.Primary:  true,
		d.loc.Generic:  true,
		d.loc.Legacy:   true,
		d.loc.Registry: true,
	}

	var best *candidate
	for _, b := range bindings {
		if known[b.Name] {
			continue
		}
		if Probe(b.Value) == Unusable || !safeHasEvents(b.Value) {
			continue
		}

		c := candidate{name: b.Name, value: b.Value, score: heuristicScore(b.Name, d.loc.ChainName)}
		if best == nil || c.score > best.score {
			best = &c
		}
	}

	if best == nil {
		return "", nil
	}
	return best.name, best.value
}

func (d *Detector) bindings() (out []Binding) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return d.env.Bindings()
}

func heuristicScore(name, chainName string) int {
	lower := strings.ToLower(name)
	score := 1
	if strings.Contains(lower, "wallet") {
		score += 2
	}
	if chainName != "" && strings.Contains(lower, strings.ToLower(chainName)) {
		score += 2
	}
	return score
}

func safeHasEvents(p Provider) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return HasEvents(p)
}
