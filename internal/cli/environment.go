package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/arcano/walletlink/internal/config"
	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/provider/rpc"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// legacyGlobal exposes an endpoint the way web3.currentProvider does.
type legacyGlobal struct {
	current provider.Provider
}

func (l legacyGlobal) CurrentProvider() provider.Provider { return l.current }

// locations maps the detector config block onto provider.Locations.
func locations(c config.DetectorConfig) provider.Locations {
	return provider.Locations{
		Primary:   c.PrimaryKey,
		Generic:   c.GenericKey,
		Legacy:    c.LegacyKey,
		Registry:  c.RegistryKey,
		ChainName: c.ChainName,
		Heuristic: c.Heuristic,
	}
}

type limiterKey struct {
	rate  float64
	burst int
}

// buildEnvironment binds each configured endpoint to its global name.
// Endpoints named after the registry key are collected into one registry
// list; one named after the legacy key is wrapped as a currentProvider holder.
// Endpoints sharing a rate and burst share a limiter.
func buildEnvironment(c *config.Config, client *http.Client) (*provider.StaticEnvironment, []*rpc.Provider, error) {
	env := provider.NewStaticEnvironment(nil)
	limiters := make(map[limiterKey]*rpc.RateLimiter)
	seen := make(map[string]bool)
	var registry []any
	endpoints := make([]*rpc.Provider, 0, len(c.Providers))

	for i, pc := range c.Providers {
		name := strings.TrimSpace(pc.Name)
		url := strings.TrimSpace(pc.RPC)
		if name == "" || url == "" {
			return nil, nil, linkerr.WithDetails(linkerr.ErrConfigInvalid, map[string]string{
				"provider": fmt.Sprintf("#%d", i+1),
				"reason":   "name and rpc are required",
			})
		}
		if seen[name] && name != c.Detector.RegistryKey {
			return nil, nil, linkerr.WithDetails(linkerr.ErrConfigInvalid, map[string]string{
				"provider": name,
				"reason":   "duplicate provider name",
			})
		}
		seen[name] = true

		key := limiterKey{rate: pc.RateLimit, burst: pc.Burst}
		limiter, ok := limiters[key]
		if !ok {
			limiter = rpc.NewRateLimiter(pc.RateLimit, pc.Burst)
			limiters[key] = limiter
		}

		p := rpc.New(rpc.Options{
			Name:       name,
			URL:        url,
			Flags:      pc.Flags,
			HTTPClient: client,
			Limiter:    limiter,
		})
		endpoints = append(endpoints, p)

		switch name {
		case c.Detector.RegistryKey:
			registry = append(registry, p)
		case c.Detector.LegacyKey:
			env.Set(name, legacyGlobal{current: p})
		default:
			env.Set(name, p)
		}
	}
	if len(registry) > 0 {
		env.Set(c.Detector.RegistryKey, registry)
	}
	return env, endpoints, nil
}
