package cli

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcano/walletlink/internal/advisory"
	"github.com/arcano/walletlink/internal/config"
	"github.com/arcano/walletlink/internal/output"
	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/provider/rpc"
	"github.com/arcano/walletlink/internal/session"
	"github.com/arcano/walletlink/internal/state"
	"github.com/arcano/walletlink/internal/storage"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// dismissedKey holds the advisory balance the user last dismissed.
const dismissedKey = "advisory_dismissed_balance"

// rpcTimeout bounds each HTTP round trip to a configured endpoint.
const rpcTimeout = 30 * time.Second

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands. The persisted store and
// everything built on it are opened on first use.
type CommandContext struct {
	Cfg *config.Config
	Log *config.Logger
	Fmt *output.Formatter

	mu        sync.Mutex
	env       *provider.StaticEnvironment
	endpoints []*rpc.Provider
	detector  *provider.Detector
	kv        storage.KV
	store     *state.Store
	session   *session.Session
	monitor   *advisory.Monitor
	envErr    error
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(c *config.Config, log *config.Logger, f *output.Formatter) *CommandContext {
	return &CommandContext{Cfg: c, Log: log, Fmt: f}
}

// WithKV sets the persisted store instead of opening the state file.
func (c *CommandContext) WithKV(kv storage.KV) *CommandContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv = kv
	return c
}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	cmd.SetContext(contextWithValue(cmd, cmdContextKey{}, cc))
}

func contextWithValue(cmd *cobra.Command, key, val any) context.Context {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithValue(base, key, val)
}

// GetCmdContext returns the CommandContext attached to cmd, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// Environment returns the provider environment built from configuration.
func (c *CommandContext) Environment() (*provider.StaticEnvironment, []*rpc.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initEnvironmentLocked(); err != nil {
		return nil, nil, err
	}
	return c.env, c.endpoints, nil
}

// Detector returns the provider detector.
func (c *CommandContext) Detector() (*provider.Detector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initEnvironmentLocked(); err != nil {
		return nil, err
	}
	return c.detector, nil
}

// Session returns the connection session, opening persisted state on first use.
func (c *CommandContext) Session() (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initSessionLocked(); err != nil {
		return nil, err
	}
	return c.session, nil
}

// Advisory returns the bridge-balance monitor seeded with the persisted
// dismissal.
func (c *CommandContext) Advisory() (*advisory.Monitor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monitor != nil {
		return c.monitor, nil
	}
	if err := c.initEnvironmentLocked(); err != nil {
		return nil, err
	}
	if err := c.openKVLocked(); err != nil {
		return nil, err
	}

	a := c.Cfg.Advisory
	c.monitor = advisory.NewMonitor(c.detector, nil, c.logger(), advisory.Options{
		TokenContract: a.TokenContract,
		TokenSymbol:   a.TokenSymbol,
		BridgeURL:     a.BridgeURL,
	})
	if raw, ok, err := c.kv.Get(dismissedKey); err == nil && ok {
		if v, parsed := new(big.Int).SetString(raw, 10); parsed {
			c.monitor.RestoreDismissed(v)
		}
	}
	return c.monitor, nil
}

// SaveDismissed persists the monitor's dismissed balance.
func (c *CommandContext) SaveDismissed(m *advisory.Monitor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.openKVLocked(); err != nil {
		return err
	}
	if d := m.Dismissed(); d != nil {
		return c.kv.Set(dismissedKey, d.String())
	}
	return c.kv.Remove(dismissedKey)
}

// Close releases the session and the advisory listeners. Persisted state is
// left as is.
func (c *CommandContext) Close() {
	c.mu.Lock()
	sess, monitor := c.session, c.monitor
	c.mu.Unlock()
	if sess != nil {
		sess.Close()
	}
	if monitor != nil {
		monitor.Close()
	}
}

func (c *CommandContext) config() *config.Config {
	if c.Cfg == nil {
		c.Cfg = config.Defaults()
	}
	return c.Cfg
}

func (c *CommandContext) printer() *output.Formatter {
	if c.Fmt == nil {
		c.Fmt = output.NewFormatter(output.FormatText, stdout)
	}
	return c.Fmt
}

func (c *CommandContext) logger() *config.Logger {
	if c.Log == nil {
		c.Log = config.NullLogger()
	}
	return c.Log
}

func (c *CommandContext) initEnvironmentLocked() error {
	if c.detector != nil || c.envErr != nil {
		return c.envErr
	}
	cf := c.config()
	env, endpoints, err := buildEnvironment(cf, &http.Client{Timeout: rpcTimeout})
	if err != nil {
		c.envErr = err
		return err
	}
	c.env = env
	c.endpoints = endpoints
	c.detector = provider.NewDetector(env, locations(cf.Detector), c.logger())
	return nil
}

func (c *CommandContext) openKVLocked() error {
	if c.kv != nil {
		return nil
	}
	cf := c.config()
	fs, err := storage.OpenFileStore(cf.StatePath(), cf.Storage.Passphrase)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrCorruptStore) && fs != nil:
		output.Warn(stderr, "state file was corrupted and has been reset: %v", err)
	default:
		return linkerr.WithSuggestion(err,
			"Set "+config.EnvStoragePassphrase+" if the state file is encrypted, or remove "+cf.StatePath())
	}
	c.kv = fs
	return nil
}

func (c *CommandContext) initSessionLocked() error {
	if c.session != nil {
		return nil
	}
	if err := c.initEnvironmentLocked(); err != nil {
		return err
	}
	if err := c.openKVLocked(); err != nil {
		return err
	}
	cf := c.config()
	c.store = state.NewStore(c.kv, cf.Session.StorageKey, c.logger())
	c.session = session.New(c.detector, nil, c.store, c.logger(), session.Options{
		InjectionDelay: cf.Session.InjectionDelay,
		ConnectTimeout: cf.Session.ConnectTimeout,
	})
	return nil
}
