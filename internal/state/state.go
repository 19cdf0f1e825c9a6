// Package state is the authoritative record of the primary wallet connection.
// It is mutated only through the transitions below and broadcasts a snapshot
// to observers whenever the value actually changes.
package state

import (
	"slices"
	"sync"

	"github.com/arcano/walletlink/internal/storage"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// Status is the connection lifecycle phase.
type Status string

// Status values.
const (
	Disconnected Status = "disconnected"
	Connecting   Status = "connecting"
	Connected    Status = "connected"
)

// ConnectionState is a value snapshot. Status is Connected iff Account is set.
type ConnectionState struct {
	Account   string       `json:"account,omitempty"`
	ChainID   string       `json:"chain_id,omitempty"`
	Status    Status       `json:"status"`
	LastError linkerr.Kind `json:"last_error,omitempty"`
}

// Observer receives each distinct state.
type Observer func(ConnectionState)

// Logger is the subset of config.Logger the store needs.
type Logger interface {
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}

// Store holds the ConnectionState and its persisted account.
type Store struct {
	emitMu sync.Mutex // orders broadcasts
	mu     sync.RWMutex
	cur    ConnectionState

	kv     storage.KV
	key    string
	logger Logger

	nextID    uint64
	observers []subscriber // in subscription order
}

type subscriber struct {
	id uint64
	fn Observer
}

// NewStore creates a Disconnected store persisting the account under key.
// A nil kv disables persistence.
func NewStore(kv storage.KV, key string, logger Logger) *Store {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Store{
		cur:    ConnectionState{Status: Disconnected},
		kv:     kv,
		key:    key,
		logger: logger,
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Subscribe registers fn and returns a function that removes it.
// Observers run synchronously, in subscription order, and must not mutate
// the store.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.observers = slices.DeleteFunc(s.observers, func(sub subscriber) bool { return sub.id == id })
			s.mu.Unlock()
		})
	}
}

// PersistedAccount returns the last-connected account from durable storage.
// It informs display only and never authorizes a session.
func (s *Store) PersistedAccount() (string, bool) {
	if s.kv == nil {
		return "", false
	}
	v, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Error("state: reading persisted account: %v", err)
		return "", false
	}
	return v, ok && v != ""
}

// BeginConnect enters Connecting, dropping any previous account and error.
func (s *Store) BeginConnect() {
	s.apply(func(c *ConnectionState) {
		c.Status = Connecting
		c.Account = ""
		c.LastError = linkerr.KindNone
	}, nil)
}

// Connect enters Connected with account and persists it.
// An empty account is treated as a disconnect.
func (s *Store) Connect(account string) {
	if account == "" {
		s.Disconnect(linkerr.KindNone)
		return
	}
	s.apply(func(c *ConnectionState) {
		c.Status = Connected
		c.Account = account
		c.LastError = linkerr.KindNone
	}, func() { s.persist(account) })
}

// SetAccount applies an account-changed event: the first account wins,
// an empty list disconnects.
func (s *Store) SetAccount(accounts []string) {
	if len(accounts) == 0 || accounts[0] == "" {
		s.Disconnect(linkerr.KindNone)
		return
	}
	s.Connect(accounts[0])
}

// SetChain records the normalized chain id.
func (s *Store) SetChain(chainID string) {
	s.apply(func(c *ConnectionState) { c.ChainID = chainID }, nil)
}

// Disconnect enters Disconnected with the given error kind and removes the
// persisted account. The removal runs even when the state is unchanged.
func (s *Store) Disconnect(kind linkerr.Kind) {
	s.apply(func(c *ConnectionState) {
		c.Status = Disconnected
		c.Account = ""
		c.ChainID = ""
		c.LastError = kind
	}, s.forget)
}

// apply mutates the state, runs the persistence hook synchronously, then
// broadcasts if the value changed.
func (s *Store) apply(mutate func(*ConnectionState), persist func()) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	next := s.cur
	mutate(&next)
	changed := next != s.cur
	s.cur = next
	observers := make([]Observer, len(s.observers))
	for i, sub := range s.observers {
		observers[i] = sub.fn
	}
	s.mu.Unlock()

	if persist != nil {
		persist()
	}
	if !changed {
		return
	}
	for _, fn := range observers {
		fn(next)
	}
}

func (s *Store) persist(account string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(s.key, account); err != nil {
		s.logger.Error("state: persisting account: %v", err)
	}
}

func (s *Store) forget() {
	if s.kv == nil {
		return
	}
	if err := s.kv.Remove(s.key); err != nil {
		s.logger.Error("state: removing persisted account: %v", err)
	}
}
