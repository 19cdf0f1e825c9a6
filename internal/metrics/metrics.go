// Package metrics keeps process-wide counters for endpoint traffic and
// connect outcomes. Counters are atomic and safe for concurrent use.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// Metrics holds the counters.
type Metrics struct {
	rpcCalls        atomic.Int64
	rpcErrors       atomic.Int64
	rpcLatencyNanos atomic.Int64

	mu       sync.Mutex
	connects map[string]int64
}

// Global is the process-wide instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records one JSON-RPC request, retries included in duration.
func (m *Metrics) RecordRPCCall(duration time.Duration, err error) {
	m.rpcCalls.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.rpcErrors.Add(1)
	}
}

// RecordConnect records a connect attempt by outcome. A nil error counts as
// "connected"; errors count under their kind.
func (m *Metrics) RecordConnect(err error) {
	outcome := "connected"
	if err != nil {
		outcome = string(linkerr.KindOf(err))
		if outcome == "" {
			outcome = "other"
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connects == nil {
		m.connects = make(map[string]int64)
	}
	m.connects[outcome]++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	RPCCalls     int64            `json:"rpc_calls"`
	RPCErrors    int64            `json:"rpc_errors"`
	RPCLatencyMs float64          `json:"rpc_latency_avg_ms"`
	Connects     map[string]int64 `json:"connects,omitempty"`
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		RPCCalls:  m.rpcCalls.Load(),
		RPCErrors: m.rpcErrors.Load(),
	}
	if s.RPCCalls > 0 {
		s.RPCLatencyMs = float64(m.rpcLatencyNanos.Load()) / float64(s.RPCCalls) / 1e6
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.connects) > 0 {
		s.Connects = make(map[string]int64, len(m.connects))
		for k, v := range m.connects {
			s.Connects[k] = v
		}
	}
	return s
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.rpcCalls.Store(0)
	m.rpcErrors.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.mu.Lock()
	m.connects = nil
	m.mu.Unlock()
}
