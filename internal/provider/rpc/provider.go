// Package rpc exposes a JSON-RPC 2.0 HTTP endpoint as a provider. It lets
// the command-line tool drive the same detector and session as a browser
// host, with the node or wallet bridge standing in for an injected object.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcano/walletlink/internal/metrics"
	"github.com/arcano/walletlink/internal/provider"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

var (
	// ErrRPCRequest indicates the HTTP exchange failed.
	ErrRPCRequest = &linkerr.LinkError{
		Code:     "RPC_REQUEST_FAILED",
		Message:  "RPC request failed",
		ExitCode: linkerr.ExitGeneral,
	}

	// ErrRPCResponse indicates the endpoint answered with something other
	// than a JSON-RPC response.
	ErrRPCResponse = &linkerr.LinkError{
		Code:     "RPC_INVALID_RESPONSE",
		Message:  "invalid RPC response",
		ExitCode: linkerr.ExitGeneral,
	}
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Error is a JSON-RPC error object. Wallet bridges use EIP-1193 codes,
// so 4001 means the user rejected the request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the JSON-RPC error code.
func (e *Error) ErrorCode() int {
	return e.Code
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Options configures a Provider.
type Options struct {
	Name       string
	URL        string
	Flags      map[string]bool
	HTTPClient *http.Client
	Limiter    *RateLimiter
	Retry      RetryConfig
	Metrics    *metrics.Metrics // defaults to metrics.Global
}

// Provider is a request-capable, event-emitting provider backed by HTTP.
// HTTP has no push channel, so events are produced by Poll.
type Provider struct {
	name    string
	url     string
	flags   map[string]bool
	http    *http.Client
	limiter *RateLimiter
	retry   RetryConfig
	metrics *metrics.Metrics
	ids     atomic.Uint64

	mu        sync.Mutex
	listeners map[string]map[provider.ListenerID]provider.Handler
	nextID    provider.ListenerID
	accounts  []string
	chainID   string
	polled    bool
}

var (
	_ provider.Requester       = (*Provider)(nil)
	_ provider.EventSource     = (*Provider)(nil)
	_ provider.ListenerRemover = (*Provider)(nil)
	_ provider.Flagger         = (*Provider)(nil)
)

// New creates a provider for the endpoint in opts.
func New(opts Options) *Provider {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = DefaultRateLimiter()
	}
	retryCfg := opts.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = DefaultRetryConfig()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Global
	}
	flags := make(map[string]bool, len(opts.Flags))
	for k, v := range opts.Flags {
		flags[k] = v
	}
	return &Provider{
		name:      opts.Name,
		url:       opts.URL,
		flags:     flags,
		http:      httpClient,
		limiter:   limiter,
		retry:     retryCfg,
		metrics:   m,
		listeners: make(map[string]map[provider.ListenerID]provider.Handler),
	}
}

// Name returns the configured provider name.
func (p *Provider) Name() string { return p.name }

// URL returns the endpoint URL.
func (p *Provider) URL() string { return p.url }

// Flag implements provider.Flagger from configuration.
func (p *Provider) Flag(name string) bool {
	return p.flags[name]
}

// Request implements provider.Requester. Transient transport failures
// (connection errors, 429, 5xx) are retried with backoff.
func (p *Provider) Request(ctx context.Context, args provider.RequestArgs) (json.RawMessage, error) {
	params := args.Params
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: args.Method, Params: params, ID: p.ids.Add(1)})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	start := time.Now()
	result, err := retry(ctx, p.retry, func() (json.RawMessage, time.Duration, error) {
		if err := p.limiter.Wait(ctx, p.url); err != nil {
			return nil, 0, err
		}
		return p.do(ctx, body)
	})
	p.metrics.RecordRPCCall(time.Since(start), err)
	return result, err
}

func (p *Provider) do(ctx context.Context, body []byte) (json.RawMessage, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, linkerr.WithCause(ErrRPCRequest, fmt.Errorf("creating HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, markRetryable(linkerr.WithCause(ErrRPCRequest, err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, markRetryable(linkerr.WithCause(ErrRPCRequest, fmt.Errorf("reading response body: %w", err)))
	}

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= http.StatusInternalServerError {
		statusErr := linkerr.WithCause(ErrRPCRequest, fmt.Errorf("HTTP %d", httpResp.StatusCode)) //nolint:err113 // status carried in message
		return nil, parseRetryAfter(httpResp.Header.Get("Retry-After")), markRetryable(statusErr)
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, 0, linkerr.WithCause(ErrRPCResponse, fmt.Errorf("unmarshaling response (HTTP %d): %w", httpResp.StatusCode, err))
	}
	if resp.Error != nil {
		return nil, 0, resp.Error
	}
	return resp.Result, 0, nil
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
	delete(p.listeners[event], id)
}

// Poll queries eth_accounts and eth_chainId and emits accountsChanged or
// chainChanged when either differs from the previous poll. The first poll
// only records a baseline.
func (p *Provider) Poll(ctx context.Context) error {
	accounts, err := provider.Accounts(ctx, p)
	if err != nil {
		return err
	}
	chainID, err := provider.ChainID(ctx, p)
	if err != nil {
		return err
	}
	if accounts == nil {
		accounts = []string{}
	}

	p.mu.Lock()
	first := !p.polled
	accountsChanged := !first && !slices.Equal(p.accounts, accounts)
	chainChanged := !first && p.chainID != chainID
	p.polled = true
	p.accounts = accounts
	p.chainID = chainID
	p.mu.Unlock()

	if accountsChanged {
		p.emit(provider.EventAccountsChanged, slices.Clone(accounts))
	}
	if chainChanged {
		p.emit(provider.EventChainChanged, chainID)
	}
	return nil
}

// Watch polls every interval until ctx is done. Poll errors go to onError.
func (p *Provider) Watch(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil && onError != nil {
			onError(err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Provider) emit(event string, payload any) {
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
