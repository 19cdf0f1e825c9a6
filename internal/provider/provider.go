// Package provider discovers injected wallet providers and probes their
// capabilities. Providers are opaque objects owned by the host environment;
// this package never constructs one, it only finds them and calls them
// through the narrow capability interfaces below.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// Provider is an injected capability object. Its shape is only known by probing.
type Provider = any

// JSON-RPC methods issued against injected providers.
const (
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
	MethodChainID         = "eth_chainId"
	MethodCall            = "eth_call"
)

// Provider-emitted event names.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventDisconnect      = "disconnect"
)

// RequestArgs is the argument of an EIP-1193 request.
type RequestArgs struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

// Requester is satisfied by providers exposing request({method, params}).
type Requester interface {
	Request(ctx context.Context, args RequestArgs) (json.RawMessage, error)
}

// Enabler is satisfied by legacy providers exposing enable().
type Enabler interface {
	Enable(ctx context.Context) ([]string, error)
}

// Handler receives an event payload. Payloads are as loosely typed as the
// provider that emits them.
type Handler func(payload any)

// ListenerID identifies a registered handler for later removal.
type ListenerID uint64

// EventSource is satisfied by providers exposing on(event, handler).
type EventSource interface {
	On(event string, handler Handler) ListenerID
}

// ListenerRemover is satisfied by providers exposing removeListener(event, handler).
type ListenerRemover interface {
	RemoveListener(event string, id ListenerID)
}

// Flagger exposes boolean marker properties such as isMetaMask or isGala.
type Flagger interface {
	Flag(name string) bool
}

// CurrentProviderHolder is a legacy web3 object carrying currentProvider.
type CurrentProviderHolder interface {
	CurrentProvider() Provider
}

// ProviderHolder is a registry entry wrapping a provider.
type ProviderHolder interface {
	Provider() Provider
}

// Registry lists several simultaneously injected providers.
type Registry interface {
	Entries() []any
}

// Capability is the result of probing a candidate provider.
type Capability int

// Capability values.
const (
	Unusable Capability = iota
	RequestCapable
	EnableOnlyCapable
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case RequestCapable:
		return "request"
	case EnableOnlyCapable:
		return "enable-only"
	default:
		return "unusable"
	}
}

// Probe classifies a candidate. Candidates whose inspection panics are Unusable.
func Probe(p Provider) (capability Capability) {
	defer func() {
		if recover() != nil {
			capability = Unusable
		}
	}()

	if isNil(p) {
		return Unusable
	}
	if _, ok := p.(Requester); ok {
		return RequestCapable
	}
	if _, ok := p.(Enabler); ok {
		return EnableOnlyCapable
	}
	return Unusable
}

// HasEvents reports whether the candidate can deliver change events.
func HasEvents(p Provider) bool {
	if isNil(p) {
		return false
	}
	_, ok := p.(EventSource)
	return ok
}

// HasFlag reads a marker flag, treating a panicking Flag as false.
func HasFlag(p Provider, name string) (set bool) {
	defer func() {
		if recover() != nil {
			set = false
		}
	}()

	f, ok := p.(Flagger)
	if !ok || isNil(p) {
		return false
	}
	return f.Flag(name)
}

// Call issues a request and converts a panic inside the provider into an error.
func Call(ctx context.Context, p Provider, method string, params ...any) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: provider panicked: %v", ErrProviderFault, r)
		}
	}()

	req, ok := p.(Requester)
	if !ok || isNil(p) {
		return nil, ErrNotRequestCapable
	}
	return req.Request(ctx, RequestArgs{Method: method, Params: params})
}

// Accounts performs the read-only eth_accounts query. It never prompts the user.
func Accounts(ctx context.Context, p Provider) ([]string, error) {
	raw, err := Call(ctx, p, MethodAccounts)
	if err != nil {
		return nil, err
	}
	return decodeAccounts(raw)
}

// RequestAccounts asks the user to authorize accounts, dispatching on capability.
func RequestAccounts(ctx context.Context, p Provider) (accounts []string, err error) {
	switch Probe(p) {
	case RequestCapable:
		raw, callErr := Call(ctx, p, MethodRequestAccounts)
		if callErr != nil {
			return nil, callErr
		}
		return decodeAccounts(raw)
	case EnableOnlyCapable:
		defer func() {
			if r := recover(); r != nil {
				accounts, err = nil, fmt.Errorf("%w: provider panicked: %v", ErrProviderFault, r)
			}
		}()
		return p.(Enabler).Enable(ctx)
	default:
		return nil, ErrNotRequestCapable
	}
}

// ChainID queries eth_chainId and normalizes the answer.
func ChainID(ctx context.Context, p Provider) (string, error) {
	raw, err := Call(ctx, p, MethodChainID)
	if err != nil {
		return "", err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("parsing chain id: %w", err)
	}
	return NormalizeChainID(v), nil
}

// NormalizeChainID renders a raw chain id payload as a 0x-prefixed hex string.
// Decimal strings and JSON numbers are converted; unknown shapes are stringified.
func NormalizeChainID(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return ""
		}
		if n, err := hexutil.DecodeBig(strings.ToLower(s)); err == nil {
			return hexutil.EncodeBig(n)
		}
		if i, err := strconv.ParseUint(s, 10, 64); err == nil {
			return hexutil.EncodeUint64(i)
		}
		return s
	case float64:
		if v >= 0 && v == float64(uint64(v)) {
			return hexutil.EncodeUint64(uint64(v))
		}
	case int:
		if v >= 0 {
			return hexutil.EncodeUint64(uint64(v))
		}
	case int64:
		if v >= 0 {
			return hexutil.EncodeUint64(uint64(v))
		}
	case uint64:
		return hexutil.EncodeUint64(v)
	case json.Number:
		return NormalizeChainID(v.String())
	}
	return fmt.Sprint(raw)
}

// AccountsFromPayload extracts an account list from an event payload.
// A single string is treated as a one-element list.
func AccountsFromPayload(payload any) []string {
	switch v := payload.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func decodeAccounts(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("parsing accounts: %w", err)
	}
	return accounts, nil
}

// Provider faults are ordinary errors; callers map them to error kinds.
var (
	ErrNotRequestCapable = linkerr.New("PROVIDER_NOT_REQUEST_CAPABLE", "provider cannot serve requests")
	ErrProviderFault     = linkerr.New("PROVIDER_FAULT", "provider fault")
)
