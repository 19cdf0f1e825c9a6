package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcano/walletlink/internal/config"
)

// jsonrpcNode is a scripted JSON-RPC endpoint standing in for a wallet.
type jsonrpcNode struct {
	mu       sync.Mutex
	accounts []string
	chainID  string
	balance  *big.Int
	reject   bool
	methods  []string
}

func (n *jsonrpcNode) setAccounts(accounts ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts = accounts
}

func (n *jsonrpcNode) setBalance(v *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balance = v
}

func (n *jsonrpcNode) calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, m := range n.methods {
		if m == method {
			count++
		}
	}
	return count
}

func (n *jsonrpcNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64 `json:"id"`
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.methods = append(n.methods, req.Method)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_requestAccounts":
		if n.reject {
			resp["error"] = map[string]any{"code": 4001, "message": "User denied account authorization"}
		} else {
			resp["result"] = append([]string{}, n.accounts...)
		}
	case "eth_accounts":
		resp["result"] = append([]string{}, n.accounts...)
	case "eth_chainId":
		resp["result"] = n.chainID
	case "eth_call":
		balance := n.balance
		if balance == nil {
			balance = new(big.Int)
		}
		resp["result"] = fmt.Sprintf("0x%064x", balance)
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	n.mu.Unlock()

	_ = json.NewEncoder(w).Encode(resp)
}

func startNode(t *testing.T, n *jsonrpcNode) string {
	t.Helper()
	server := httptest.NewServer(n)
	t.Cleanup(server.Close)
	return server.URL
}

// writeConfig saves a test configuration under a fresh home and returns it.
func writeConfig(t *testing.T, providers ...config.ProviderConfig) string {
	t.Helper()
	home := t.TempDir()
	c := config.Defaults()
	c.Home = home
	c.Session.InjectionDelay = 0
	c.Logging.Level = "off"
	c.Logging.File = ""
	c.Output.DefaultFormat = "json"
	c.Providers = providers
	require.NoError(t, config.Save(c, config.Path(home)))
	return home
}

func statePath(home string) string {
	return filepath.Join(home, "state.json")
}

// runCLI executes the root command with args against home and returns what
// was written to stdout and stderr. NOT parallel-safe: it swaps package globals.
func runCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	restore := saveGlobals(t)
	defer restore()

	var out, errOut bytes.Buffer
	stdout, stderr = &out, &errOut
	homeDir, outputFormat, verbose = "", "auto", false
	connectType, configForce, watchConnect = "", false, false
	watchFor, watchInterval = 0, watchIntervalDefault

	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	err := Execute(BuildInfo{Version: "v0.0.0-test", Commit: "abc1234", Date: "2026-10-19"})
	return out.String(), errOut.String(), err
}

// saveGlobals saves all package-level globals and returns a restore function.
func saveGlobals(t *testing.T) func() {
	t.Helper()
	origCfg, origLogger, origFormatter, origCmdCtx := cfg, logger, formatter, cmdCtx
	origHomeDir, origOutputFormat, origVerbose := homeDir, outputFormat, verbose
	origStdout, origStderr, origBuild := stdout, stderr, buildInfo
	return func() {
		cfg, logger, formatter, cmdCtx = origCfg, origLogger, origFormatter, origCmdCtx
		homeDir, outputFormat, verbose = origHomeDir, origOutputFormat, origVerbose
		stdout, stderr, buildInfo = origStdout, origStderr, origBuild
	}
}

func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}
