package session

import (
	"context"
	"errors"
	"strings"

	"github.com/arcano/walletlink/internal/provider"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// codeUserRejected is the EIP-1193 code for a declined request.
const codeUserRejected = 4001

// errSuperseded is the cause when a connect is overtaken by a disconnect.
var errSuperseded = errors.New("session was disconnected while connecting")

// rpcCoder matches errors carrying a JSON-RPC / EIP-1193 error code.
type rpcCoder interface {
	ErrorCode() int
}

// mapConnectError turns a wallet or provider failure into a LinkError kind.
// Errors that already carry a kind pass through.
func mapConnectError(err error) error {
	if err == nil {
		return nil
	}
	if linkerr.KindOf(err) != linkerr.KindNone {
		return err
	}
	if isRejection(err) {
		return linkerr.WithCause(linkerr.ErrUserRejected, err)
	}
	if errors.Is(err, provider.ErrNotRequestCapable) {
		return linkerr.WithCause(linkerr.ErrNoProviderFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return linkerr.WithSuggestion(linkerr.WithCause(linkerr.ErrConnectionFailed, err),
			"The wallet did not answer in time; open the extension and try again")
	}
	return linkerr.WithCause(linkerr.ErrConnectionFailed, err)
}

func isRejection(err error) bool {
	var coder rpcCoder
	if errors.As(err, &coder) && coder.ErrorCode() == codeUserRejected {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rejected")
}
