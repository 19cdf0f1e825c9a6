package erc20

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcano/walletlink/internal/provider"
	"github.com/arcano/walletlink/internal/provider/providertest"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

const (
	token = "0xd1d2Eb1B1e90B638588728b4130137D262C87cae"
	owner = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
)

func word(v *big.Int) string {
	return hexutil.Encode(common.LeftPadBytes(v.Bytes(), 32))
}

func TestBalanceOf(t *testing.T) {
	t.Parallel()
	want, _ := new(big.Int).SetString("1234567890123456789", 10)

	var gotMsg callMsg
	var gotBlock any
	p := providertest.NewProvider()
	p.Handle(provider.MethodCall, func(_ context.Context, params []any) (any, error) {
		require.Len(t, params, 2)
		gotMsg, _ = params[0].(callMsg)
		gotBlock = params[1]
		return word(want), nil
	})

	balance, err := BalanceOf(context.Background(), p, strings.ToLower(token), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, want.Cmp(balance))

	assert.Equal(t, common.HexToAddress(token).Hex(), gotMsg.To)
	assert.True(t, strings.EqualFold(token, gotMsg.To))
	assert.True(t, strings.HasPrefix(gotMsg.Data, "0x70a08231"), "balanceOf selector")
	assert.True(t, strings.HasSuffix(gotMsg.Data, strings.ToLower(owner[2:])), "owner argument")
	assert.Len(t, gotMsg.Data, 2+8+64)
	assert.Equal(t, "latest", gotBlock)
}

func TestBalanceOf_Zero(t *testing.T) {
	t.Parallel()
	p := providertest.NewProvider()
	p.Handle(provider.MethodCall, func(context.Context, []any) (any, error) {
		return word(big.NewInt(0)), nil
	})

	balance, err := BalanceOf(context.Background(), p, token, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, balance.Sign())
}

func TestBalanceOf_Errors(t *testing.T) {
	t.Parallel()
	rpcDown := errors.New("rpc down")

	tests := []struct {
		name     string
		token    string
		owner    string
		result   any
		err      error
		expected error
	}{
		{name: "bad token", token: "gala", owner: owner, expected: linkerr.ErrInvalidAddress},
		{name: "bad owner", token: token, owner: "client|123", expected: linkerr.ErrInvalidAddress},
		{name: "no contract", token: token, owner: owner, result: "0x", expected: ErrEmptyResult},
		{name: "provider error", token: token, owner: owner, err: rpcDown, expected: rpcDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := providertest.NewProvider()
			p.Handle(provider.MethodCall, func(context.Context, []any) (any, error) { return tt.result, tt.err })

			_, err := BalanceOf(context.Background(), p, tt.token, tt.owner)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestBalanceOf_MalformedResults(t *testing.T) {
	t.Parallel()
	for _, result := range []any{42, "nothex", "0x1234"} {
		p := providertest.NewProvider()
		p.Handle(provider.MethodCall, func(context.Context, []any) (any, error) { return result, nil })

		_, err := BalanceOf(context.Background(), p, token, owner)
		assert.Error(t, err, "result %v", result)
	}
}

func TestBalanceOf_UnusableProvider(t *testing.T) {
	t.Parallel()
	_, err := BalanceOf(context.Background(), struct{}{}, token, owner)
	require.ErrorIs(t, err, provider.ErrNotRequestCapable)
}
