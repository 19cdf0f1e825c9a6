// Package erc20 performs read-only ERC-20 queries through a provider's eth_call.
package erc20

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/arcano/walletlink/internal/provider"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

const balanceOfABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

//nolint:gochecknoglobals // parsed once, read-only
var tokenABI = mustParseABI(balanceOfABIJSON)

// ErrEmptyResult is returned when eth_call yields no data, which usually
// means no contract is deployed at the address on the provider's chain.
var ErrEmptyResult = errors.New("eth_call returned no data")

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("failed to parse ABI: " + err.Error())
	}
	return parsed
}

// callMsg is the eth_call transaction object.
type callMsg struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// BalanceOf returns owner's balance of token in the token's base units.
func BalanceOf(ctx context.Context, p provider.Provider, token, owner string) (*big.Int, error) {
	if !common.IsHexAddress(token) {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"token": token})
	}
	if !common.IsHexAddress(owner) {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidAddress, map[string]string{"owner": owner})
	}

	data, err := tokenABI.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("packing balanceOf: %w", err)
	}

	raw, err := provider.Call(ctx, p, provider.MethodCall, callMsg{
		To:   common.HexToAddress(token).Hex(),
		Data: hexutil.Encode(data),
	}, "latest")
	if err != nil {
		return nil, err
	}

	return decodeBalance(raw)
}

func decodeBalance(raw json.RawMessage) (*big.Int, error) {
	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return nil, fmt.Errorf("parsing eth_call result: %w", err)
	}
	out, err := hexutil.Decode(hexResult)
	if err != nil {
		return nil, fmt.Errorf("decoding eth_call result: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}

	values, err := tokenABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpacking balanceOf: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrEmptyResult
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: expected *big.Int, got %T", values[0]) //nolint:err113 // shape mismatch is a programming fault
	}
	return balance, nil
}
