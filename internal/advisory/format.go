package advisory

import (
	"math/big"
	"strings"
)

const (
	tokenDecimals  = 18
	displayDecimal = 4
)

//nolint:gochecknoglobals // read-only
var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)

// FormatBalance renders a base-unit balance in whole tokens: the fraction is
// truncated to four digits and trailing zeros are stripped. Nil, zero and
// negative balances render as "0".
func FormatBalance(balance *big.Int) string {
	if balance == nil || balance.Sign() <= 0 {
		return "0"
	}

	whole, frac := new(big.Int).QuoRem(balance, weiPerToken, new(big.Int))

	fracStr := frac.String()
	fracStr = strings.Repeat("0", tokenDecimals-len(fracStr)) + fracStr
	fracStr = strings.TrimRight(fracStr[:displayDecimal], "0")

	if fracStr == "" {
		return whole.String()
	}
	return whole.String() + "." + fracStr
}

// FormatAddress shortens an address to 0x1234...abcd for display.
func FormatAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
