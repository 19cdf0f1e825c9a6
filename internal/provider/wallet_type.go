package provider

import (
	"strings"

	"github.com/agnivade/levenshtein"

	linkerr "github.com/arcano/walletlink/pkg/errors"
)

// WalletType selects a logical wallet slot.
type WalletType string

// Wallet types.
const (
	WalletPrimary   WalletType = "primary"
	WalletSecondary WalletType = "secondary"
)

// walletAliases maps accepted spellings, including product names used by the
// selection dialog, to wallet types.
//
//nolint:gochecknoglobals // Read-only lookup table
var walletAliases = map[string]WalletType{
	"primary":   WalletPrimary,
	"gala":      WalletPrimary,
	"galachain": WalletPrimary,
	"secondary": WalletSecondary,
	"metamask":  WalletSecondary,
}

// maxSuggestionDistance bounds how far a typo may be from a known name.
const maxSuggestionDistance = 3

// Valid reports whether t is a recognized wallet type.
func (t WalletType) Valid() bool {
	return t == WalletPrimary || t == WalletSecondary
}

// String returns the wallet type name.
func (t WalletType) String() string {
	return string(t)
}

// ParseWalletType resolves a user-supplied wallet name.
// Unknown names fail with InvalidWalletType and a "did you mean" suggestion.
func ParseWalletType(s string) (WalletType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if t, ok := walletAliases[name]; ok {
		return t, nil
	}

	err := linkerr.WithDetails(linkerr.ErrInvalidWalletType, map[string]string{"type": s})
	if suggestion := closestWalletName(name); suggestion != "" {
		err = linkerr.WithSuggestion(err, "Did you mean '"+suggestion+"'?")
	} else {
		err = linkerr.WithSuggestion(err, "Use 'primary' or 'secondary'")
	}
	return "", err
}

func closestWalletName(name string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, candidate := range []string{"primary", "secondary", "gala", "metamask"} {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
