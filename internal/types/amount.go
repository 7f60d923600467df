package types

import (
	"fmt"
	"math/big"
	"strings"
)

// RBTC carries 18 decimal places, same as ETH.
const rbtcDecimals = 18

var weiPerRBTC = new(big.Int).Exp(big.NewInt(10), big.NewInt(rbtcDecimals), nil)

// ParseRBTC converts a decimal RBTC string ("0.00000625") into wei.
// Amounts are handled as smallest-unit integers internally; decimal
// strings appear only at the configuration and display boundaries.
func ParseRBTC(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount: %s", s)
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > rbtcDecimals {
		return nil, fmt.Errorf("amount %s has more than %d fraction digits", s, rbtcDecimals)
	}
	if whole == "" {
		whole = "0"
	}
	// Right-pad the fraction to 18 digits so whole+frac is the wei value.
	frac += strings.Repeat("0", rbtcDecimals-len(frac))

	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	return wei, nil
}

// FormatRBTC renders a wei amount as a decimal RBTC string with 8 fraction
// digits, the precision used in user-facing notifications.
func FormatRBTC(wei *big.Int) string {
	if wei == nil {
		return "0.00000000"
	}
	whole := new(big.Int)
	rem := new(big.Int)
	whole.QuoRem(wei, weiPerRBTC, rem)

	// Truncate the remainder to 8 digits.
	frac := fmt.Sprintf("%018s", rem.String())
	return fmt.Sprintf("%s.%s", whole.String(), frac[:8])
}
