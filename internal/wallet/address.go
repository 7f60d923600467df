// Package wallet manages recipient addresses: validation, canonicalization,
// and the user-to-address directory.
package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/97woo/tgbot/internal/errors"
)

// ValidateAddress checks that addr is a well-formed 20-byte hex address and,
// when it carries an EIP-55 mixed-case checksum, that the checksum is
// correct. All-lowercase and all-uppercase addresses carry no checksum and
// are accepted on format alone.
func ValidateAddress(addr string) error {
	if !common.IsHexAddress(addr) {
		return errors.NewInvalidAddressError(addr)
	}

	body := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}

	// Mixed case: the casing must match the EIP-55 checksum exactly.
	if addr != common.HexToAddress(addr).Hex() {
		return errors.NewInvalidAddressError(addr)
	}
	return nil
}

// CanonicalAddress validates addr and returns its checksummed form.
func CanonicalAddress(addr string) (common.Address, error) {
	if err := ValidateAddress(addr); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(addr), nil
}
