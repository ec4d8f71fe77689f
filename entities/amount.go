package entities

import (
	"fmt"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"strings"
)

const AmountDecimals = 9

var atomicUnit = uint256.NewInt(1_000_000_000)

func ParseAmount(s string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing amount [%s]", s)
	}
	return amount, nil
}

// FormatAmount renders atomic units as a decimal coin value without trailing zeros.
func FormatAmount(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	whole, frac := new(uint256.Int).DivMod(amount, atomicUnit, new(uint256.Int))
	if frac.IsZero() {
		return whole.Dec()
	}
	fraction := strings.TrimRight(fmt.Sprintf("%0*d", AmountDecimals, frac.Uint64()), "0")
	return whole.Dec() + "." + fraction
}
