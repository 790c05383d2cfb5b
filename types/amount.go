package types

import (
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Amount is a fixed-point integer quantity in the smallest unit of the
// payment token (or of the reference currency for converted values).
// All arithmetic is integer-only.
//
// Amounts are signed: subscriber balances may go below zero when a
// subscriber is slashed late. Rates and provider fees never do.
type Amount = sdkmath.Int

// Zero returns a zero Amount.
func Zero() Amount { return sdkmath.ZeroInt() }

// Units creates an Amount from an int64 count of smallest units.
func Units(n int64) Amount { return sdkmath.NewInt(n) }

// Pow10 returns 10^decimals as an Amount.
func Pow10(decimals uint32) Amount {
	v := sdkmath.OneInt()
	ten := sdkmath.NewInt(10)
	for i := uint32(0); i < decimals; i++ {
		v = v.Mul(ten)
	}
	return v
}

// Whole creates an Amount of n whole tokens with the given decimals.
func Whole(n int64, decimals uint32) Amount {
	return sdkmath.NewInt(n).Mul(Pow10(decimals))
}

// ParseAmount parses a base-10 integer string.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero(), nil
	}
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return Zero(), fmt.Errorf("types: invalid amount %q", s)
	}
	return v, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// OrZero returns a, or zero when a was never initialized.
// Zero-valued sdkmath.Int panics on arithmetic.
func OrZero(a Amount) Amount {
	if a.IsNil() {
		return Zero()
	}
	return a
}

// Positive returns a when it is above zero, otherwise zero.
func Positive(a Amount) Amount {
	if a.IsPositive() {
		return a
	}
	return Zero()
}

// FormatUnits renders a in major units with the given number of decimals.
// For 18 decimals: "1.500000000000000000" for 15e17.
func FormatUnits(a Amount, decimals uint32) string {
	a = OrZero(a)
	if decimals == 0 {
		return a.String()
	}

	isNegative := a.IsNegative()
	abs := a.Abs()

	divisor := Pow10(decimals)
	major := abs.Quo(divisor)
	minor := abs.Mod(divisor)

	frac := minor.String()
	if pad := int(decimals) - len(frac); pad > 0 {
		frac = strings.Repeat("0", pad) + frac
	}

	result := major.String() + "." + frac
	if isNegative {
		return "-" + result
	}
	return result
}
