// Package money holds the decimal helpers used for every currency and rate value.
//
// Currency amounts are rounded half-up (away from zero) to two places. Rates and
// intermediate factors are never rounded; division keeps decimal.DivisionPrecision
// digits.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places kept for currency amounts.
const CurrencyPlaces int32 = 2

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// Round applies the currency rounding policy.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Parse reads a decimal from its string form, rejecting blanks.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsPositive reports whether d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// IsCurrency reports whether d is a whole number of cents.
func IsCurrency(d decimal.Decimal) bool {
	return d.Equal(Round(d))
}

// Percent returns d * rate rounded to cents. rate is a fraction (0.05 = 5%).
func Percent(d, rate decimal.Decimal) decimal.Decimal {
	return Round(d.Mul(rate))
}

// Sum adds the amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
