// Package money holds the cent-precision helpers used by cart pricing.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is the number of fractional digits kept for every stored amount.
const Cents = 2

// Round2 rounds to the nearest cent, halves away from zero.
func Round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(Cents)
}

// Format renders x with exactly two fractional digits and no currency symbol.
func Format(x decimal.Decimal) string {
	return x.StringFixed(Cents)
}

// Parse reads a decimal string as written by Format.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// HasCentPrecision reports whether x has no digits beyond the cent.
func HasCentPrecision(x decimal.Decimal) bool {
	return x.Equal(Round2(x))
}
