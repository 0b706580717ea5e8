// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round2 rounds a monetary value to 2 decimal places (half away from zero).
// All prices, totals, and installment amounts are normalized through this.
func Round2(m Money) Money {
	return m.Round(2)
}

// Cent is the smallest representable currency unit. Installment schedules
// may drift from the invoice total by at most one of these.
var Cent = decimal.New(1, -2)

// WithinOneCent reports whether a and b differ by at most one cent.
func WithinOneCent(a, b Money) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Cent)
}

// Percent returns p/100 as an exact decimal multiplier.
func Percent(p Money) Money {
	return p.Div(decimal.NewFromInt(100))
}
