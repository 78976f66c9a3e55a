// Package core provides money parsing and handling utilities.
//
// This file contains the decimal Money type used for transaction amounts and
// summary totals, and the helpers that turn form input into amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money wraps a decimal amount. It travels over the wire as a bare JSON
// number because the API declares amounts as floats.
type Money struct {
	decimal.Decimal
}

// NewMoney builds Money from a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	return NewMoney(decimal.RequireFromString(s))
}

// ParseAmount converts a decimal string typed into the amount field.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// values are rejected to mirror the input's min="0"; zero is accepted.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(b)
}

// Dollars formats the amount with two decimals, e.g. "$12.50" or "-$3.00".
func (m Money) Dollars() string {
	if m.IsNegative() {
		return "-$" + m.Neg().StringFixed(2)
	}
	return "$" + m.StringFixed(2)
}
