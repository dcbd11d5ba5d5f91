// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing ledger amounts from sheet cells
// and classifier output, and for rendering them in replies.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a non-negative amount.
//
// Thousands separators and surrounding whitespace are ignored, so both
// "1,200.50" and " 1200.5 " parse. Negative values are rejected.
//
// Examples:
//
//	ParseAmount("500")      -> 500, nil
//	ParseAmount("1,200.50") -> 1200.5, nil
//	ParseAmount("-3")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders whole amounts without decimals and everything else with two.
func FormatAmount(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}
