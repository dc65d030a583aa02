// Package core provides money parsing and handling utilities.
//
// Amounts are stored exactly as the user typed them. Calculations go through
// Decimal, which never fails: anything that is not a number counts as zero.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is the user-entered text of a monetary value.
type Amount string

// Decimal parses the amount for calculations.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, a leading
// currency symbol and surrounding whitespace. Unparseable text yields zero.
//
// Examples:
//
//	Amount("12.34").Decimal()  -> 12.34
//	Amount("€ 12,5").Decimal() -> 12.5
//	Amount("abc").Decimal()    -> 0
func (a Amount) Decimal() decimal.Decimal {
	return ParseAmount(string(a))
}

// ParseAmount converts free text to a decimal, coercing failures to zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "€$£ ")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero
	}
	// Normalize decimal comma to dot, unless a dot is already present
	// (then the comma is a thousands separator).
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else if strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() || !inFloatRange(d) {
		return decimal.Zero
	}
	return d
}

// inFloatRange reports whether d has a magnitude a float64 can hold.
// Anything larger or smaller counts as zero.
func inFloatRange(d decimal.Decimal) bool {
	mag := int64(d.Exponent()) + int64(d.NumDigits())
	return mag >= minAmountMagnitude && mag <= maxAmountMagnitude
}

const (
	maxAmountMagnitude = 309
	minAmountMagnitude = -323
)

// FormatAmount renders a decimal with two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
