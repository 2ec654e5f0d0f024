// Package convert implements the conversion calculator: the derived target
// amount shown while the user types a source amount.
//
// Every function here is pure and safe to call on every keystroke. Rates are
// USD unit prices; amounts are the decimal strings the user typed.
//
// Rounding: results are rounded to Scale fractional digits with round-half-up
// (shopspring Round rounds half away from zero and amounts are never
// negative), then trailing zeros and a trailing point are stripped.
package convert

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept in a converted amount.
const Scale int32 = 6

var (
	// ErrInvalidRate is returned when a rate is zero or negative.
	ErrInvalidRate = errors.New("convert: rate must be positive")

	// inputRegex accepts digits with at most one decimal point, including
	// partial edits such as "", "12." and ".5". No sign, exponent or
	// thousands separators.
	inputRegex = regexp.MustCompile(`^\d*\.?\d*$`)
)

// ValidInput reports whether s is an acceptable edit of an amount field.
func ValidInput(s string) bool {
	return inputRegex.MatchString(s)
}

// Parse parses an amount field. ok is false for empty, partial ("." alone)
// or invalid input.
func Parse(amount string) (value decimal.Decimal, ok bool) {
	if amount == "" || !ValidInput(amount) {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// Convert computes amount × rateFrom / rateTo as a display string.
//
// An empty or unparseable amount yields "" (no value), which is distinct from
// "0" (a typed zero). Non-positive rates also yield "".
func Convert(amount string, rateFrom, rateTo decimal.Decimal) string {
	v, ok := Parse(amount)
	if !ok || !rateFrom.IsPositive() || !rateTo.IsPositive() {
		return ""
	}
	return Format(v.Mul(rateFrom).Div(rateTo))
}

// Format renders v rounded to Scale digits with trailing zeros stripped:
// 1.500000 → "1.5", 2.000000 → "2".
func Format(v decimal.Decimal) string {
	s := v.StringFixed(Scale)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// Rate returns how many units of the target one unit of the source buys.
func Rate(rateFrom, rateTo decimal.Decimal) (decimal.Decimal, error) {
	if !rateFrom.IsPositive() || !rateTo.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return rateFrom.Div(rateTo), nil
}

// USDValue is the "≈ $" value of an amount field. Empty or partial input
// counts as zero.
func USDValue(amount string, rate decimal.Decimal) decimal.Decimal {
	v, ok := Parse(amount)
	if !ok {
		return decimal.Zero
	}
	return v.Mul(rate)
}

// Positive reports whether an amount field holds a number greater than zero.
func Positive(amount string) bool {
	v, ok := Parse(amount)
	return ok && v.IsPositive()
}

// Fixed renders an amount field with exactly places fractional digits, as
// the trade history does. Unparseable input renders as zero.
func Fixed(amount string, places int32) string {
	v, _ := Parse(amount)
	return v.StringFixed(places)
}
