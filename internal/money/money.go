// Package money holds the currency helpers shared by pricing and payments.
// Amounts are shopspring decimals so cents never drift through binary floating point.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the currency minor-unit precision.
const Places = 2

// MaxDigits bounds the significant digits of an amount taken from outside input.
const MaxDigits = 12

// maxScale is the finest fraction accepted from outside input.
const maxScale = 8

var hundred = decimal.NewFromInt(100)

// amountText is plain decimal notation: no sign, no exponent, no separators.
var amountText = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Round rounds to cents, half away from zero (half-up for the non-negative amounts used here).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns pct percent of amount, unrounded.
func Percent(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Sanitize turns free text typed by a user into a non-negative amount.
// Only plain decimal text of at most MaxDigits+1 characters is read; anything else,
// including exponent notation such as "1e3", becomes zero.
func Sanitize(text string) decimal.Decimal {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if len(s) > MaxDigits+1 || !amountText.MatchString(s) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Plain reports whether d has no positive exponent, at most maxScale fraction digits
// and at most MaxDigits significant digits. Amounts decoded from JSON are checked with
// it before any arithmetic, since an exponent like 1e10000000 would expand on rounding.
func Plain(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp <= 0 && exp >= -maxScale && d.NumDigits() <= MaxDigits
}

// Format renders an amount as dollars, e.g. "$12.50".
func Format(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(Places)
	}
	return "$" + d.StringFixed(Places)
}

// MinorUnits converts to integer cents, as payment gateways expect.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Shift(Places).Round(0).IntPart()
}
