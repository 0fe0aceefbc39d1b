package calculator

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericPrefix matches the longest leading decimal literal, the way form
// fields are read: "12.5kg" is 12.5, "abc" is nothing.
var numericPrefix = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?([eE][+-]?\d+)?`)

// RawInputs maps a member's user ID to the text typed for them, an amount for
// EXACT splits or a percentage for PERCENTAGE splits.
type RawInputs map[string]string

// Value returns the parsed input for userID. Missing entries are 0.
func (in RawInputs) Value(userID string) float64 {
	raw, ok := in[userID]
	if !ok {
		return 0
	}
	return ParseRawAmount(raw)
}

// ParseRawAmount parses user-entered numeric text. Anything that does not
// start with a number, and any non-finite result, yields 0.
func ParseRawAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	m := numericPrefix.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	sign, whole, frac, exp := m[1], m[2], m[3], m[4]
	if whole == "" && frac == "" {
		return 0
	}
	if whole == "" {
		whole = "0"
	}
	if sign == "+" {
		sign = ""
	}
	literal := sign + whole
	if frac != "" {
		literal += "." + frac
	}
	literal += exp

	d, err := decimal.NewFromString(literal)
	if err != nil {
		return 0
	}
	v := d.InexactFloat64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
