// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing user-typed dollar amounts and
// rounding computed estimates to whole cents for display.
package core

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an amount in U.S. cents.
type Money struct {
	Cents int64
}

// maxDollars keeps cents within int64.
var maxDollars = decimal.NewFromInt((1<<63 - 1) / 100)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts a dot decimal separator and comma thousands separators
// (1,234.56), an optional leading "$", and performs half-up rounding on the
// third decimal place. Returns an error for invalid formats, negative
// values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("$2,950") -> 295000, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.GreaterThan(maxDollars) {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// MoneyFromDollars rounds a computed dollar value half away from zero to
// the nearest cent. Non-finite values yield zero.
func MoneyFromDollars(v float64) Money {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return Money{}
	}
	return Money{Cents: decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()}
}

// Dollars returns the dollar value as a float64 for display purposes.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String formats the amount as $1,234.56.
func (m Money) String() string {
	return m.format(2)
}

// WholeDollars formats the amount rounded to dollars, as $1,235.
func (m Money) WholeDollars() string {
	return m.format(0)
}

func (m Money) format(places int32) string {
	d := decimal.New(m.Cents, -2).Round(places)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(places)
	intPart, frac := s, ""
	if places > 0 {
		cut := len(s) - int(places) - 1
		intPart, frac = s[:cut], s[cut:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + frac
}
