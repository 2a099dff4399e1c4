// Package core provides the domain model for cleaner cash tracking.
//
// This file contains parsing and formatting for monetary amounts. Amounts
// are AED and held in minor units to keep arithmetic exact.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is an AED amount in minor units (1/100).
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money with half-up rounding on
// the third decimal place.
//
// Currency symbols and other non-numeric characters are stripped before
// parsing ("AED 250.00" parses as 250.00); a decimal comma is accepted when
// no dot is present. Negative values are rejected. Zero is allowed; callers
// that need a positive amount check for it themselves.
func ParseAmount(s string) (Money, error) {
	s = stripNonNumeric(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	// Decimal comma, unless the string already uses a dot.
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}

// stripNonNumeric keeps digits and the characters needed to parse a decimal.
func stripNonNumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, s)
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns the difference of two amounts; the result may be negative.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// String formats the amount as a plain decimal with two places ("250.00").
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// MarshalJSON renders the amount as a JSON number, matching the store's
// document shape.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. Exponent
// form ("1e3") is a valid JSON number, so it is parsed as such rather than
// fed through the character stripper, which would mangle it.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(strings.Trim(string(data), `"`))
	if s == "null" || s == "" {
		m.Cents = 0
		return nil
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ErrInvalidAmount
		}
		cents := math.Round(f * 100)
		if math.IsNaN(cents) || cents >= math.MaxInt64 || cents <= math.MinInt64 {
			return ErrInvalidAmount
		}
		m.Cents = int64(cents)
		return nil
	}
	neg := strings.HasPrefix(s, "-")
	parsed, err := ParseAmount(strings.TrimPrefix(s, "-"))
	if err != nil {
		return err
	}
	if neg {
		parsed.Cents = -parsed.Cents
	}
	*m = parsed
	return nil
}
