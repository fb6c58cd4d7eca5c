// Package core provides money parsing and handling utilities.
//
// Money wraps an arbitrary-precision decimal so sums over transactions are
// exact. Display formatting (currency symbol, locale) belongs to callers.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal monetary amount. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// MustMoney parses s and panics on error. Intended for literals and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Amounts outside these bounds are rejected on input.
const (
	maxIntegerDigits = 15
	maxScale         = 8
)

var currencySymbols = []string{"R$", "US$", "€", "$", "£"}

// ParseMoney parses a user-submitted amount.
//
// It accepts both dot (1234.56) and comma (1234,56) decimal separators. When
// both appear, the one written last is the decimal separator and the other is
// treated as a thousands separator ("1.234,56" and "1,234.56" are both 1234.56).
// One currency symbol may lead or trail the digits. A leading sign is kept.
// Any other character is an error.
func ParseMoney(s string) (Money, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return Zero, &ValidationError{Field: "amount", Reason: "is required"}
	}

	neg := false
	switch clean[0] {
	case '-':
		neg = true
		clean = strings.TrimSpace(clean[1:])
	case '+':
		clean = strings.TrimSpace(clean[1:])
	}
	for _, sym := range currencySymbols {
		if rest, ok := strings.CutPrefix(clean, sym); ok {
			clean = strings.TrimSpace(rest)
			break
		}
		if rest, ok := strings.CutSuffix(clean, sym); ok {
			clean = strings.TrimSpace(rest)
			break
		}
	}

	digits := 0
	for _, r := range clean {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.', r == ',':
		default:
			return Zero, notANumber()
		}
	}
	if digits == 0 {
		return Zero, notANumber()
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	case lastComma >= 0:
		if strings.Count(clean, ",") > 1 {
			return Zero, notANumber()
		}
		clean = strings.Replace(clean, ",", ".", 1)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return Zero, notANumber()
	}
	if neg {
		d = d.Neg()
	}
	if err := checkBounds(d); err != nil {
		return Zero, err
	}
	return Money{d: d}, nil
}

func notANumber() error {
	return &ValidationError{Field: "amount", Reason: "is not a number"}
}

// checkBounds rejects amounts of 10^15 or more and amounts with more than
// maxScale decimal places. It never expands the exponent, so huge exponents
// are rejected cheaply.
func checkBounds(d decimal.Decimal) error {
	exp := int64(d.Exponent())
	if exp < -maxScale {
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("has more than %d decimal places", maxScale)}
	}
	if d.IsZero() {
		if exp > 0 {
			return &ValidationError{Field: "amount", Reason: "is too large"}
		}
		return nil
	}
	if int64(d.NumDigits())+exp > maxIntegerDigits {
		return &ValidationError{Field: "amount", Reason: "is too large"}
	}
	return nil
}

// MoneyFromStore converts a persisted amount. Malformed values count as zero;
// ok reports whether the raw value was well formed.
func MoneyFromStore(raw string) (m Money, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Zero, false
	}
	return Money{d: d}, true
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Equal compares numerically, so 1.5 equals 1.50.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) Cmp(o Money) int    { return m.d.Cmp(o.d) }

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Float64 returns the amount for display purposes.
// Note: use Money for calculations to avoid floating-point precision issues.
func (m Money) Float64() float64 {
	return m.d.InexactFloat64()
}

// String renders the amount with two decimal places.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// StoreString renders the exact amount for persistence.
func (m Money) StoreString() string {
	return m.d.String()
}

// MarshalJSON encodes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts numbers, and strings in any form ParseMoney takes.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if s, err := strconv.Unquote(raw); err == nil {
		parsed, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return notANumber()
	}
	if err := checkBounds(d); err != nil {
		return err
	}
	m.d = d
	return nil
}

// Sum adds up a list of amounts.
func Sum(ms ...Money) Money {
	total := Zero
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}
