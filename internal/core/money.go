// Package core provides the finance records exchanged with the backend.
//
// This file contains the Money type and the parsing of user-entered amounts.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact monetary amount. The backend sends plain JSON numbers;
// decoding them through decimal avoids float rounding in totals.
type Money struct {
	decimal.Decimal
}

// NewMoney builds a Money from whole cents.
func NewMoney(cents int64) Money {
	return Money{decimal.New(cents, -2)}
}

// MoneyFromFloat is used for amounts computed by the backend aggregations.
func MoneyFromFloat(f float64) Money {
	return Money{decimal.NewFromFloat(f)}
}

// ParseAmount converts user input to a positive amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("0.004")  -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return Money{d}, nil
}

// Cents returns the amount in minor units, rounded half away from zero.
func (m Money) Cents() int64 {
	return m.Decimal.Round(2).Shift(2).IntPart()
}

// Float64 is what the backend expects in request bodies.
func (m Money) Float64() float64 {
	f, _ := m.Decimal.Float64()
	return f
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{m.Decimal.Add(o.Decimal)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{m.Decimal.Sub(o.Decimal)} }

// Plain renders the amount with two decimals and no grouping, as used in form
// fields and spreadsheet cells.
func (m Money) Plain() string {
	return m.Decimal.StringFixed(2)
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"CAD": "C$",
	"AUD": "A$",
	"JPY": "¥",
	"CNY": "¥",
}

// SupportedCurrencies lists the currency codes a profile may select.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "INR", "CAD", "AUD", "JPY", "CNY"}

// Format renders the amount with the currency symbol and thousands grouping,
// e.g. Format("USD") of 1234.5 is "$1,234.50". Negative amounts get a leading
// minus sign. Unknown codes are written as a suffix.
func (m Money) Format(currency string) string {
	neg := m.Decimal.IsNegative()
	abs := m.Decimal.Abs()

	places := int32(2)
	if currency == "JPY" {
		places = 0
	}
	fixed := abs.StringFixed(places)

	intPart, frac := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, frac = fixed[:i], fixed[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	symbol, known := currencySymbols[strings.ToUpper(currency)]
	if known {
		b.WriteString(symbol)
	}
	b.WriteString(groupThousands(intPart))
	b.WriteString(frac)
	if !known && currency != "" {
		b.WriteString(" " + strings.ToUpper(currency))
	}
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings. null leaves zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("decode money %q: %w", data, err)
	}
	m.Decimal = d
	return nil
}
