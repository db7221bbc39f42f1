// Package money provides exact decimal amounts for price arithmetic.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatError is returned when a price value cannot be parsed as a decimal.
type FormatError struct {
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("money: invalid decimal %q", e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Money is an exact decimal amount. The zero value is 0.
type Money struct {
	amount decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// Parse reads a decimal string such as "123.45".
func Parse(s string) (Money, error) {
	trimmed := strings.TrimSpace(s)
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, &FormatError{Value: s, Err: err}
	}
	return Money{amount: d}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal wraps an existing decimal value.
func FromDecimal(d decimal.Decimal) Money {
	return Money{amount: d}
}

// FromInt returns a whole amount.
func FromInt(v int64) Money {
	return Money{amount: decimal.NewFromInt(v)}
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }

// MulInt multiplies by a quantity such as a number of seats.
func (m Money) MulInt(qty int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(qty))}
}

// MulFraction multiplies by a fraction such as a coupon amount (0.25 == 25%).
// The result is not rounded.
func (m Money) MulFraction(f decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(f)}
}

// RoundCents rounds half away from zero to two decimal places.
func (m Money) RoundCents() Money {
	return Money{amount: m.amount.Round(2)}
}

// Cmp compares m and o.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

// Equal reports whether both amounts are numerically equal.
func (m Money) Equal(o Money) bool { return m.amount.Equal(o.amount) }

// IsZero reports whether the amount is 0.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below 0.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Max returns the larger of m and o.
func Max(m, o Money) Money {
	if m.Cmp(o) >= 0 {
		return m
	}
	return o
}

// String renders the amount with two fixed decimals, e.g. "61.72".
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// Format renders the amount for display: "$" prefix, rounded to cents,
// whole amounts without decimals ("$20", "$20.70").
func (m Money) Format() string {
	return formatDecimal(m.amount)
}

// FormatPrice formats an optional numeric price for display. A nil value
// renders as the empty string.
func FormatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return formatDecimal(decimal.NewFromFloat(*v))
}

func formatDecimal(d decimal.Decimal) string {
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	if rounded.Equal(rounded.Truncate(0)) {
		return sign + "$" + rounded.StringFixed(0)
	}
	return sign + "$" + rounded.StringFixed(2)
}

// MarshalJSON encodes the amount as a decimal string to avoid float rounding.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		*m = Money{}
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	parsed, err := Parse(string(raw))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
