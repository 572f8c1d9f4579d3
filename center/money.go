package center

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-point currency amount (integer minor units)
// =============================================================================

// Money is a currency amount held as integer cents.
// All balance arithmetic happens on the integer; decimal is only used to
// parse and print amounts at the edges.
type Money int64

// moneyScale is the number of fractional digits carried by Money.
const moneyScale = 2

// ParseMoney parses a decimal string such as "150", "150.5" or "150.50".
// More than two fractional digits is an error rather than a silent rounding.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts d to Money, rejecting sub-cent precision.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(moneyScale)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), moneyScale)
	}
	return Money(cents.IntPart()), nil
}

// MustMoney is ParseMoney for literals in tests and fixtures.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Units returns whole currency units as Money (Units(50) is 50.00).
func Units(n int64) Money { return Money(n * 100) }

func (m Money) Cents() int64             { return int64(m) }
func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -moneyScale) }
func (m Money) String() string           { return m.Decimal().StringFixed(moneyScale) }
func (m Money) IsPositive() bool         { return m > 0 }
func (m Money) IsNegative() bool         { return m < 0 }

// Min returns the smaller of m and o.
func (m Money) Min(o Money) Money {
	if m < o {
		return m
	}
	return o
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
