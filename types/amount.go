// Package types provides common types used across the autophage protocol.
package types

import (
	"encoding/json"
	"fmt"
)

// AmountScale is the number of micro-units in one whole token.
const AmountScale int64 = 1_000_000

// Amount represents a token quantity in micro-units (one millionth of a
// token). All arithmetic is integer-only — no floating point.
//
// Examples:
//   - Tokens(1000)  = 1000.000000 tokens (1_000_000_000 micro-units)
//   - Micro(500000) = 0.500000 tokens
type Amount int64

// Tokens creates an Amount from a whole-token count.
func Tokens(n int64) Amount { return Amount(n * AmountScale) }

// Micro creates an Amount from raw micro-units.
func Micro(n int64) Amount { return Amount(n) }

// ZeroAmount is the zero token quantity.
const ZeroAmount Amount = 0

// Micro returns the raw micro-unit value.
func (a Amount) Micro() int64 { return int64(a) }

// Arithmetic operations

// Add adds two Amounts.
func (a Amount) Add(other Amount) Amount { return a + other }

// Sub subtracts another Amount.
func (a Amount) Sub(other Amount) Amount { return a - other }

// Multiply multiplies the Amount by an integer quantity.
func (a Amount) Multiply(qty int64) Amount { return Amount(int64(a) * qty) }

// Divide divides the Amount by a divisor. Uses integer division (floor
// toward zero).
func (a Amount) Divide(divisor int64) Amount {
	if divisor == 0 {
		panic("amount: division by zero")
	}
	return Amount(int64(a) / divisor)
}

// MulPPM scales the Amount by a parts-per-million ratio with floor
// rounding. MulPPM(200_000) is 20% of the Amount.
func (a Amount) MulPPM(ppm int64) Amount {
	return Amount(mulDivFloor(int64(a), ppm, RateScale))
}

// Negate returns the negative of the Amount.
func (a Amount) Negate() Amount { return -a }

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// LessThan returns true if this Amount is less than other.
func (a Amount) LessThan(other Amount) bool { return a < other }

// GreaterThan returns true if this Amount is greater than other.
func (a Amount) GreaterThan(other Amount) bool { return a > other }

// Min returns the smaller of two Amounts.
func (a Amount) Min(other Amount) Amount {
	if a < other {
		return a
	}
	return other
}

// Max returns the larger of two Amounts.
func (a Amount) Max(other Amount) Amount {
	if a > other {
		return a
	}
	return other
}

// Formatting

// String returns the whole-token representation with six decimal places,
// e.g. "1000.000000" for Tokens(1000).
func (a Amount) String() string {
	neg := a < 0
	abs := int64(a)
	if neg {
		abs = -abs
	}
	whole := abs / AmountScale
	frac := abs % AmountScale
	s := fmt.Sprintf("%d.%06d", whole, frac)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Micro   int64  `json:"micro"`
		Display string `json:"display"`
	}{
		Micro:   int64(a),
		Display: a.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. It accepts either the object
// form produced by MarshalJSON or a bare integer of micro-units.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var obj struct {
		Micro int64 `json:"micro"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*a = Amount(obj.Micro)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: cannot unmarshal %s", data)
	}
	*a = Amount(n)
	return nil
}

// SumAmounts calculates the sum of multiple Amounts.
func SumAmounts(values ...Amount) Amount {
	var total Amount
	for _, v := range values {
		total += v
	}
	return total
}
