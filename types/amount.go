// Package types provides common types used across paystream.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// ErrOverflow is returned when an Amount operation would leave the int64 range.
var ErrOverflow = errors.New("paystream: amount overflow")

// Amount is a quantity of the streamed asset in its smallest unit.
// All arithmetic is integer-only and overflow-checked.
//
// Amounts encode to JSON as decimal strings so that values above 2^53 survive
// JavaScript clients intact.
type Amount int64

// Zero is the zero Amount.
const Zero Amount = 0

// MaxAmount is the largest representable Amount.
const MaxAmount Amount = math.MaxInt64

// Arithmetic operations

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

// Sub returns a-b or ErrOverflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, a, b)
	}
	return diff, nil
}

// Mul returns a*n or ErrOverflow. Both operands must be non-negative.
func (a Amount) Mul(n int64) (Amount, error) {
	if a < 0 || n < 0 {
		return 0, fmt.Errorf("%w: negative operand %d * %d", ErrOverflow, a, n)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(n))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, n)
	}
	return Amount(lo), nil
}

// MulDiv returns floor(a*num/den) using a 128-bit intermediate product, so the
// multiplication happens before the division without losing precision.
// All operands must be non-negative and den must be positive.
func (a Amount) MulDiv(num, den int64) (Amount, error) {
	if den <= 0 {
		return 0, fmt.Errorf("%w: non-positive divisor %d", ErrOverflow, den)
	}
	if a < 0 || num < 0 {
		return 0, fmt.Errorf("%w: negative operand %d * %d", ErrOverflow, a, num)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(num))
	if hi >= uint64(den) {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrOverflow, a, num, den)
	}
	quo, _ := bits.Div64(hi, lo, uint64(den))
	if quo > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrOverflow, a, num, den)
	}
	return Amount(quo), nil
}

// Div returns floor(a/den) and the remainder. den must be positive.
func (a Amount) Div(den int64) (quo Amount, rem Amount) {
	if den <= 0 {
		panic("amount: division by non-positive divisor")
	}
	return a / Amount(den), a % Amount(den)
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Min returns the smaller of two amounts.
func (a Amount) Min(b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Int64 returns the raw smallest-unit value.
func (a Amount) Int64() int64 { return int64(a) }

// Formatting methods

// FormatDecimal renders the amount in major units with the given number of
// decimal places: Amount(4900).FormatDecimal(2) == "49.00".
func (a Amount) FormatDecimal(decimals int) string {
	if decimals <= 0 {
		return strconv.FormatInt(int64(a), 10)
	}

	// Work on the unsigned magnitude so MinInt64 formats correctly.
	neg := a < 0
	mag := uint64(a)
	if neg {
		mag = -mag
	}

	divisor := uint64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}

	result := fmt.Sprintf("%d.%0*d", mag/divisor, decimals, mag%divisor)
	if neg {
		return "-" + result
	}
	return result
}

// String returns the raw integer value.
func (a Amount) String() string {
	return strconv.FormatInt(int64(a), 10)
}

// ParseAmount parses a base-10 integer string in smallest units.
// Surrounding whitespace is ignored; fractions and exponents are rejected.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("amount: empty string")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
		}
		return 0, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	return Amount(v), nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	v, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both a decimal string
// and a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return a.UnmarshalText([]byte(s))
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: unmarshal %s: %w", data, err)
	}
	return a.UnmarshalText([]byte(n.String()))
}

// Sum adds the given amounts, failing on overflow.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
