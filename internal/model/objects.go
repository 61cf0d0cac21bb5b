package model

import (
	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Price is a non-negative fixed-point value: raw scaled by 10^precision.
//
// The zero value is a valid price of 0 with precision 0. Two prices compare equal with == only
// when both raw and precision match; use Equal or Cmp to compare numerically.
type Price struct {
	raw       int64
	precision uint8
}

// NewPrice parses a decimal literal. The precision is taken from the literal.
func NewPrice(value string) (Price, error) {
	raw, precision, err := parseFixed(value)
	if err != nil {
		return Price{}, err
	}
	return PriceFromRaw(raw, precision)
}

// MustPrice is NewPrice for literals known to be valid.
func MustPrice(value string) Price {
	p, err := NewPrice(value)
	if err != nil {
		panic(err)
	}
	return p
}

// PriceFromRaw builds a price from a scaled integer.
func PriceFromRaw(raw int64, precision uint8) (Price, error) {
	if precision > MaxPrecision {
		return Price{}, exception.ErrPrecisionTooHigh
	}
	if raw < 0 {
		return Price{}, exception.ErrNegativeValue
	}
	return Price{raw: raw, precision: precision}, nil
}

// PriceFromDecimal converts d exactly at the given precision. Values that would lose digits are rejected.
func PriceFromDecimal(d decimal.Decimal, precision uint8) (Price, error) {
	raw, err := decimalToRaw(d, precision)
	if err != nil {
		return Price{}, err
	}
	return PriceFromRaw(raw, precision)
}

func (p Price) Raw() int64                { return p.raw }
func (p Price) Precision() uint8          { return p.precision }
func (p Price) IsZero() bool              { return p.raw == 0 }
func (p Price) Decimal() decimal.Decimal  { return toDecimal(p.raw, p.precision) }
func (p Price) Float64() float64          { return p.Decimal().InexactFloat64() }
func (p Price) Cmp(other Price) int       { return cmpFixed(p.raw, p.precision, other.raw, other.precision) }
func (p Price) Equal(other Price) bool    { return p.Cmp(other) == 0 }
func (p Price) LessThan(other Price) bool { return p.Cmp(other) < 0 }

func (p Price) GreaterThan(other Price) bool { return p.Cmp(other) > 0 }

// Add returns p + other. Both operands must share a precision.
func (p Price) Add(other Price) (Price, error) {
	if p.precision != other.precision {
		return Price{}, exception.ErrPrecisionMismatch
	}
	raw, err := addInt64(p.raw, other.raw)
	if err != nil {
		return Price{}, err
	}
	return Price{raw: raw, precision: p.precision}, nil
}

// Sub returns p - other. Both operands must share a precision and the result must not be negative.
func (p Price) Sub(other Price) (Price, error) {
	if p.precision != other.precision {
		return Price{}, exception.ErrPrecisionMismatch
	}
	if other.raw > p.raw {
		return Price{}, exception.ErrNegativeValue
	}
	return Price{raw: p.raw - other.raw, precision: p.precision}, nil
}

func (p Price) String() string {
	return string(appendScaledInt(make([]byte, 0, 24), p.raw, int(p.precision), false))
}

func (p Price) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Price) UnmarshalText(b []byte) error {
	v, err := NewPrice(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Quantity is a non-negative fixed-point amount: raw scaled by 10^precision.
type Quantity struct {
	raw       int64
	precision uint8
}

// NewQuantity parses a decimal literal. The precision is taken from the literal.
func NewQuantity(value string) (Quantity, error) {
	raw, precision, err := parseFixed(value)
	if err != nil {
		return Quantity{}, err
	}
	return QuantityFromRaw(raw, precision)
}

// MustQuantity is NewQuantity for literals known to be valid.
func MustQuantity(value string) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

// QuantityFromInt builds a whole quantity with precision 0. Every uint32 fits the raw range.
func QuantityFromInt(units uint32) Quantity {
	return Quantity{raw: int64(units)}
}

// QuantityFromRaw builds a quantity from a scaled integer.
func QuantityFromRaw(raw int64, precision uint8) (Quantity, error) {
	if precision > MaxPrecision {
		return Quantity{}, exception.ErrPrecisionTooHigh
	}
	if raw < 0 {
		return Quantity{}, exception.ErrNegativeValue
	}
	return Quantity{raw: raw, precision: precision}, nil
}

// QuantityFromDecimal converts d exactly at the given precision.
func QuantityFromDecimal(d decimal.Decimal, precision uint8) (Quantity, error) {
	raw, err := decimalToRaw(d, precision)
	if err != nil {
		return Quantity{}, err
	}
	return QuantityFromRaw(raw, precision)
}

// ZeroQuantity returns 0 at the given precision.
func ZeroQuantity(precision uint8) Quantity {
	return Quantity{precision: min(precision, MaxPrecision)}
}

func (q Quantity) Raw() int64               { return q.raw }
func (q Quantity) Precision() uint8         { return q.precision }
func (q Quantity) IsZero() bool             { return q.raw == 0 }
func (q Quantity) IsPositive() bool         { return q.raw > 0 }
func (q Quantity) Decimal() decimal.Decimal { return toDecimal(q.raw, q.precision) }
func (q Quantity) Cmp(other Quantity) int   { return cmpFixed(q.raw, q.precision, other.raw, other.precision) }
func (q Quantity) Equal(other Quantity) bool {
	return q.Cmp(other) == 0
}
func (q Quantity) LessThan(other Quantity) bool    { return q.Cmp(other) < 0 }
func (q Quantity) GreaterThan(other Quantity) bool { return q.Cmp(other) > 0 }

// Add returns q + other. Both operands must share a precision.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if q.precision != other.precision {
		return Quantity{}, exception.ErrPrecisionMismatch
	}
	raw, err := addInt64(q.raw, other.raw)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{raw: raw, precision: q.precision}, nil
}

// Sub returns q - other. Both operands must share a precision and the result must not be negative.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	if q.precision != other.precision {
		return Quantity{}, exception.ErrPrecisionMismatch
	}
	if other.raw > q.raw {
		return Quantity{}, exception.ErrNegativeValue
	}
	return Quantity{raw: q.raw - other.raw, precision: q.precision}, nil
}

// String renders the quantity with thousands separators, e.g. 500,000 or 0.561000.
func (q Quantity) String() string {
	return string(appendScaledInt(make([]byte, 0, 32), q.raw, int(q.precision), true))
}

// Plain renders the quantity without separators.
func (q Quantity) Plain() string {
	return string(appendScaledInt(make([]byte, 0, 24), q.raw, int(q.precision), false))
}

func (q Quantity) MarshalText() ([]byte, error) { return []byte(q.Plain()), nil }

func (q *Quantity) UnmarshalText(b []byte) error {
	v, err := NewQuantity(string(b))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

func cmpFixed(a int64, ap uint8, b int64, bp uint8) int {
	if ap == bp {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	return toDecimal(a, ap).Cmp(toDecimal(b, bp))
}

func decimalToRaw(d decimal.Decimal, precision uint8) (int64, error) {
	if precision > MaxPrecision {
		return 0, exception.ErrPrecisionTooHigh
	}
	shifted := d.Shift(int32(precision))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, errors.Wrapf(exception.ErrPrecisionMismatch, "%s does not fit precision %d", d, precision)
	}
	coef := shifted.BigInt()
	if !coef.IsInt64() {
		return 0, exception.ErrValueOverflow
	}
	return coef.Int64(), nil
}
