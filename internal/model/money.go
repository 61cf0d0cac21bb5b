package model

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Money is a signed fixed-point amount in a currency, scaled by the currency precision.
type Money struct {
	raw      int64
	currency Currency
}

// NewMoney parses a decimal literal in ccy. Literals with more decimals than ccy allows are rejected.
func NewMoney(value string, ccy Currency) (Money, error) {
	value = strings.TrimSpace(value)
	neg := strings.HasPrefix(value, "-")
	raw, precision, err := parseFixed(strings.TrimPrefix(value, "-"))
	if err != nil {
		return Money{}, err
	}
	if precision > ccy.Precision {
		return Money{}, errors.Wrapf(exception.ErrPrecisionMismatch, "%s has more than %d decimals", value, ccy.Precision)
	}
	raw, err = rescale(raw, precision, ccy.Precision)
	if err != nil {
		return Money{}, err
	}
	if neg {
		raw = -raw
	}
	return Money{raw: raw, currency: ccy}, nil
}

// MustMoney is NewMoney for literals known to be valid.
func MustMoney(value string, ccy Currency) Money {
	m, err := NewMoney(value, ccy)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromInt builds money from whole units.
func MoneyFromInt(units int64, ccy Currency) Money {
	return Money{raw: units * pow10[ccy.Precision], currency: ccy}
}

// MoneyFromDecimal rounds d half-to-even at the currency precision. It is the only rounding path
// and is reserved for computed amounts such as P&L.
func MoneyFromDecimal(d decimal.Decimal, ccy Currency) Money {
	return Money{
		raw:      d.RoundBank(int32(ccy.Precision)).Shift(int32(ccy.Precision)).IntPart(),
		currency: ccy,
	}
}

// ZeroMoney returns 0 in ccy.
func ZeroMoney(ccy Currency) Money { return Money{currency: ccy} }

func (m Money) Raw() int64                { return m.raw }
func (m Money) Currency() Currency        { return m.currency }
func (m Money) IsZero() bool              { return m.raw == 0 }
func (m Money) IsNegative() bool          { return m.raw < 0 }
func (m Money) Decimal() decimal.Decimal  { return toDecimal(m.raw, m.currency.Precision) }
func (m Money) Neg() Money                { return Money{raw: -m.raw, currency: m.currency} }
func (m Money) SameCurrency(o Money) bool { return m.currency == o.currency }

// Add returns m + other in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, exception.ErrCurrencyMismatch
	}
	raw, err := addInt64(m.raw, other.raw)
	if err != nil {
		return Money{}, err
	}
	return Money{raw: raw, currency: m.currency}, nil
}

// Sub returns m - other in the same currency.
func (m Money) Sub(other Money) (Money, error) {
	return m.Add(other.Neg())
}

// Cmp compares by numeric value. Currencies must match.
func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, exception.ErrCurrencyMismatch
	}
	return cmpFixed(m.raw, m.currency.Precision, other.raw, other.currency.Precision), nil
}

// Amount renders the value with thousands separators and no currency code.
func (m Money) Amount() string {
	return string(appendScaledInt(make([]byte, 0, 32), m.raw, int(m.currency.Precision), true))
}

// String renders e.g. 1,525,000.00 USD.
func (m Money) String() string {
	return m.Amount() + " " + m.currency.Code
}

// MarshalText renders e.g. 12.20000000 USDT, without separators.
func (m Money) MarshalText() ([]byte, error) {
	if m.currency.IsNull() && m.raw == 0 {
		return nil, nil
	}
	buf := appendScaledInt(make([]byte, 0, 32), m.raw, int(m.currency.Precision), false)
	buf = append(buf, ' ')
	return append(buf, m.currency.Code...), nil
}

func (m *Money) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = Money{}
		return nil
	}
	amount, code, ok := strings.Cut(strings.TrimSpace(string(b)), " ")
	if !ok {
		return errors.Wrap(exception.ErrInvalidArgument, "money "+string(b))
	}
	ccy, err := CurrencyFromString(code)
	if err != nil {
		_, precision, perr := parseFixed(strings.TrimPrefix(amount, "-"))
		if perr != nil {
			return perr
		}
		ccy = Currency{Code: code, Precision: precision}
	}
	v, err := NewMoney(amount, ccy)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
