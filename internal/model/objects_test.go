package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

func TestNewPrice(t *testing.T) {
	testCases := []struct {
		desc      string
		input     string
		raw       int64
		precision uint8
		text      string
		err       error
	}{
		{desc: "integer", input: "100", raw: 100, precision: 0, text: "100"},
		{desc: "keeps trailing zeros", input: "1.95000", raw: 195000, precision: 5, text: "1.95000"},
		{desc: "below one", input: "0.00010", raw: 10, precision: 5, text: "0.00010"},
		{desc: "max precision", input: "0.000000001", raw: 1, precision: 9, text: "0.000000001"},
		{desc: "too many decimals", input: "0.0000000001", err: exception.ErrPrecisionTooHigh},
		{desc: "negative", input: "-1.0", err: exception.ErrNegativeValue},
		{desc: "garbage", input: "abc", err: exception.ErrInvalidArgument},
		{desc: "overflow", input: "99999999999999999999", err: exception.ErrValueOverflow},
		{desc: "exponent", input: "12e1", raw: 120, precision: 0, text: "120"},
		{desc: "exponent past int64", input: "1e19", err: exception.ErrValueOverflow},
		{desc: "huge exponent", input: "1e10000000", err: exception.ErrValueOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			p, err := NewPrice(tc.input)
			if tc.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.err), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.raw, p.Raw())
			assert.Equal(t, tc.precision, p.Precision())
			assert.Equal(t, tc.text, p.String())
		})
	}
}

func TestPriceArithmetic(t *testing.T) {
	a := MustPrice("1.00010")
	b := MustPrice("1.00000")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "2.00010", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "0.00010", diff.String())

	_, err = b.Sub(a)
	assert.ErrorIs(t, err, exception.ErrNegativeValue)

	_, err = a.Add(MustPrice("1.0"))
	assert.ErrorIs(t, err, exception.ErrPrecisionMismatch)
}

func TestPriceCompareAcrossPrecision(t *testing.T) {
	a := MustPrice("1.5")
	b := MustPrice("1.50000")

	assert.NotEqual(t, a, b)
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Cmp(b))
	assert.True(t, MustPrice("1.49999").LessThan(a))
	assert.True(t, MustPrice("2").GreaterThan(b))
}

func TestPriceFromDecimal(t *testing.T) {
	p, err := PriceFromDecimal(decimal.RequireFromString("15600.12445"), 5)
	require.NoError(t, err)
	assert.Equal(t, "15600.12445", p.String())

	p, err = PriceFromDecimal(decimal.RequireFromString("1.1"), 3)
	require.NoError(t, err)
	assert.Equal(t, "1.100", p.String())

	_, err = PriceFromDecimal(decimal.RequireFromString("1.12345"), 2)
	assert.ErrorIs(t, err, exception.ErrPrecisionMismatch)
}

func TestQuantity(t *testing.T) {
	q := MustQuantity("0.561000")
	assert.Equal(t, uint8(6), q.Precision())
	assert.Equal(t, "0.561000", q.String())

	big := QuantityFromInt(500_000)
	assert.Equal(t, "500,000", big.String())
	assert.Equal(t, "500000", big.Plain())

	rest, err := q.Sub(MustQuantity("0.061000"))
	require.NoError(t, err)
	assert.Equal(t, "0.500000", rest.String())

	_, err = rest.Sub(q)
	assert.ErrorIs(t, err, exception.ErrNegativeValue)

	_, err = q.Add(QuantityFromInt(1))
	assert.ErrorIs(t, err, exception.ErrPrecisionMismatch)

	assert.True(t, ZeroQuantity(6).IsZero())
	assert.True(t, QuantityFromInt(1).Equal(MustQuantity("1.000")))

	_, err = NewQuantity("1e999999999")
	assert.ErrorIs(t, err, exception.ErrValueOverflow)
}

func TestQuantityText(t *testing.T) {
	q := QuantityFromInt(1_250_000)
	b, err := q.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1250000", string(b))

	var back Quantity
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, q, back)
}
