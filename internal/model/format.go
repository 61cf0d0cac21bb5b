package model

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// MaxPrecision is the largest number of fractional digits a fixed-point value may carry.
const MaxPrecision = 9

// maxExponent bounds positive exponents: 10^19 already exceeds int64.
const maxExponent = 18

var pow10 = [...]int64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000,
}

// parseFixed converts a decimal literal into a scaled integer. The precision is the number of
// fractional digits written in the literal, so "0.561000" keeps 6.
func parseFixed(value string) (int64, uint8, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, 0, errors.Wrap(exception.ErrInvalidArgument, "parse "+strconv.Quote(value))
	}

	var precision int32
	coef := d.Coefficient()
	if exp := d.Exponent(); exp < 0 {
		precision = -exp
	} else if exp > 0 {
		if exp > maxExponent {
			return 0, 0, errors.Wrap(exception.ErrValueOverflow, "parse "+strconv.Quote(value))
		}
		coef.Mul(coef, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	}

	if precision > MaxPrecision {
		return 0, 0, errors.Wrap(exception.ErrPrecisionTooHigh, "parse "+strconv.Quote(value))
	}
	if !coef.IsInt64() {
		return 0, 0, errors.Wrap(exception.ErrValueOverflow, "parse "+strconv.Quote(value))
	}

	return coef.Int64(), uint8(precision), nil
}

// rescale widens raw from precision `from` to `to`. Narrowing is never done here.
func rescale(raw int64, from, to uint8) (int64, error) {
	if from == to {
		return raw, nil
	}
	if from > to {
		return 0, exception.ErrPrecisionMismatch
	}
	factor := pow10[to-from]
	if raw > 0 && raw > maxInt64/factor || raw < 0 && raw < minInt64/factor {
		return 0, exception.ErrValueOverflow
	}
	return raw * factor, nil
}

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

func addInt64(a, b int64) (int64, error) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, exception.ErrValueOverflow
	}
	return c, nil
}

func toDecimal(raw int64, precision uint8) decimal.Decimal {
	return decimal.New(raw, -int32(precision))
}

func appendScaledInt(buf []byte, value int64, scale int, grouped bool) []byte {
	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
		buf = append(buf, '-')
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		return append(buf, digits...)
	}

	idx := len(digits) - scale
	buf = appendGrouped(buf, digits[:idx], grouped)
	if scale > 0 {
		buf = append(buf, '.')
		buf = append(buf, digits[idx:]...)
	}
	return buf
}

func appendGrouped(buf []byte, digits []byte, grouped bool) []byte {
	if !grouped || len(digits) <= 3 {
		return append(buf, digits...)
	}
	head := len(digits) % 3
	if head > 0 {
		buf = append(buf, digits[:head]...)
	}
	for i := head; i < len(digits); i += 3 {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, digits[i:i+3]...)
	}
	return buf
}
