package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

var ErrInvalidSizing = fmt.Errorf("%w: invalid sizing parameters", exception.ErrInvalidArgument)

var bpsDivisor = decimal.NewFromInt(10_000)

// SizingRequest holds the inputs of a fixed-risk position size calculation. Zero values of
// ExchangeRate, Units and UnitBatchSize mean 1, and a zero HardLimit means no cap.
type SizingRequest struct {
	Equity        model.Money
	RiskBps       decimal.Decimal
	Entry         model.Price
	Stop          model.Price
	ExchangeRate  decimal.Decimal
	HardLimit     model.Quantity
	Units         int
	UnitBatchSize model.Quantity
}

// FixedRiskSizer sizes each unit so that a stop-out loses at most the risk budget.
type FixedRiskSizer struct {
	SizePrecision uint8
}

func NewFixedRiskSizer(sizePrecision uint8) FixedRiskSizer {
	return FixedRiskSizer{SizePrecision: sizePrecision}
}

// Calculate returns the per-unit quantity. The raw size is rounded down to the largest batch multiple
// strictly below it, so an exact multiple gives up its last batch.
func (s FixedRiskSizer) Calculate(req SizingRequest) (model.Quantity, error) {
	zero := model.ZeroQuantity(s.SizePrecision)

	units := req.Units
	if units == 0 {
		units = 1
	}
	rate := req.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	batch := req.UnitBatchSize.Decimal()
	if req.UnitBatchSize.IsZero() {
		batch = decimal.NewFromInt(1)
	}

	switch {
	case units < 0:
		return zero, errors.Wrapf(ErrInvalidSizing, "units %d", units)
	case req.Equity.IsNegative():
		return zero, errors.Wrapf(ErrInvalidSizing, "equity %s", req.Equity)
	case req.RiskBps.IsNegative():
		return zero, errors.Wrapf(ErrInvalidSizing, "risk bps %s", req.RiskBps)
	case rate.IsNegative():
		return zero, errors.Wrapf(ErrInvalidSizing, "exchange rate %s", rate)
	}

	riskPerUnit := req.Entry.Decimal().Sub(req.Stop.Decimal()).Abs().Mul(rate)
	if riskPerUnit.IsZero() {
		return zero, nil
	}

	budget := req.Equity.Decimal().Mul(req.RiskBps).Div(bpsDivisor).Div(decimal.NewFromInt(int64(units)))
	raw := budget.Div(riskPerUnit)

	batches := raw.Div(batch).Ceil().Sub(decimal.NewFromInt(1))
	if !batches.IsPositive() {
		return zero, nil
	}
	size := batches.Mul(batch)

	if !req.HardLimit.IsZero() && size.GreaterThan(req.HardLimit.Decimal()) {
		size = req.HardLimit.Decimal()
	}
	return model.QuantityFromDecimal(size, s.SizePrecision)
}
