package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/model"
)

func TestFixedRiskSizer(t *testing.T) {
	sizer := NewFixedRiskSizer(0)

	testCases := []struct {
		desc string
		req  SizingRequest
		want uint32
	}{
		{
			desc: "single unit",
			req: SizingRequest{
				Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(10),
				Entry: model.MustPrice("1.00100"), Stop: model.MustPrice("1.00000"),
				ExchangeRate: decimal.NewFromInt(1), UnitBatchSize: model.QuantityFromInt(1000),
			},
			want: 999_000,
		},
		{
			desc: "exchange rate",
			req: SizingRequest{
				Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(10),
				Entry: model.MustPrice("110.010"), Stop: model.MustPrice("110.000"),
				ExchangeRate: decimal.RequireFromString("0.01"), UnitBatchSize: model.QuantityFromInt(1000),
			},
			want: 9_999_000,
		},
		{
			desc: "risk too high",
			req: SizingRequest{
				Equity: model.MoneyFromInt(100_000, model.USD), RiskBps: decimal.NewFromInt(100),
				Entry: model.MustPrice("3.00000"), Stop: model.MustPrice("1.00000"),
				UnitBatchSize: model.QuantityFromInt(1000),
			},
			want: 0,
		},
		{
			desc: "hard limit",
			req: SizingRequest{
				Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(100),
				Entry: model.MustPrice("1.00010"), Stop: model.MustPrice("1.00000"),
				HardLimit: model.QuantityFromInt(500_000), Units: 1, UnitBatchSize: model.QuantityFromInt(1000),
			},
			want: 500_000,
		},
		{
			desc: "multiple units",
			req: SizingRequest{
				Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(10),
				Entry: model.MustPrice("1.00010"), Stop: model.MustPrice("1.00000"),
				Units: 3, UnitBatchSize: model.QuantityFromInt(1000),
			},
			want: 3_333_000,
		},
		{
			desc: "multiple units larger batches",
			req: SizingRequest{
				Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(10),
				Entry: model.MustPrice("1.00087"), Stop: model.MustPrice("1.00000"),
				Units: 4, UnitBatchSize: model.QuantityFromInt(25_000),
			},
			want: 275_000,
		},
		{
			desc: "zero risk distance",
			req: SizingRequest{
				Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(10),
				Entry: model.MustPrice("1.00000"), Stop: model.MustPrice("1.00000"),
			},
			want: 0,
		},
		{
			desc: "short side stop above entry",
			req: SizingRequest{
				Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(10),
				Entry: model.MustPrice("1.00000"), Stop: model.MustPrice("1.00100"),
				UnitBatchSize: model.QuantityFromInt(1000),
			},
			want: 999_000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := sizer.Calculate(tc.req)
			require.NoError(t, err)
			assert.Equal(t, model.QuantityFromInt(tc.want), got, got.String())
		})
	}
}

func TestFixedRiskSizerInvalid(t *testing.T) {
	sizer := NewFixedRiskSizer(0)
	base := SizingRequest{
		Equity: model.MoneyFromInt(1_000_000, model.USD), RiskBps: decimal.NewFromInt(10),
		Entry: model.MustPrice("1.00100"), Stop: model.MustPrice("1.00000"),
	}

	testCases := []struct {
		desc   string
		mutate func(*SizingRequest)
	}{
		{desc: "negative units", mutate: func(r *SizingRequest) { r.Units = -1 }},
		{desc: "negative equity", mutate: func(r *SizingRequest) { r.Equity = model.MoneyFromInt(-1, model.USD) }},
		{desc: "negative bps", mutate: func(r *SizingRequest) { r.RiskBps = decimal.NewFromInt(-1) }},
		{desc: "negative rate", mutate: func(r *SizingRequest) { r.ExchangeRate = decimal.NewFromInt(-1) }},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			got, err := sizer.Calculate(req)
			assert.ErrorIs(t, err, ErrInvalidSizing)
			assert.True(t, got.IsZero())
		})
	}
}

func TestFixedRiskSizerPrecision(t *testing.T) {
	sizer := NewFixedRiskSizer(3)
	got, err := sizer.Calculate(SizingRequest{
		Equity: model.MoneyFromInt(10_000, model.USD), RiskBps: decimal.NewFromInt(100),
		Entry: model.MustPrice("20000"), Stop: model.MustPrice("19000"),
		UnitBatchSize: model.MustQuantity("0.001"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0.099", got.String())
}
