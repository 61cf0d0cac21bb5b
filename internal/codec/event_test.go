package codec

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

var (
	ts       = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	account  = model.NewAccountID("SIM", "000")
	strategy = model.NewStrategyID("SCALPER", "001")
	symbol   = model.NewSymbol("BTC/USDT", "BINANCE")
	clOrdID  = model.ClientOrderID("O-20240301-120000-000-001-1")
)

func header() schema.EventHeader { return schema.NewHeader(uuid.New(), ts) }

func fill() schema.OrderFilled {
	return schema.OrderFilled{
		EventHeader:   header(),
		AccountID:     account,
		ClientOrderID: clOrdID,
		OrderID:       "V-1",
		ExecutionID:   "E-1",
		PositionID:    "P-1",
		StrategyID:    strategy,
		Symbol:        symbol,
		Side:          enum.OrderSideBuy,
		FillQty:       model.MustQuantity("0.561000"),
		CumQty:        model.MustQuantity("0.561000"),
		LeavesQty:     model.MustQuantity("0.000000"),
		FillPrice:     model.MustPrice("15600.12445"),
		Currency:      model.USDT,
		Commission:    model.MustMoney("12.20000000", model.USDT),
		LiquiditySide: enum.LiquiditySideMaker,
		ExecutionTime: ts,
	}
}

func events() []schema.Event {
	state := schema.PositionState{
		ID:            "P-1",
		AccountID:     account,
		StrategyID:    strategy,
		Symbol:        symbol,
		EntrySide:     enum.OrderSideBuy,
		Side:          enum.PositionSideLong,
		Quantity:      model.MustQuantity("0.561000"),
		PeakQuantity:  model.MustQuantity("0.561000"),
		AvgOpen:       decimal.RequireFromString("15600.12445"),
		RealizedPnL:   model.MustMoney("-12.20000000", model.USDT),
		Commissions:   model.MustMoney("12.20000000", model.USDT),
		QuoteCurrency: model.USDT,
		OpenedTime:    ts,
		FillCount:     1,
	}
	return []schema.Event{
		schema.OrderInitialized{
			EventHeader:   header(),
			ClientOrderID: clOrdID,
			StrategyID:    strategy,
			Symbol:        symbol,
			Side:          enum.OrderSideBuy,
			Type:          enum.OrderTypeLimit,
			Quantity:      model.MustQuantity("0.561000"),
			Price:         model.MustPrice("15600.12445"),
			TimeInForce:   enum.TimeInForceGTC,
		},
		schema.OrderDenied{EventHeader: header(), ClientOrderID: clOrdID, Reason: "KILL_SWITCH"},
		schema.OrderInvalid{EventHeader: header(), ClientOrderID: clOrdID, Reason: "UNKNOWN_VENUE"},
		schema.OrderSubmitted{EventHeader: header(), AccountID: account, ClientOrderID: clOrdID, SubmittedTime: ts},
		schema.OrderRejected{EventHeader: header(), AccountID: account, ClientOrderID: clOrdID, RejectedTime: ts, Reason: "NO_MARGIN"},
		schema.OrderAccepted{EventHeader: header(), AccountID: account, ClientOrderID: clOrdID, OrderID: "V-1", AcceptedTime: ts},
		schema.OrderCancelReject{EventHeader: header(), ClientOrderID: clOrdID, RejectedTime: ts, ResponseTo: "CancelOrder", Reason: "ORDER_NOT_FOUND"},
		schema.OrderCancelled{EventHeader: header(), AccountID: account, ClientOrderID: clOrdID, OrderID: "V-1", CancelledTime: ts},
		schema.OrderAmended{EventHeader: header(), AccountID: account, ClientOrderID: clOrdID, OrderID: "V-1", Quantity: model.MustQuantity("1.000000"), Price: model.MustPrice("15500.00000"), AmendedTime: ts},
		schema.OrderExpired{EventHeader: header(), AccountID: account, ClientOrderID: clOrdID, OrderID: "V-1", ExpiredTime: ts},
		fill(),
		schema.PositionOpened{EventHeader: header(), Position: state, StrategyID: strategy, Fill: fill()},
		schema.PositionModified{EventHeader: header(), Position: state, StrategyID: strategy, Fill: fill()},
		schema.PositionClosed{EventHeader: header(), Position: state, StrategyID: strategy, Fill: fill()},
		schema.AccountState{
			EventHeader:    header(),
			AccountID:      account,
			Balances:       []model.Money{model.MoneyFromInt(1_525_000, model.USD)},
			BalancesFree:   []model.Money{model.MoneyFromInt(1_525_000, model.USD)},
			BalancesLocked: []model.Money{model.MoneyFromInt(0, model.USD)},
			Info:           map[string]string{"venue": "SIM"},
		},
	}
}

func TestEventRoundTrip(t *testing.T) {
	for _, ev := range events() {
		t.Run(ev.Kind().String(), func(t *testing.T) {
			data, err := EncodeEvent(ev)
			require.NoError(t, err)

			back, err := DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, ev.Kind(), back.Kind())
			assert.Equal(t, ev.EventID(), back.EventID())
			assert.True(t, ev.EventTime().Equal(back.EventTime()))
			assert.Equal(t, ev.String(), back.String())

			again, err := EncodeEvent(back)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	all := events()
	data, err := EncodeEvents(all)
	require.NoError(t, err)

	back, err := DecodeEvents(data)
	require.NoError(t, err)
	require.Len(t, back, len(all))
	for i := range all {
		assert.Equal(t, all[i].String(), back[i].String())
	}

	_, err = DecodeOrderEvents(data)
	assert.ErrorIs(t, err, exception.ErrTypeUnsupported)
}

func TestTypedLogs(t *testing.T) {
	f := fill()
	data, err := EncodeEvents([]schema.OrderEvent{
		schema.OrderSubmitted{EventHeader: header(), AccountID: account, ClientOrderID: clOrdID, SubmittedTime: ts},
		f,
	})
	require.NoError(t, err)

	orders, err := DecodeOrderEvents(data)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	got, ok := orders[1].(schema.OrderFilled)
	require.True(t, ok)
	assert.True(t, f.FillQty.Equal(got.FillQty))
	assert.Equal(t, f.Commission, got.Commission)
	assert.Equal(t, f.Symbol, got.Symbol)
	assert.Equal(t, f.LiquiditySide, got.LiquiditySide)
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		desc string
		data string
		err  error
	}{
		{desc: "unknown kind", data: `{"v":1,"kind":"MarketTrade","payload":{}}`, err: exception.ErrTypeUnsupported},
		{desc: "future version", data: `{"v":9,"kind":"OrderDenied","payload":{}}`, err: exception.ErrArgumentUnsupported},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tc.data))
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := DecodeEvent([]byte("not json"))
	assert.Error(t, err)
	_, err = EncodeEvent(nil)
	assert.ErrorIs(t, err, exception.ErrNilInstance)
}
