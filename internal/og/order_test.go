package og

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

var (
	traderID   = model.NewTraderID("TESTER", "000")
	strategyID = model.NewStrategyID("SCALPER", "001")
	accountID  = model.NewAccountID("SIM", "000")
	btcusdt    = model.NewSymbol("BTC/USDT", "BINANCE")
)

type fixture struct {
	clock   *clock.Test
	uuids   *ids.Sequential
	factory *OrderFactory
	execSeq int
}

func newFixture() *fixture {
	c := clock.NewTest(time.Unix(0, 0))
	u := ids.NewSequential(0)
	return &fixture{clock: c, uuids: u, factory: NewOrderFactory(traderID, strategyID, c, u)}
}

func (f *fixture) header() schema.EventHeader {
	return schema.NewHeader(f.uuids.New(), f.clock.Now())
}

func (f *fixture) submitted(o *Order) schema.OrderSubmitted {
	return schema.OrderSubmitted{EventHeader: f.header(), AccountID: accountID, ClientOrderID: o.ClientOrderID()}
}

func (f *fixture) accepted(o *Order) schema.OrderAccepted {
	return schema.OrderAccepted{EventHeader: f.header(), AccountID: accountID, ClientOrderID: o.ClientOrderID(), OrderID: "123456"}
}

func (f *fixture) filled(o *Order, qty, px string) schema.OrderFilled {
	f.execSeq++
	return schema.OrderFilled{
		EventHeader:   f.header(),
		AccountID:     accountID,
		ClientOrderID: o.ClientOrderID(),
		OrderID:       "123456",
		ExecutionID:   model.ExecutionID("E-" + string(rune('0'+f.execSeq))),
		StrategyID:    strategyID,
		Symbol:        o.Symbol(),
		Side:          o.Side(),
		FillQty:       model.MustQuantity(qty),
		FillPrice:     model.MustPrice(px),
		Currency:      model.USDT,
		Commission:    model.ZeroMoney(model.USDT),
		LiquiditySide: enum.LiquiditySideTaker,
	}
}

func (f *fixture) working(t *testing.T, qty string) *Order {
	t.Helper()
	o := f.factory.Market(btcusdt, enum.OrderSideBuy, model.MustQuantity(qty))
	mustApply(t, o, f.submitted(o))
	mustApply(t, o, f.accepted(o))
	return o
}

func mustApply(t *testing.T, o *Order, ev schema.OrderEvent) {
	t.Helper()
	outcome, err := o.Apply(ev)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)
}

func assertLeaves(t *testing.T, o *Order) {
	t.Helper()
	sum, err := o.FilledQty().Add(o.LeavesQty())
	require.NoError(t, err)
	assert.True(t, sum.Equal(o.Quantity()), "filled %s + leaves %s != %s", o.FilledQty(), o.LeavesQty(), o.Quantity())
}

func TestOrderLifecycleFilled(t *testing.T) {
	f := newFixture()
	o := f.factory.Market(btcusdt, enum.OrderSideBuy, model.MustQuantity("0.561000"))
	assert.Equal(t, enum.OrderStatusInitialized, o.Status())
	assertLeaves(t, o)

	mustApply(t, o, f.submitted(o))
	assert.Equal(t, enum.OrderStatusSubmitted, o.Status())
	assert.Equal(t, accountID, o.AccountID())

	mustApply(t, o, f.accepted(o))
	assert.Equal(t, enum.OrderStatusAccepted, o.Status())
	assert.Equal(t, model.OrderID("123456"), o.OrderID())

	fill := f.filled(o, "0.561000", "15600.12445")
	mustApply(t, o, fill)

	assert.Equal(t, enum.OrderStatusFilled, o.Status())
	assert.True(t, o.LeavesQty().IsZero())
	assert.True(t, o.AvgPx().Equal(fill.FillPrice.Decimal()), o.AvgPx().String())
	assert.True(t, o.IsTerminal())
	assert.Equal(t, 4, o.EventCount())
	assertLeaves(t, o)
}

func TestOrderPartialFillsAveragePrice(t *testing.T) {
	f := newFixture()
	o := f.working(t, "10")

	mustApply(t, o, f.filled(o, "4", "100"))
	assert.Equal(t, enum.OrderStatusPartiallyFilled, o.Status())
	assert.Equal(t, "6", o.LeavesQty().String())
	assertLeaves(t, o)

	mustApply(t, o, f.filled(o, "6", "110"))
	assert.Equal(t, enum.OrderStatusFilled, o.Status())
	assert.Equal(t, "106", o.AvgPx().String())
	assertLeaves(t, o)
}

func TestOrderIdempotentReplay(t *testing.T) {
	f := newFixture()
	o := f.working(t, "10")
	fill := f.filled(o, "4", "100")
	mustApply(t, o, fill)

	before := o.Events()

	outcome, err := o.Apply(fill)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	// same execution id under a new event id
	again := fill
	again.EventHeader = f.header()
	outcome, err = o.Apply(again)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	assert.Equal(t, before, o.Events())
	assert.Equal(t, "4", o.FilledQty().String())
}

func TestOrderInvalidTransitions(t *testing.T) {
	f := newFixture()

	testCases := []struct {
		desc  string
		setup func(*Order)
		event func(*Order) schema.OrderEvent
		state enum.OrderStatus
	}{
		{
			desc:  "accept before submit",
			setup: func(*Order) {},
			event: func(o *Order) schema.OrderEvent { return f.accepted(o) },
			state: enum.OrderStatusInitialized,
		},
		{
			desc:  "fill before accept",
			setup: func(o *Order) { _, _ = o.Apply(f.submitted(o)) },
			event: func(o *Order) schema.OrderEvent { return f.filled(o, "1", "100") },
			state: enum.OrderStatusSubmitted,
		},
		{
			desc: "cancel after fill",
			setup: func(o *Order) {
				_, _ = o.Apply(f.submitted(o))
				_, _ = o.Apply(f.accepted(o))
				_, _ = o.Apply(f.filled(o, "10", "100"))
			},
			event: func(o *Order) schema.OrderEvent {
				return schema.OrderCancelled{EventHeader: f.header(), AccountID: accountID, ClientOrderID: o.ClientOrderID()}
			},
			state: enum.OrderStatusFilled,
		},
		{
			desc:  "deny after submit",
			setup: func(o *Order) { _, _ = o.Apply(f.submitted(o)) },
			event: func(o *Order) schema.OrderEvent {
				return schema.OrderDenied{EventHeader: f.header(), ClientOrderID: o.ClientOrderID(), Reason: "X"}
			},
			state: enum.OrderStatusSubmitted,
		},
		{
			desc:  "second initialize",
			setup: func(*Order) {},
			event: func(o *Order) schema.OrderEvent {
				init := o.Init()
				init.EventHeader = f.header()
				return init
			},
			state: enum.OrderStatusInitialized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			o := f.factory.Market(btcusdt, enum.OrderSideBuy, model.QuantityFromInt(10))
			tc.setup(o)
			count := o.EventCount()

			outcome, err := o.Apply(tc.event(o))
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.ErrorIs(t, err, exception.ErrInvariantViolation)
			assert.Equal(t, OutcomeRejected, outcome)
			assert.Equal(t, tc.state, o.Status())
			assert.Equal(t, count, o.EventCount())
		})
	}
}

func TestOrderFillOverrun(t *testing.T) {
	f := newFixture()
	o := f.working(t, "10")
	mustApply(t, o, f.filled(o, "8", "100"))

	_, err := o.Apply(f.filled(o, "3", "100"))
	assert.ErrorIs(t, err, ErrFillOverrun)
	assert.Equal(t, "8", o.FilledQty().String())
	assert.Equal(t, enum.OrderStatusPartiallyFilled, o.Status())
	assertLeaves(t, o)

	_, err = o.Apply(f.filled(o, "2.0", "100"))
	assert.ErrorIs(t, err, ErrInvalidFill)
}

func TestOrderAmend(t *testing.T) {
	f := newFixture()
	o := f.working(t, "10")
	mustApply(t, o, f.filled(o, "4", "100"))

	amend := func(qty string) schema.OrderAmended {
		return schema.OrderAmended{
			EventHeader: f.header(), AccountID: accountID, ClientOrderID: o.ClientOrderID(),
			OrderID: "123456", Quantity: model.MustQuantity(qty), Price: model.MustPrice("101"),
		}
	}

	_, err := o.Apply(amend("3"))
	assert.ErrorIs(t, err, ErrInvalidAmend)
	_, err = o.Apply(amend("4"))
	assert.ErrorIs(t, err, ErrInvalidAmend)

	mustApply(t, o, amend("6"))
	assert.Equal(t, enum.OrderStatusPartiallyFilled, o.Status())
	assert.Equal(t, "6", o.Quantity().String())
	assert.Equal(t, "101", o.Price().String())
	assert.Equal(t, "2", o.LeavesQty().String())
	assertLeaves(t, o)
}

func TestOrderCancelRejectKeepsStatus(t *testing.T) {
	f := newFixture()
	o := f.working(t, "10")

	mustApply(t, o, schema.OrderCancelReject{
		EventHeader: f.header(), AccountID: accountID, ClientOrderID: o.ClientOrderID(),
		ResponseTo: "CancelOrder", Reason: "TOO_LATE",
	})
	assert.Equal(t, enum.OrderStatusAccepted, o.Status())
	assert.Equal(t, schema.EventOrderCancelReject, o.LastEvent().Kind())
}

func TestOrderReplay(t *testing.T) {
	f := newFixture()
	o := f.working(t, "10")
	mustApply(t, o, f.filled(o, "4", "100"))
	mustApply(t, o, f.filled(o, "6", "110"))

	back, err := Replay(o.Events())
	require.NoError(t, err)
	assert.Equal(t, o.Status(), back.Status())
	assert.True(t, o.AvgPx().Equal(back.AvgPx()))
	assert.Equal(t, o.EventCount(), back.EventCount())
	assert.True(t, back.HasExecution("E-1"))

	_, err = Replay(nil)
	assert.Error(t, err)
	_, err = Replay(o.Events()[1:])
	assert.Error(t, err)
}

func TestOrderWrongTarget(t *testing.T) {
	f := newFixture()
	a := f.factory.Market(btcusdt, enum.OrderSideBuy, model.QuantityFromInt(1))
	b := f.factory.Market(btcusdt, enum.OrderSideBuy, model.QuantityFromInt(1))

	_, err := a.Apply(f.submitted(b))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
