package state

import (
	"path/filepath"
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
	audusd     = model.NewSymbol("AUD/USD", "SIM")
)

type fixture struct {
	clock *clock.Test
	uuids *ids.Sequential
	agg   *Aggregator
	n     int
}

func newFixture() *fixture {
	c := clock.NewTest(time.Unix(0, 0))
	u := ids.NewSequential(1000)
	return &fixture{clock: c, uuids: u, agg: NewAggregator(traderID, c, u)}
}

func (f *fixture) fill(side enum.OrderSide, qty uint32, px, commission string) schema.OrderFilled {
	f.n++
	return schema.OrderFilled{
		EventHeader:   schema.NewHeader(f.uuids.New(), f.clock.Now()),
		AccountID:     accountID,
		ClientOrderID: model.ClientOrderID("O-" + string(rune('A'+f.n))),
		OrderID:       "1",
		ExecutionID:   model.ExecutionID("E-" + string(rune('A'+f.n))),
		StrategyID:    strategyID,
		Symbol:        audusd,
		Side:          side,
		FillQty:       model.QuantityFromInt(qty),
		FillPrice:     model.MustPrice(px),
		Currency:      model.USD,
		Commission:    model.MustMoney(commission, model.USD),
		LiquiditySide: enum.LiquiditySideTaker,
	}
}

func (f *fixture) apply(t *testing.T, fill schema.OrderFilled) []schema.PositionEvent {
	t.Helper()
	events, err := f.agg.ApplyFill(fill)
	require.NoError(t, err)
	return events
}

func TestAggregatorLifecycle(t *testing.T) {
	f := newFixture()

	events := f.apply(t, f.fill(enum.OrderSideBuy, 10, "100", "1"))
	require.Len(t, events, 1)
	opened, ok := events[0].(schema.PositionOpened)
	require.True(t, ok)
	id := opened.Position.ID
	assert.Equal(t, model.PositionID("P-19700101-000000-000-001-1"), id)
	assert.Equal(t, id, opened.Fill.PositionID)
	assert.Equal(t, enum.PositionSideLong, opened.Position.Side)
	assert.Equal(t, "-1.00 USD", opened.Position.RealizedPnL.String())
	assert.Equal(t, strategyID, opened.Strategy())

	events = f.apply(t, f.fill(enum.OrderSideBuy, 10, "110", "1"))
	require.Len(t, events, 1)
	state := events[0].State()
	assert.Equal(t, schema.EventPositionModified, events[0].Kind())
	assert.Equal(t, "105", state.AvgOpen.String())
	assert.Equal(t, "20", state.Quantity.String())

	events = f.apply(t, f.fill(enum.OrderSideSell, 5, "120", "0.5"))
	require.Len(t, events, 1)
	state = events[0].State()
	assert.Equal(t, schema.EventPositionModified, events[0].Kind())
	assert.Equal(t, "105", state.AvgOpen.String(), "reducing fills keep the average open")
	assert.Equal(t, "72.50 USD", state.RealizedPnL.String())
	assert.Equal(t, "15", state.Quantity.String())

	events = f.apply(t, f.fill(enum.OrderSideSell, 15, "105", "0"))
	require.Len(t, events, 1)
	closed, ok := events[0].(schema.PositionClosed)
	require.True(t, ok)
	assert.Equal(t, enum.PositionSideFlat, closed.Position.Side)
	assert.Equal(t, "72.50 USD", closed.Position.RealizedPnL.String())
	assert.Equal(t, "2.50 USD", closed.Position.Commissions.String())
	assert.Equal(t, "20", closed.Position.PeakQuantity.String())

	pos, ok := f.agg.Position(id)
	require.True(t, ok)
	assert.True(t, pos.IsClosed())
	assert.Empty(t, f.agg.OpenPositions())

	events = f.apply(t, f.fill(enum.OrderSideBuy, 1, "100", "0"))
	require.Len(t, events, 1)
	assert.Equal(t, schema.EventPositionOpened, events[0].Kind())
	assert.NotEqual(t, id, events[0].State().ID, "a closed position is never reopened")
	assert.Equal(t, 2, f.agg.Count())
}

func TestAggregatorFlip(t *testing.T) {
	f := newFixture()
	f.apply(t, f.fill(enum.OrderSideBuy, 15, "105", "0"))

	events := f.apply(t, f.fill(enum.OrderSideSell, 25, "100", "2.5"))
	require.Len(t, events, 2)

	closed, ok := events[0].(schema.PositionClosed)
	require.True(t, ok)
	opened, ok := events[1].(schema.PositionOpened)
	require.True(t, ok)

	assert.Equal(t, "-76.50 USD", closed.Position.RealizedPnL.String())
	assert.Equal(t, closed.Position.ID, closed.Fill.PositionID)
	assert.NotEqual(t, closed.Position.ID, opened.Position.ID)

	assert.Equal(t, enum.PositionSideShort, opened.Position.Side)
	assert.Equal(t, "10", opened.Position.Quantity.String())
	assert.Equal(t, "-10", opened.Position.SignedQty().String())
	assert.Equal(t, "100", opened.Position.AvgOpen.String())
	assert.Equal(t, "-1.00 USD", opened.Position.RealizedPnL.String())
	assert.Equal(t, opened.Position.ID, opened.Fill.PositionID)

	events = f.apply(t, f.fill(enum.OrderSideBuy, 10, "90", "0"))
	require.Len(t, events, 1)
	assert.Equal(t, schema.EventPositionClosed, events[0].Kind())
	assert.Equal(t, "99.00 USD", events[0].State().RealizedPnL.String())
}

func TestAggregatorIdempotent(t *testing.T) {
	f := newFixture()
	fill := f.fill(enum.OrderSideBuy, 10, "100", "0")
	f.apply(t, fill)
	before := f.agg.Snapshot()

	assert.Empty(t, f.apply(t, fill))

	again := fill
	again.EventHeader = schema.NewHeader(f.uuids.New(), f.clock.Now())
	assert.Empty(t, f.apply(t, again))

	require.NoError(t, CompareSnapshots(before, f.agg.Snapshot()))
	pos, ok := f.agg.OpenPosition(accountID, audusd)
	require.True(t, ok)
	assert.Equal(t, 1, pos.FillCount())
	assert.Equal(t, "10", f.agg.NetQty(accountID, audusd).String())
}

func TestAggregatorRejectsBadFills(t *testing.T) {
	f := newFixture()
	f.apply(t, f.fill(enum.OrderSideBuy, 10, "100", "0"))

	testCases := []struct {
		desc   string
		mutate func(*schema.OrderFilled)
		err    error
	}{
		{desc: "zero qty", mutate: func(e *schema.OrderFilled) { e.FillQty = model.QuantityFromInt(0) }, err: ErrInvalidFill},
		{desc: "no side", mutate: func(e *schema.OrderFilled) { e.Side = 0 }, err: ErrInvalidFill},
		{desc: "currency", mutate: func(e *schema.OrderFilled) { e.Currency = model.EUR; e.Commission = model.ZeroMoney(model.EUR) }, err: exception.ErrCurrencyMismatch},
		{desc: "commission currency", mutate: func(e *schema.OrderFilled) { e.Commission = model.MoneyFromInt(1, model.EUR) }, err: exception.ErrCurrencyMismatch},
		{desc: "precision", mutate: func(e *schema.OrderFilled) { e.FillQty = model.MustQuantity("1.5") }, err: exception.ErrPrecisionMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			fill := f.fill(enum.OrderSideBuy, 1, "100", "0")
			tc.mutate(&fill)
			assert.ErrorIs(t, f.agg.Check(fill), tc.err)
			events, err := f.agg.ApplyFill(fill)
			assert.ErrorIs(t, err, tc.err)
			assert.Empty(t, events)
		})
	}

	pos, _ := f.agg.OpenPosition(accountID, audusd)
	assert.Equal(t, "10", pos.Quantity().String())
}

func TestAggregatorSeparatesAccountsAndSymbols(t *testing.T) {
	f := newFixture()
	a := f.fill(enum.OrderSideBuy, 1, "100", "0")
	b := f.fill(enum.OrderSideSell, 2, "100", "0")
	b.Symbol = model.NewSymbol("EUR/USD", "SIM")
	c := f.fill(enum.OrderSideSell, 3, "100", "0")
	c.AccountID = model.NewAccountID("SIM", "001")

	f.apply(t, a)
	f.apply(t, b)
	f.apply(t, c)
	assert.Len(t, f.agg.OpenPositions(), 3)
	assert.Equal(t, "-2", f.agg.NetQty(accountID, b.Symbol).String())
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	f := newFixture()
	f.apply(t, f.fill(enum.OrderSideBuy, 10, "100", "1"))
	f.apply(t, f.fill(enum.OrderSideSell, 4, "101.5", "0"))

	path := filepath.Join(t.TempDir(), "snap", "positions.json")
	snap := f.agg.Snapshot()
	require.NoError(t, WriteSnapshot(path, snap))

	back, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.NoError(t, CompareSnapshots(snap, back))
	assert.Equal(t, snap.Positions[0].AvgOpen, back.Positions[0].AvgOpen)

	other := newFixture()
	other.apply(t, other.fill(enum.OrderSideBuy, 9, "100", "1"))
	assert.Error(t, CompareSnapshots(snap, other.agg.Snapshot()))
	assert.Error(t, CompareSnapshots(snap, Snapshot{}))
}

func TestRestorePosition(t *testing.T) {
	f := newFixture()
	first := f.fill(enum.OrderSideBuy, 10, "100", "1")
	f.apply(t, first)
	f.apply(t, f.fill(enum.OrderSideSell, 4, "110", "0"))
	pos, _ := f.agg.OpenPosition(accountID, audusd)

	restored, err := RestorePosition(pos.Events())
	require.NoError(t, err)
	assert.Equal(t, pos.State(), restored.State())

	fresh := NewAggregator(traderID, f.clock, f.uuids)
	require.NoError(t, fresh.Load(restored))
	assert.Error(t, fresh.Load(restored))

	events, err := fresh.ApplyFill(first)
	require.NoError(t, err)
	assert.Empty(t, events, "restored fills are deduplicated")

	events, err = fresh.ApplyFill(f.fill(enum.OrderSideSell, 6, "120", "0"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, schema.EventPositionClosed, events[0].Kind())

	events, err = fresh.ApplyFill(f.fill(enum.OrderSideBuy, 1, "120", "0"))
	require.NoError(t, err)
	assert.Equal(t, model.PositionID("P-19700101-000000-000-001-2"), events[0].State().ID)

	_, err = RestorePosition(nil)
	assert.Error(t, err)
	_, err = RestorePosition(pos.Events()[1:])
	assert.Error(t, err)
}
