package store

import (
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/og"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/internal/state"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

var (
	trader   = model.NewTraderID("TESTER", "000")
	strategy = model.NewStrategyID("SCALPER", "001")
	account  = model.NewAccountID("SIM", "000")
	symbol   = model.NewSymbol("BTC/USDT", "BINANCE")
)

// database is the part of the execution database contract the stores implement.
type database interface {
	AddOrder(o *og.Order) error
	UpdateOrder(o *og.Order) error
	AddPosition(p *state.Position) error
	UpdatePosition(p *state.Position) error
	AddAccount(a *state.Account) error
	UpdateAccount(a *state.Account) error
	LoadOrder(id model.ClientOrderID) (*og.Order, error)
	LoadPosition(id model.PositionID) (*state.Position, error)
	LoadAccount(id model.AccountID) (*state.Account, error)
	LoadOrders() ([]*og.Order, error)
	LoadPositions() ([]*state.Position, error)
	LoadAccounts() ([]*state.Account, error)
	Close() error
}

var (
	_ database = Bypass{}
	_ database = (*Memory)(nil)
	_ database = (*Pebble)(nil)
	_ database = (*Postgres)(nil)
)

type entities struct {
	order    *og.Order
	position *state.Position
	account  *state.Account
}

func newEntities(t *testing.T) entities {
	t.Helper()
	c := clock.NewTest(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	u := ids.NewSequential(1)
	header := func() schema.EventHeader { return schema.NewHeader(u.New(), c.Now()) }

	o := og.NewOrder(schema.OrderInitialized{
		EventHeader:   header(),
		ClientOrderID: "O-1",
		StrategyID:    strategy,
		Symbol:        symbol,
		Side:          enum.OrderSideBuy,
		Type:          enum.OrderTypeMarket,
		Quantity:      model.MustQuantity("0.561000"),
		TimeInForce:   enum.TimeInForceIOC,
	})
	fill := schema.OrderFilled{
		EventHeader:   header(),
		AccountID:     account,
		ClientOrderID: "O-1",
		OrderID:       "V-1",
		ExecutionID:   "E-1",
		StrategyID:    strategy,
		Symbol:        symbol,
		Side:          enum.OrderSideBuy,
		FillQty:       model.MustQuantity("0.561000"),
		CumQty:        model.MustQuantity("0.561000"),
		LeavesQty:     model.MustQuantity("0.000000"),
		FillPrice:     model.MustPrice("15600.12445"),
		Currency:      model.USDT,
		Commission:    model.MustMoney("12.20000000", model.USDT),
		LiquiditySide: enum.LiquiditySideTaker,
	}
	for _, ev := range []schema.OrderEvent{
		schema.OrderSubmitted{EventHeader: header(), AccountID: account, ClientOrderID: "O-1"},
		schema.OrderAccepted{EventHeader: header(), AccountID: account, ClientOrderID: "O-1", OrderID: "V-1"},
		fill,
	} {
		_, err := o.Apply(ev)
		require.NoError(t, err)
	}

	agg := state.NewAggregator(trader, c, u)
	events, err := agg.ApplyFill(fill)
	require.NoError(t, err)
	require.Len(t, events, 1)
	p, ok := agg.Position(events[0].State().ID)
	require.True(t, ok)

	a := state.NewAccount(schema.AccountState{
		EventHeader:    header(),
		AccountID:      account,
		Balances:       []model.Money{model.MoneyFromInt(10_000, model.USDT)},
		BalancesFree:   []model.Money{model.MoneyFromInt(10_000, model.USDT)},
		BalancesLocked: []model.Money{model.MoneyFromInt(0, model.USDT)},
	})
	_, err = a.ApplyPnL(p.RealizedPnL(), header())
	require.NoError(t, err)

	return entities{order: o, position: p, account: a}
}

func exercise(t *testing.T, db database) {
	t.Helper()
	e := newEntities(t)

	_, err := db.LoadOrder("O-1")
	assert.ErrorIs(t, err, exception.ErrNotFound)

	require.NoError(t, db.AddOrder(e.order))
	require.NoError(t, db.UpdateOrder(e.order))
	require.NoError(t, db.AddPosition(e.position))
	require.NoError(t, db.UpdatePosition(e.position))
	require.NoError(t, db.AddAccount(e.account))
	require.NoError(t, db.UpdateAccount(e.account))

	o, err := db.LoadOrder("O-1")
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFilled, o.Status())
	assert.True(t, o.LeavesQty().IsZero())
	assert.Equal(t, e.order.AvgPx().String(), o.AvgPx().String())
	assert.Equal(t, e.order.EventCount(), o.EventCount())
	assert.True(t, o.HasExecution("E-1"))

	p, err := db.LoadPosition(e.position.ID())
	require.NoError(t, err)
	assert.Equal(t, e.position.State().Quantity, p.State().Quantity)
	assert.Equal(t, e.position.RealizedPnL(), p.RealizedPnL())
	assert.Equal(t, enum.PositionSideLong, p.Side())
	assert.Equal(t, 1, p.FillCount())

	a, err := db.LoadAccount(account)
	require.NoError(t, err)
	b, ok := a.Balance(model.USDT)
	require.True(t, ok)
	assert.Equal(t, "9,987.80000000 USDT", b.Total.String())

	orders, err := db.LoadOrders()
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	positions, err := db.LoadPositions()
	require.NoError(t, err)
	assert.Len(t, positions, 1)
	accounts, err := db.LoadAccounts()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, db.Close())
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exercise(t, m)
	assert.Equal(t, 3, m.Len())
}

func TestPebble(t *testing.T) {
	db, err := OpenPebble("exec", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	exercise(t, db)
}

func TestPebbleReopen(t *testing.T) {
	fs := vfs.NewMem()
	db, err := OpenPebble("exec", &pebble.Options{FS: fs})
	require.NoError(t, err)
	e := newEntities(t)
	require.NoError(t, db.AddOrder(e.order))
	require.NoError(t, db.Flush())
	require.NoError(t, db.Close())

	db, err = OpenPebble("exec", &pebble.Options{FS: fs})
	require.NoError(t, err)
	defer db.Close()
	o, err := db.LoadOrder("O-1")
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFilled, o.Status())

	positions, err := db.LoadPositions()
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestBypass(t *testing.T) {
	var db Bypass
	e := newEntities(t)
	require.NoError(t, db.AddOrder(e.order))
	_, err := db.LoadOrder("O-1")
	assert.ErrorIs(t, err, exception.ErrNotFound)
	orders, err := db.LoadOrders()
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "a:SIM-000", accountKey(account))
	prefix, id := splitKey(positionKey("P-1"))
	assert.Equal(t, PrefixPosition, prefix)
	assert.Equal(t, "P-1", id)

	table, id, err := tableOf(orderKey("O-1"))
	require.NoError(t, err)
	assert.Equal(t, TableOrders, table)
	assert.Equal(t, "O-1", id)
	_, _, err = tableOf("x:1")
	assert.Error(t, err)

	assert.Equal(t, []byte("o;"), upperBound([]byte("o:")))
	assert.Nil(t, upperBound([]byte{0xff}))
}
