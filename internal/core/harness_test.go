package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/obs"
	"github.com/tianhm/nautilus-trader/internal/portfolio"
	"github.com/tianhm/nautilus-trader/internal/schema"
)

var (
	traderID   = model.NewTraderID("TESTER", "000")
	strategyID = model.NewStrategyID("SCALPER", "001")
	accountID  = model.NewAccountID("SIM", "001")
	venue      = model.Venue("SIM")
	audusd     = model.NewSymbol("AUD/USD", venue)
)

type fakeClient struct {
	mu      sync.Mutex
	venue   model.Venue
	err     error
	submits []schema.SubmitOrder
	cancels []schema.CancelOrder
	amends  []schema.AmendOrder
}

func (c *fakeClient) Venue() model.Venue         { return c.venue }
func (c *fakeClient) AccountID() model.AccountID { return accountID }

func (c *fakeClient) Submit(cmd schema.SubmitOrder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits = append(c.submits, cmd)
	return c.err
}

func (c *fakeClient) Cancel(cmd schema.CancelOrder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels = append(c.cancels, cmd)
	return c.err
}

func (c *fakeClient) Amend(cmd schema.AmendOrder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.amends = append(c.amends, cmd)
	return c.err
}

func (c *fakeClient) submitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.submits)
}

func (c *fakeClient) cancelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cancels)
}

type fakeStrategy struct {
	mu     sync.Mutex
	id     model.StrategyID
	events []schema.Event
	hook   func(ev schema.Event)
}

func (s *fakeStrategy) ID() model.StrategyID { return s.id }

func (s *fakeStrategy) OnEvent(ev schema.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
}

func (s *fakeStrategy) kinds() []schema.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.EventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind()
	}
	return out
}

func (s *fakeStrategy) last() schema.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

func (s *fakeStrategy) forOrder(id model.ClientOrderID) []schema.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.EventKind
	for _, ev := range s.events {
		if oe, ok := ev.(schema.OrderEvent); ok && oe.ClOrdID() == id {
			out = append(out, ev.Kind())
		}
	}
	return out
}

// events builds commands and venue events with deterministic ids and times.
type events struct {
	clock *clock.Test
	uuids *ids.Sequential
}

func newEvents(seed uint64) *events {
	return &events{clock: clock.NewTest(time.Unix(0, 0)), uuids: ids.NewSequential(seed)}
}

func (f *events) header() schema.EventHeader {
	return schema.NewHeader(f.uuids.New(), f.clock.Now())
}

func (f *events) submit(id string, side enum.OrderSide, qty, price string) schema.SubmitOrder {
	init := schema.OrderInitialized{
		EventHeader:   f.header(),
		ClientOrderID: model.ClientOrderID(id),
		StrategyID:    strategyID,
		Symbol:        audusd,
		Side:          side,
		Type:          enum.OrderTypeMarket,
		Quantity:      model.MustQuantity(qty),
		TimeInForce:   enum.TimeInForceGTC,
	}
	if price != "" {
		init.Type = enum.OrderTypeLimit
		init.Price = model.MustPrice(price)
	}
	return schema.SubmitOrder{
		CommandHeader: schema.CommandHeader{
			TraderID:   traderID,
			AccountID:  accountID,
			StrategyID: strategyID,
			CommandID:  f.uuids.New(),
			Timestamp:  f.clock.Now(),
		},
		Venue: venue,
		Order: init,
	}
}

func (f *events) commandHeader() schema.CommandHeader {
	return schema.CommandHeader{
		TraderID:   traderID,
		AccountID:  accountID,
		StrategyID: strategyID,
		CommandID:  f.uuids.New(),
		Timestamp:  f.clock.Now(),
	}
}

func (f *events) submitted(id string) schema.OrderSubmitted {
	return schema.OrderSubmitted{
		EventHeader:   f.header(),
		AccountID:     accountID,
		ClientOrderID: model.ClientOrderID(id),
		SubmittedTime: f.clock.Now(),
	}
}

func (f *events) accepted(id string) schema.OrderAccepted {
	return schema.OrderAccepted{
		EventHeader:   f.header(),
		AccountID:     accountID,
		ClientOrderID: model.ClientOrderID(id),
		OrderID:       model.OrderID("V-" + id),
		AcceptedTime:  f.clock.Now(),
	}
}

func (f *events) cancelled(id string) schema.OrderCancelled {
	return schema.OrderCancelled{
		EventHeader:   f.header(),
		AccountID:     accountID,
		ClientOrderID: model.ClientOrderID(id),
		OrderID:       model.OrderID("V-" + id),
		CancelledTime: f.clock.Now(),
	}
}

// fill is a venue fill report. Strategy, symbol and side are left for the engine to fill in.
func (f *events) fill(id, execID string, qty, price, commission string) schema.OrderFilled {
	return schema.OrderFilled{
		EventHeader:   f.header(),
		AccountID:     accountID,
		ClientOrderID: model.ClientOrderID(id),
		OrderID:       model.OrderID("V-" + id),
		ExecutionID:   model.ExecutionID(execID),
		FillQty:       model.MustQuantity(qty),
		FillPrice:     model.MustPrice(price),
		Currency:      model.USD,
		Commission:    model.MustMoney(commission, model.USD),
		LiquiditySide: enum.LiquiditySideTaker,
		ExecutionTime: f.clock.Now(),
	}
}

func (f *events) account(total string) schema.AccountState {
	return schema.AccountState{
		EventHeader:    f.header(),
		AccountID:      accountID,
		Balances:       []model.Money{model.MustMoney(total, model.USD)},
		BalancesFree:   []model.Money{model.MustMoney(total, model.USD)},
		BalancesLocked: []model.Money{model.ZeroMoney(model.USD)},
	}
}

type harness struct {
	*events
	engine    *Engine
	client    *fakeClient
	strategy  *fakeStrategy
	portfolio *portfolio.Portfolio
	metrics   *obs.Metrics
}

func newHarness(t testing.TB, deps Deps) *harness {
	t.Helper()
	return newSeededHarness(t, deps, 0)
}

// newSeededHarness starts event ids after seed, so a second harness never reuses the ids of a first.
func newSeededHarness(t testing.TB, deps Deps, seed uint64) *harness {
	t.Helper()
	f := newEvents(seed)
	h := &harness{
		events:    f,
		client:    &fakeClient{venue: venue},
		strategy:  &fakeStrategy{id: strategyID},
		portfolio: portfolio.New(),
		metrics:   obs.NewMetrics(),
	}
	deps.Clock, deps.UUIDs = f.clock, f.uuids
	deps.Portfolio, deps.Metrics = h.portfolio, h.metrics
	h.engine = New(Config{TraderID: traderID}, deps)
	require.NoError(t, h.engine.RegisterClient(h.client))
	require.NoError(t, h.engine.RegisterStrategy(h.strategy))
	return h
}

func (h *harness) process(t *testing.T, evs ...schema.Event) {
	t.Helper()
	for _, ev := range evs {
		require.NoError(t, h.engine.Process(ev), "process %s", ev)
	}
}

// working submits id and takes it to ACCEPTED.
func (h *harness) working(t *testing.T, id string, side enum.OrderSide, qty, price string) {
	t.Helper()
	require.NoError(t, h.engine.Execute(h.submit(id, side, qty, price)))
	h.process(t, h.submitted(id), h.accepted(id))
}
