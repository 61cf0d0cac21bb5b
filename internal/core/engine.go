/*
Core implements the execution engine.

# Module
  - order state machine: applies venue events to orders, one client order id at a time
  - position aggregator: folds fills into net positions per account and symbol
  - accounts: balances from venue account states plus relayed realized P&L
  - risk engine: denies submit commands before they reach a venue

# Source
 1. commands from strategies through Execute
 2. venue events from execution clients through Process

# Produce
  - commands to execution clients
  - order and position events to strategies
  - position and account events to the portfolio
  - entity updates to the execution database
*/
package core

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/obs"
	"github.com/tianhm/nautilus-trader/internal/og"
	"github.com/tianhm/nautilus-trader/internal/risk"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/internal/state"
	"github.com/tianhm/nautilus-trader/internal/store"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

const defaultErrorBuffer = 64

// Reasons carried by OrderInvalid, OrderDenied and OrderCancelReject events the engine emits itself.
const (
	ReasonDuplicateClOrdID  = "DUPLICATE_CL_ORD_ID"
	ReasonUnknownVenue      = "UNKNOWN_VENUE"
	ReasonUnknownInstrument = "UNKNOWN_INSTRUMENT"
	ReasonInvalidOrder      = "INVALID_ORDER"
	ReasonInvalidQuantity   = "INVALID_QUANTITY"
	ReasonInvalidPrice      = "INVALID_PRICE"
	ReasonPrecision         = "PRECISION_MISMATCH"
	ReasonClientError       = "CLIENT_ERROR"
	ReasonOrderNotFound     = "ORDER_NOT_FOUND"
	ReasonOrderCompleted    = "ORDER_COMPLETED"
)

var (
	ErrUnknownVenue   = fmt.Errorf("%w: no execution client for venue", exception.ErrCommandRejected)
	ErrMalformedOrder = fmt.Errorf("%w: malformed order", exception.ErrCommandRejected)
	ErrRiskDenied     = fmt.Errorf("%w: denied by risk", exception.ErrCommandRejected)
	ErrClientFailure  = fmt.Errorf("%w: execution client failed", exception.ErrCommandRejected)
	ErrCannotModify   = fmt.Errorf("%w: order cannot be modified", exception.ErrCommandRejected)
	ErrFillClamped    = fmt.Errorf("%w: fill clamped to leaves quantity", exception.ErrInvariantViolation)
	ErrUnexpectedKind = fmt.Errorf("%w: event kind is produced by the engine", exception.ErrTypeUnsupported)
)

// Config holds engine settings.
type Config struct {
	TraderID model.TraderID
	// ErrorBuffer is the capacity of the Errors channel.
	ErrorBuffer int
}

// Deps are the engine's collaborators. Nil members fall back to the live clock, random UUIDs and the
// bypass database. A nil portfolio, risk engine, instrument registry or metrics disables that concern.
type Deps struct {
	Clock       clock.Clock
	UUIDs       ids.Factory
	Database    ExecutionDatabase
	Portfolio   Portfolio
	Risk        *risk.Engine
	Instruments *model.InstrumentRegistry
	Metrics     *obs.Metrics
}

type delivery struct {
	strategy  Strategy
	portfolio bool
	ev        schema.Event
}

// Engine is the synchronous execution engine. It is not safe for concurrent use; LiveEngine adds the
// serialization a live deployment needs.
type Engine struct {
	trader      model.TraderID
	clock       clock.Clock
	uuids       ids.Factory
	db          ExecutionDatabase
	portfolio   Portfolio
	risk        *risk.Engine
	instruments *model.InstrumentRegistry
	metrics     *obs.Metrics

	clients    map[model.Venue]ExecutionClient
	strategies map[model.StrategyID]Strategy
	orders     *og.StateMachine
	positions  *state.Aggregator
	accounts   map[model.AccountID]*state.Account
	realized   map[model.PositionID]model.Money

	errs     chan error
	deferred bool
	outbox   []delivery
}

// New creates an engine.
func New(cfg Config, deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = clock.Live{}
	}
	if deps.UUIDs == nil {
		deps.UUIDs = ids.Random{}
	}
	if deps.Database == nil {
		deps.Database = store.Bypass{}
	}
	if cfg.ErrorBuffer <= 0 {
		cfg.ErrorBuffer = defaultErrorBuffer
	}
	return &Engine{
		trader:      cfg.TraderID,
		clock:       deps.Clock,
		uuids:       deps.UUIDs,
		db:          deps.Database,
		portfolio:   deps.Portfolio,
		risk:        deps.Risk,
		instruments: deps.Instruments,
		metrics:     deps.Metrics,
		clients:     make(map[model.Venue]ExecutionClient),
		strategies:  make(map[model.StrategyID]Strategy),
		orders:      og.NewStateMachine(),
		positions:   state.NewAggregator(cfg.TraderID, deps.Clock, deps.UUIDs),
		accounts:    make(map[model.AccountID]*state.Account),
		realized:    make(map[model.PositionID]model.Money),
		errs:        make(chan error, cfg.ErrorBuffer),
	}
}

// RegisterClient binds client under its venue, replacing any client bound before.
func (e *Engine) RegisterClient(client ExecutionClient) error {
	if client == nil {
		return exception.ErrNilInstance
	}
	venue := client.Venue()
	if venue.IsNull() {
		return errors.Wrap(exception.ErrInvalidIdentifier, "client venue is empty")
	}
	if _, ok := e.clients[venue]; ok {
		logs.Warnf("execution client for %s replaced", venue)
	} else {
		logs.Infof("execution client for %s registered", venue)
	}
	e.clients[venue] = client
	return nil
}

// DeregisterClient removes the client bound to venue.
func (e *Engine) DeregisterClient(venue model.Venue) {
	if _, ok := e.clients[venue]; ok {
		delete(e.clients, venue)
		logs.Infof("execution client for %s deregistered", venue)
	}
}

// UpdateRisk replaces the pre-trade risk engine when cfg carries a different version.
// It reports whether the engine was replaced.
func (e *Engine) UpdateRisk(cfg risk.Config) bool {
	if e.risk != nil && e.risk.Config().Version == cfg.Version {
		return false
	}
	e.risk = risk.NewEngine(cfg)
	logs.Infof("risk limits updated, version: %d", cfg.Version)
	return true
}

// RegisterStrategy binds s so events for its orders are routed back to it.
func (e *Engine) RegisterStrategy(s Strategy) error {
	if s == nil {
		return exception.ErrNilInstance
	}
	e.strategies[s.ID()] = s
	logs.Infof("strategy %s registered", s.ID())
	return nil
}

// Errors reports invariant violations and persistence failures. Reports are dropped when the buffer
// is full.
func (e *Engine) Errors() <-chan error { return e.errs }

// Execute validates cmd and forwards it to its venue client. A refused command returns an error
// wrapping exception.ErrCommandRejected after the refusal event has been sent to the strategy.
func (e *Engine) Execute(cmd schema.Command) error {
	dispatch, err := e.prepare(cmd)
	if dispatch == nil {
		return err
	}
	if cerr := dispatch(); cerr != nil {
		return e.clientFailed(cmd, cerr)
	}
	return nil
}

// prepare validates and records cmd. It returns the venue call to make when cmd is accepted.
func (e *Engine) prepare(cmd schema.Command) (func() error, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveExecute(time.Since(start)) }()
	e.metrics.IncCommand()

	switch c := cmd.(type) {
	case schema.SubmitOrder:
		return e.prepareSubmit(c)
	case schema.CancelOrder:
		client, err := e.prepareModify(c.Header(), c.Venue, c.ClientOrderID, schema.CommandCancelOrder)
		if err != nil {
			return nil, err
		}
		return func() error { return client.Cancel(c) }, nil
	case schema.AmendOrder:
		client, err := e.prepareModify(c.Header(), c.Venue, c.ClientOrderID, schema.CommandAmendOrder)
		if err != nil {
			return nil, err
		}
		return func() error { return client.Amend(c) }, nil
	case nil:
		return nil, exception.ErrNilInstance
	default:
		return nil, errors.Wrapf(exception.ErrTypeUnsupported, "command %s", cmd.Kind())
	}
}

func (e *Engine) prepareSubmit(cmd schema.SubmitOrder) (func() error, error) {
	init := cmd.Order
	if init.ClientOrderID.IsNull() {
		return nil, errors.Wrap(ErrMalformedOrder, "client order id is empty")
	}
	if init.StrategyID == (model.StrategyID{}) {
		init.StrategyID = cmd.StrategyID
	}

	if _, exists := e.orders.Order(init.ClientOrderID); exists {
		e.metrics.IncRejection(ReasonDuplicateClOrdID)
		logs.Warnf("submit %s refused, duplicate client order id", init.ClientOrderID)
		e.emit(e.strategies[init.StrategyID], false, schema.OrderInvalid{
			EventHeader:   e.header(),
			ClientOrderID: init.ClientOrderID,
			Reason:        ReasonDuplicateClOrdID,
		})
		return nil, errors.Wrapf(og.ErrDuplicateOrder, "%s", init.ClientOrderID)
	}

	o := og.NewOrder(init)
	if !cmd.PositionID.IsNull() {
		o.SetPositionID(cmd.PositionID)
	}
	if err := e.orders.Add(o); err != nil {
		return nil, err
	}
	e.persist(e.db.AddOrder(o), "add order %s", o.ClientOrderID())

	client, ok := e.clients[cmd.Venue]
	if !ok {
		return nil, e.refuse(o, false, ReasonUnknownVenue, errors.Wrapf(ErrUnknownVenue, "%s", cmd.Venue))
	}
	if reason, ok := e.malformed(init); !ok {
		return nil, e.refuse(o, false, reason, errors.Wrapf(ErrMalformedOrder, "%s: %s", init.ClientOrderID, reason))
	}
	decision := e.risk.Evaluate(init, risk.StateView{
		Position: e.positions.NetQty(cmd.AccountID, init.Symbol),
		Now:      e.clock.Now(),
	})
	if !decision.Allowed {
		reason := string(decision.Reason)
		return nil, e.refuse(o, true, reason, errors.Wrapf(ErrRiskDenied, "%s: %s", init.ClientOrderID, reason))
	}

	cmd.Order = init
	return func() error { return client.Submit(cmd) }, nil
}

// malformed reports the reason a new order cannot be sent, if any.
func (e *Engine) malformed(init schema.OrderInitialized) (string, bool) {
	if !init.Side.IsAvailable() || !init.Type.IsAvailable() {
		return ReasonInvalidOrder, false
	}
	if !init.Quantity.IsPositive() {
		return ReasonInvalidQuantity, false
	}
	if init.Type.HasPrice() && init.Price.IsZero() {
		return ReasonInvalidPrice, false
	}
	if e.instruments == nil {
		return "", true
	}
	ins, ok := e.instruments.Instrument(init.Symbol)
	if !ok {
		return ReasonUnknownInstrument, false
	}
	if init.Quantity.Precision() != ins.SizePrecision {
		return ReasonPrecision, false
	}
	if init.Type.HasPrice() && init.Price.Precision() != ins.PricePrecision {
		return ReasonPrecision, false
	}
	return "", true
}

// refuse terminates o with OrderInvalid or OrderDenied and returns cause.
func (e *Engine) refuse(o *og.Order, denied bool, reason string, cause error) error {
	e.metrics.IncRejection(reason)
	logs.Infof("submit %s refused: %s", o.ClientOrderID(), reason)

	var ev schema.OrderEvent
	if denied {
		ev = schema.OrderDenied{EventHeader: e.header(), ClientOrderID: o.ClientOrderID(), Reason: reason}
	} else {
		ev = schema.OrderInvalid{EventHeader: e.header(), ClientOrderID: o.ClientOrderID(), Reason: reason}
	}
	if _, err := o.Apply(ev); err != nil {
		e.violation(err, ev)
		return cause
	}
	e.persist(e.db.UpdateOrder(o), "update order %s", o.ClientOrderID())
	e.emit(e.strategies[o.StrategyID()], false, ev)
	return cause
}

func (e *Engine) prepareModify(h schema.CommandHeader, venue model.Venue, id model.ClientOrderID, kind schema.CommandKind) (ExecutionClient, error) {
	o, ok := e.orders.Order(id)
	if !ok {
		e.cancelReject(nil, h.StrategyID, id, kind, ReasonOrderNotFound)
		return nil, errors.Wrapf(ErrCannotModify, "%s %s: %s", kind, id, ReasonOrderNotFound)
	}
	if o.IsTerminal() {
		e.cancelReject(o, o.StrategyID(), id, kind, ReasonOrderCompleted)
		return nil, errors.Wrapf(ErrCannotModify, "%s %s: %s", kind, id, ReasonOrderCompleted)
	}
	client, ok := e.clients[venue]
	if !ok {
		e.cancelReject(o, o.StrategyID(), id, kind, ReasonUnknownVenue)
		return nil, errors.Wrapf(ErrUnknownVenue, "%s", venue)
	}
	return client, nil
}

// cancelReject records a refused cancel or amend on o, when known, and sends it to the strategy.
func (e *Engine) cancelReject(o *og.Order, strategy model.StrategyID, id model.ClientOrderID, kind schema.CommandKind, reason string) {
	e.metrics.IncRejection(reason)
	logs.Infof("%s %s refused: %s", kind, id, reason)

	ev := schema.OrderCancelReject{
		EventHeader:   e.header(),
		ClientOrderID: id,
		RejectedTime:  e.clock.Now(),
		ResponseTo:    kind.String(),
		Reason:        reason,
	}
	if o != nil {
		ev.AccountID, ev.OrderID = o.AccountID(), o.OrderID()
		if _, err := o.Apply(ev); err != nil {
			e.violation(err, ev)
			return
		}
		e.persist(e.db.UpdateOrder(o), "update order %s", id)
	}
	e.emit(e.strategies[strategy], false, ev)
}

// clientFailed handles a synchronous error from a venue call.
func (e *Engine) clientFailed(cmd schema.Command, cause error) error {
	err := errors.Wrapf(ErrClientFailure, "%s %s: %v", cmd.Kind(), cmd.ClOrdID(), cause)
	logs.Errorf("%s", err)

	o, ok := e.orders.Order(cmd.ClOrdID())
	if !ok {
		return err
	}
	switch cmd.(type) {
	case schema.SubmitOrder:
		if o.Status() == enum.OrderStatusInitialized {
			_ = e.refuse(o, true, ReasonClientError, err)
		}
	default:
		if !o.IsTerminal() {
			e.cancelReject(o, o.StrategyID(), o.ClientOrderID(), cmd.Kind(), ReasonClientError)
		}
	}
	return err
}

// Process applies a venue event. Duplicates return nil. An event that cannot be applied leaves its
// entity unchanged, and the error is also sent on Errors.
func (e *Engine) Process(ev schema.Event) error {
	start := time.Now()
	defer func() { e.metrics.ObserveProcess(time.Since(start)) }()
	if ev == nil {
		return exception.ErrNilInstance
	}
	e.metrics.ObserveEvent(ev.Kind())

	switch v := ev.(type) {
	case schema.OrderFilled:
		return e.processFill(v)
	case schema.OrderInitialized:
		return e.violation(errors.Wrapf(ErrUnexpectedKind, "%s", v.Kind()), v)
	case schema.OrderDenied, schema.OrderInvalid, schema.OrderSubmitted, schema.OrderRejected,
		schema.OrderAccepted, schema.OrderCancelReject, schema.OrderCancelled, schema.OrderAmended,
		schema.OrderExpired:
		return e.processOrderEvent(v.(schema.OrderEvent))
	case schema.AccountState:
		return e.processAccount(v)
	case schema.PositionOpened, schema.PositionModified, schema.PositionClosed:
		return e.violation(errors.Wrapf(ErrUnexpectedKind, "%s", v.Kind()), v)
	default:
		return e.violation(errors.Wrapf(exception.ErrTypeUnsupported, "%s", ev.Kind()), ev)
	}
}

func (e *Engine) processOrderEvent(ev schema.OrderEvent) error {
	o, outcome, err := e.orders.Apply(ev)
	if err != nil {
		return e.violation(err, ev)
	}
	if outcome == og.OutcomeDuplicate {
		e.metrics.IncDuplicate()
		return nil
	}
	if _, ok := ev.(schema.OrderCancelReject); ok {
		logs.Warnf("%s", ev)
	}
	e.persist(e.db.UpdateOrder(o), "update order %s", o.ClientOrderID())
	e.emit(e.strategies[o.StrategyID()], false, ev)
	return nil
}

func (e *Engine) processFill(fill schema.OrderFilled) error {
	o, ok := e.orders.Order(fill.ClientOrderID)
	if !ok {
		return e.violation(errors.Wrapf(og.ErrUnknownOrder, "%s", fill.ClientOrderID), fill)
	}
	fill = enrich(o, fill)
	if err := e.positions.Check(fill); err != nil {
		return e.violation(err, fill)
	}

	var clamped error
	outcome, err := o.Apply(fill)
	if stderrors.Is(err, og.ErrFillOverrun) {
		// the clamped fill keeps the venue's event id so a redelivery is a duplicate
		leaves := o.LeavesQty()
		adjusted := fill.WithFillQty(fill.EventHeader, leaves, o.FilledQty(), o.Quantity())
		clamped = errors.Wrapf(ErrFillClamped, "%s fill_qty %s clamped to %s", fill.ClientOrderID, fill.FillQty.Plain(), leaves.Plain())
		e.metrics.IncClamp()
		logs.Warnf("%s", clamped)
		e.report(clamped)
		fill = adjusted
		outcome, err = o.Apply(fill)
	}
	if err != nil {
		return e.violation(err, fill)
	}
	if outcome == og.OutcomeDuplicate {
		e.metrics.IncDuplicate()
		return nil
	}

	strategy := e.strategies[o.StrategyID()]
	events, err := e.positions.ApplyFill(fill)
	if err != nil {
		e.persist(e.db.UpdateOrder(o), "update order %s", o.ClientOrderID())
		e.emit(strategy, false, fill)
		return e.violation(err, fill)
	}
	if len(events) > 0 {
		fill = fill.WithPositionID(events[0].State().ID)
		if o.PositionID().IsNull() {
			o.SetPositionID(fill.PositionID)
		}
	}
	e.persist(e.db.UpdateOrder(o), "update order %s", o.ClientOrderID())
	e.emit(strategy, false, fill)

	var deltas []model.Money
	for _, pev := range events {
		e.processPositionEvent(strategy, pev)
		deltas = addDelta(deltas, e.realizedDelta(pev.State()))
	}
	for _, delta := range deltas {
		e.relayPnL(fill.AccountID, delta)
	}
	return clamped
}

// enrich fills in identifiers a venue may leave out of a fill report.
func enrich(o *og.Order, fill schema.OrderFilled) schema.OrderFilled {
	if fill.AccountID == (model.AccountID{}) {
		fill.AccountID = o.AccountID()
	}
	if fill.StrategyID == (model.StrategyID{}) {
		fill.StrategyID = o.StrategyID()
	}
	if fill.Symbol == (model.Symbol{}) {
		fill.Symbol = o.Symbol()
	}
	if !fill.Side.IsAvailable() {
		fill.Side = o.Side()
	}
	if fill.OrderID.IsNull() {
		fill.OrderID = o.OrderID()
	}
	return fill
}

func (e *Engine) processPositionEvent(strategy Strategy, pev schema.PositionEvent) {
	p, ok := e.positions.Position(pev.State().ID)
	if !ok {
		e.violation(errors.Wrapf(exception.ErrNotFound, "position %s", pev.State().ID), pev)
		return
	}
	if pev.Kind() == schema.EventPositionOpened {
		e.persist(e.db.AddPosition(p), "add position %s", p.ID())
	} else {
		e.persist(e.db.UpdatePosition(p), "update position %s", p.ID())
	}
	e.emit(strategy, true, pev)
}

func (e *Engine) realizedDelta(ps schema.PositionState) model.Money {
	prev, ok := e.realized[ps.ID]
	if !ok {
		prev = model.ZeroMoney(ps.RealizedPnL.Currency())
	}
	e.realized[ps.ID] = ps.RealizedPnL
	delta, err := ps.RealizedPnL.Sub(prev)
	if err != nil {
		return model.ZeroMoney(ps.RealizedPnL.Currency())
	}
	return delta
}

func addDelta(deltas []model.Money, delta model.Money) []model.Money {
	if delta.IsZero() {
		return deltas
	}
	for i, d := range deltas {
		if d.SameCurrency(delta) {
			deltas[i], _ = d.Add(delta)
			return deltas
		}
	}
	return append(deltas, delta)
}

// relayPnL books a realized P&L delta on a known account and publishes the derived state.
func (e *Engine) relayPnL(id model.AccountID, delta model.Money) {
	acct, ok := e.accounts[id]
	if !ok {
		logs.Debugf("pnl %s for unknown account %s not relayed", delta, id)
		return
	}
	ev, err := acct.ApplyPnL(delta, e.header())
	if err != nil {
		e.violation(err, nil)
		return
	}
	e.persist(e.db.UpdateAccount(acct), "update account %s", id)
	e.emit(nil, true, ev)
}

func (e *Engine) processAccount(ev schema.AccountState) error {
	if acct, ok := e.accounts[ev.AccountID]; ok {
		if err := acct.Apply(ev); err != nil {
			return e.violation(err, ev)
		}
		e.persist(e.db.UpdateAccount(acct), "update account %s", ev.AccountID)
	} else {
		acct = state.NewAccount(ev)
		e.accounts[ev.AccountID] = acct
		e.persist(e.db.AddAccount(acct), "add account %s", ev.AccountID)
	}
	e.emit(nil, true, ev)
	return nil
}

// LoadState rebuilds orders, positions and accounts from the database. It must run before any
// command or event.
func (e *Engine) LoadState() error {
	orders, err := e.db.LoadOrders()
	if err != nil {
		return errors.Wrap(err, "load orders")
	}
	for _, o := range orders {
		if err := e.orders.Add(o); err != nil {
			return errors.Wrapf(err, "load order %s", o.ClientOrderID())
		}
	}
	positions, err := e.db.LoadPositions()
	if err != nil {
		return errors.Wrap(err, "load positions")
	}
	for _, p := range positions {
		if err := e.positions.Load(p); err != nil {
			return errors.Wrapf(err, "load position %s", p.ID())
		}
		e.realized[p.ID()] = p.RealizedPnL()
	}
	accounts, err := e.db.LoadAccounts()
	if err != nil {
		return errors.Wrap(err, "load accounts")
	}
	for _, a := range accounts {
		e.accounts[a.ID()] = a
	}
	logs.Infof("state loaded, orders: %d, positions: %d, accounts: %d", len(orders), len(positions), len(accounts))
	return nil
}

func (e *Engine) header() schema.EventHeader {
	return schema.NewHeader(e.uuids.New(), e.clock.Now())
}

// emit sends ev to strategy and, when portfolio is set, to the portfolio. Deliveries are queued in
// the outbox while deferred is set.
func (e *Engine) emit(strategy Strategy, portfolio bool, ev schema.Event) {
	d := delivery{strategy: strategy, portfolio: portfolio, ev: ev}
	if e.deferred {
		e.outbox = append(e.outbox, d)
		return
	}
	e.deliver(d)
}

func (e *Engine) deliver(d delivery) {
	if d.portfolio && e.portfolio != nil {
		switch ev := d.ev.(type) {
		case schema.AccountState:
			e.portfolio.UpdateAccount(ev)
		case schema.PositionEvent:
			e.portfolio.UpdatePosition(ev)
		}
	}
	if d.strategy != nil {
		d.strategy.OnEvent(d.ev)
	}
}

func (e *Engine) takeOutbox() []delivery {
	out := e.outbox
	e.outbox = nil
	return out
}

// violation logs, counts and reports err, then returns it.
func (e *Engine) violation(err error, ev schema.Event) error {
	e.metrics.IncViolation()
	if ev != nil {
		logs.Errorf("apply %s, err: %+v", ev, err)
	} else {
		logs.Errorf("%+v", err)
	}
	e.report(err)
	return err
}

func (e *Engine) persist(err error, format string, args ...any) {
	if err == nil {
		return
	}
	err = errors.Wrapf(err, format, args...)
	logs.Errorf("%+v", err)
	e.report(err)
}

func (e *Engine) report(err error) {
	select {
	case e.errs <- err:
	default:
		e.metrics.IncErrorDrop()
	}
}

// Order returns the order for id. The order is owned by the engine and must not be mutated.
func (e *Engine) Order(id model.ClientOrderID) (*og.Order, bool) { return e.orders.Order(id) }

// Orders returns every order in submission order.
func (e *Engine) Orders() []*og.Order { return e.orders.Orders() }

// OpenOrders returns orders not yet in a terminal status.
func (e *Engine) OpenOrders() []*og.Order { return e.orders.OpenOrders() }

// Position returns the position for id. The position is owned by the engine and must not be mutated.
func (e *Engine) Position(id model.PositionID) (*state.Position, bool) { return e.positions.Position(id) }

// Positions returns every position, open or closed.
func (e *Engine) Positions() []*state.Position { return e.positions.Positions() }

// OpenPositions returns positions with a non-zero quantity.
func (e *Engine) OpenPositions() []*state.Position { return e.positions.OpenPositions() }

// Account returns the account for id. The account is owned by the engine and must not be mutated.
func (e *Engine) Account(id model.AccountID) (*state.Account, bool) {
	a, ok := e.accounts[id]
	return a, ok
}

// PositionSnapshot summarizes every position.
func (e *Engine) PositionSnapshot() state.Snapshot { return e.positions.Snapshot() }
