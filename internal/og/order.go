package og

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Outcome is the result of applying an event to an order.
type Outcome uint8

const (
	OutcomeRejected Outcome = iota
	OutcomeApplied
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

// Order is a single order's lifecycle. It is mutated only through Apply, and a failed Apply leaves
// it untouched. Filled plus leaves always equals the requested quantity.
type Order struct {
	clOrdID     model.ClientOrderID
	orderID     model.OrderID
	accountID   model.AccountID
	strategyID  model.StrategyID
	positionID  model.PositionID
	symbol      model.Symbol
	side        enum.OrderSide
	typ         enum.OrderType
	quantity    model.Quantity
	price       model.Price
	tif         enum.TimeInForce
	expireTime  time.Time
	status      enum.OrderStatus
	filled      model.Quantity
	avgPx       decimal.Decimal
	initTime    time.Time
	lastUpdated time.Time

	events   []schema.OrderEvent
	eventIDs map[uuid.UUID]struct{}
	execIDs  map[model.ExecutionID]struct{}
}

// NewOrder builds an order in INITIALIZED status from its initialization event.
func NewOrder(init schema.OrderInitialized) *Order {
	o := &Order{
		clOrdID:     init.ClientOrderID,
		strategyID:  init.StrategyID,
		symbol:      init.Symbol,
		side:        init.Side,
		typ:         init.Type,
		quantity:    init.Quantity,
		price:       init.Price,
		tif:         init.TimeInForce,
		expireTime:  init.ExpireTime,
		status:      enum.OrderStatusInitialized,
		filled:      model.ZeroQuantity(init.Quantity.Precision()),
		initTime:    init.Timestamp,
		lastUpdated: init.Timestamp,
		eventIDs:    make(map[uuid.UUID]struct{}, 8),
		execIDs:     make(map[model.ExecutionID]struct{}),
	}
	o.record(init)
	return o
}

// Replay rebuilds an order from its persisted event log. The first event must be OrderInitialized.
func Replay(events []schema.OrderEvent) (*Order, error) {
	if len(events) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "replay empty order log")
	}
	init, ok := events[0].(schema.OrderInitialized)
	if !ok {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "replay starts with %s", events[0].Kind())
	}
	o := NewOrder(init)
	for _, ev := range events[1:] {
		if _, err := o.Apply(ev); err != nil {
			return nil, errors.Wrapf(err, "replay %s", ev)
		}
	}
	return o, nil
}

// Apply validates ev against the current status and applies it. Replayed event ids and execution
// ids are reported as OutcomeDuplicate with no error.
func (o *Order) Apply(ev schema.OrderEvent) (Outcome, error) {
	if ev.ClOrdID() != o.clOrdID {
		return OutcomeRejected, errors.Wrapf(ErrInvalidTransition, "%s applied to %s", ev.ClOrdID(), o.clOrdID)
	}
	if _, ok := o.eventIDs[ev.EventID()]; ok {
		return OutcomeDuplicate, nil
	}

	switch e := ev.(type) {
	case schema.OrderDenied:
		if err := o.transition(e, enum.OrderStatusInitialized, enum.OrderStatusDenied); err != nil {
			return OutcomeRejected, err
		}
	case schema.OrderInvalid:
		if err := o.transition(e, enum.OrderStatusInitialized, enum.OrderStatusInvalid); err != nil {
			return OutcomeRejected, err
		}
	case schema.OrderSubmitted:
		if err := o.transition(e, enum.OrderStatusInitialized, enum.OrderStatusSubmitted); err != nil {
			return OutcomeRejected, err
		}
		o.accountID = e.AccountID
	case schema.OrderRejected:
		if err := o.transition(e, enum.OrderStatusSubmitted, enum.OrderStatusRejected); err != nil {
			return OutcomeRejected, err
		}
	case schema.OrderAccepted:
		if err := o.transition(e, enum.OrderStatusSubmitted, enum.OrderStatusAccepted); err != nil {
			return OutcomeRejected, err
		}
		o.orderID = e.OrderID
	case schema.OrderCancelReject:
		// logged only
	case schema.OrderCancelled:
		if err := o.fromWorking(e, enum.OrderStatusCancelled); err != nil {
			return OutcomeRejected, err
		}
	case schema.OrderExpired:
		if err := o.fromWorking(e, enum.OrderStatusExpired); err != nil {
			return OutcomeRejected, err
		}
	case schema.OrderAmended:
		if err := o.amend(e); err != nil {
			return OutcomeRejected, err
		}
	case schema.OrderFilled:
		if _, ok := o.execIDs[e.ExecutionID]; ok && !e.ExecutionID.IsNull() {
			return OutcomeDuplicate, nil
		}
		if err := o.fill(e); err != nil {
			return OutcomeRejected, err
		}
	default:
		return OutcomeRejected, errors.Wrapf(ErrInvalidTransition, "%s in %s", ev.Kind(), o.status)
	}

	o.record(ev)
	return OutcomeApplied, nil
}

func (o *Order) transition(ev schema.OrderEvent, from, to enum.OrderStatus) error {
	if o.status != from {
		return errors.Wrapf(ErrInvalidTransition, "%s in %s", ev.Kind(), o.status)
	}
	o.status = to
	return nil
}

func (o *Order) fromWorking(ev schema.OrderEvent, to enum.OrderStatus) error {
	if !o.status.IsWorking() {
		return errors.Wrapf(ErrInvalidTransition, "%s in %s", ev.Kind(), o.status)
	}
	o.status = to
	return nil
}

func (o *Order) amend(e schema.OrderAmended) error {
	if !o.status.IsWorking() {
		return errors.Wrapf(ErrInvalidTransition, "%s in %s", e.Kind(), o.status)
	}
	if e.Quantity.Precision() != o.quantity.Precision() {
		return errors.Wrap(exception.ErrPrecisionMismatch, "amend quantity")
	}
	if !e.Quantity.GreaterThan(o.filled) {
		return errors.Wrapf(ErrInvalidAmend, "qty %s filled %s", e.Quantity, o.filled)
	}
	o.quantity = e.Quantity
	if !e.Price.IsZero() {
		o.price = e.Price
	}
	return nil
}

func (o *Order) fill(e schema.OrderFilled) error {
	if !o.status.IsWorking() {
		return errors.Wrapf(ErrInvalidTransition, "%s in %s", e.Kind(), o.status)
	}
	if !e.FillQty.IsPositive() || e.FillQty.Precision() != o.quantity.Precision() {
		return errors.Wrapf(ErrInvalidFill, "fill_qty %s", e.FillQty.Plain())
	}
	filled, err := o.filled.Add(e.FillQty)
	if err != nil {
		return errors.Wrap(ErrInvalidFill, err.Error())
	}
	if filled.GreaterThan(o.quantity) {
		return errors.Wrapf(ErrFillOverrun, "fill_qty %s leaves %s", e.FillQty.Plain(), o.LeavesQty().Plain())
	}

	prev := o.filled.Decimal()
	o.avgPx = o.avgPx.Mul(prev).Add(e.FillPrice.Decimal().Mul(e.FillQty.Decimal())).Div(filled.Decimal())
	o.filled = filled
	if filled.Equal(o.quantity) {
		o.status = enum.OrderStatusFilled
	} else {
		o.status = enum.OrderStatusPartiallyFilled
	}
	if o.orderID.IsNull() {
		o.orderID = e.OrderID
	}
	if !e.PositionID.IsNull() {
		o.positionID = e.PositionID
	}
	if !e.ExecutionID.IsNull() {
		o.execIDs[e.ExecutionID] = struct{}{}
	}
	return nil
}

func (o *Order) record(ev schema.OrderEvent) {
	o.events = append(o.events, ev)
	o.eventIDs[ev.EventID()] = struct{}{}
	if ts := ev.EventTime(); ts.After(o.lastUpdated) {
		o.lastUpdated = ts
	}
}

// SetPositionID links the order to the position its fills were aggregated into.
func (o *Order) SetPositionID(id model.PositionID) { o.positionID = id }

func (o *Order) ClientOrderID() model.ClientOrderID { return o.clOrdID }
func (o *Order) OrderID() model.OrderID             { return o.orderID }
func (o *Order) AccountID() model.AccountID         { return o.accountID }
func (o *Order) StrategyID() model.StrategyID       { return o.strategyID }
func (o *Order) PositionID() model.PositionID       { return o.positionID }
func (o *Order) Symbol() model.Symbol               { return o.symbol }
func (o *Order) Side() enum.OrderSide               { return o.side }
func (o *Order) Type() enum.OrderType               { return o.typ }
func (o *Order) Quantity() model.Quantity           { return o.quantity }
func (o *Order) Price() model.Price                 { return o.price }
func (o *Order) TimeInForce() enum.TimeInForce      { return o.tif }
func (o *Order) ExpireTime() time.Time              { return o.expireTime }
func (o *Order) Status() enum.OrderStatus           { return o.status }
func (o *Order) FilledQty() model.Quantity          { return o.filled }
func (o *Order) AvgPx() decimal.Decimal             { return o.avgPx }
func (o *Order) InitTime() time.Time                { return o.initTime }
func (o *Order) LastUpdated() time.Time             { return o.lastUpdated }
func (o *Order) IsTerminal() bool                   { return o.status.IsTerminal() }
func (o *Order) IsWorking() bool                    { return o.status.IsWorking() }
func (o *Order) EventCount() int                    { return len(o.events) }

// LeavesQty is the unfilled remainder.
func (o *Order) LeavesQty() model.Quantity {
	leaves, err := o.quantity.Sub(o.filled)
	if err != nil {
		return model.ZeroQuantity(o.quantity.Precision())
	}
	return leaves
}

// Events returns a copy of the applied event log.
func (o *Order) Events() []schema.OrderEvent {
	return append([]schema.OrderEvent(nil), o.events...)
}

func (o *Order) LastEvent() schema.OrderEvent {
	return o.events[len(o.events)-1]
}

// Init returns the initialization event.
func (o *Order) Init() schema.OrderInitialized {
	return o.events[0].(schema.OrderInitialized)
}

// HasExecution reports whether a fill with id was already applied.
func (o *Order) HasExecution(id model.ExecutionID) bool {
	_, ok := o.execIDs[id]
	return ok
}
