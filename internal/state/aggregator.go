package state

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

var ErrInvalidFill = fmt.Errorf("%w: fill cannot be applied to position", exception.ErrInvariantViolation)

type positionKey struct {
	account model.AccountID
	symbol  model.Symbol
}

type execKey struct {
	order model.ClientOrderID
	exec  model.ExecutionID
}

// Aggregator folds fills into net positions keyed by account and symbol.
type Aggregator struct {
	clock clock.Clock
	uuids ids.Factory
	idGen *PositionIDGenerator

	positions map[model.PositionID]*Position
	seq       []model.PositionID
	open      map[positionKey]*Position
	seenFills map[uuid.UUID]struct{}
	seenExecs map[execKey]struct{}
}

// NewAggregator creates an empty aggregator.
func NewAggregator(trader model.TraderID, c clock.Clock, uuids ids.Factory) *Aggregator {
	return &Aggregator{
		clock:     c,
		uuids:     uuids,
		idGen:     NewPositionIDGenerator(trader, c),
		positions: make(map[model.PositionID]*Position),
		open:      make(map[positionKey]*Position),
		seenFills: make(map[uuid.UUID]struct{}),
		seenExecs: make(map[execKey]struct{}),
	}
}

// ApplyFill updates the position for the fill's account and symbol and returns the lifecycle events.
// A fill seen before returns no events and no error. A flip returns PositionClosed then PositionOpened.
func (a *Aggregator) ApplyFill(fill schema.OrderFilled) ([]schema.PositionEvent, error) {
	if a.isDuplicate(fill) {
		return nil, nil
	}
	if err := a.Check(fill); err != nil {
		return nil, err
	}

	key := positionKey{account: fill.AccountID, symbol: fill.Symbol}
	pos, ok := a.open[key]

	var events []schema.PositionEvent
	var err error
	switch {
	case !ok:
		events, err = a.openPosition(key, fill, fill.FillQty, fill.Commission)
	case fill.Side == pos.entrySide:
		f := fill.WithPositionID(pos.id)
		if err = pos.increase(f, fill.FillQty, fill.Commission); err == nil {
			events = append(events, pos.event(schema.EventPositionModified, a.header(), f))
		}
	case !fill.FillQty.GreaterThan(pos.qty):
		events, err = a.reducePosition(key, pos, fill, fill.FillQty, fill.Commission)
	default:
		events, err = a.flip(key, pos, fill)
	}
	if err != nil {
		return nil, err
	}

	a.markSeen(fill)
	return events, nil
}

// Check reports whether ApplyFill would refuse fill, without changing any position. Fills seen
// before pass.
func (a *Aggregator) Check(fill schema.OrderFilled) error {
	if a.isDuplicate(fill) {
		return nil
	}
	if !fill.FillQty.IsPositive() || !fill.Side.IsAvailable() || fill.Currency.IsNull() {
		return errors.Wrapf(ErrInvalidFill, "%s", fill)
	}
	if !fill.Commission.IsZero() && fill.Commission.Currency() != fill.Currency {
		return errors.Wrap(exception.ErrCurrencyMismatch, "commission "+fill.Commission.String())
	}
	pos, ok := a.open[positionKey{account: fill.AccountID, symbol: fill.Symbol}]
	if !ok {
		return nil
	}
	if pos.quote != fill.Currency {
		return errors.Wrapf(exception.ErrCurrencyMismatch, "position %s quote %s fill %s", pos.id, pos.quote, fill.Currency)
	}
	if pos.qty.Precision() != fill.FillQty.Precision() {
		return errors.Wrapf(exception.ErrPrecisionMismatch, "position %s qty %s fill %s", pos.id, pos.qty.Plain(), fill.FillQty.Plain())
	}
	return nil
}

func (a *Aggregator) openPosition(key positionKey, fill schema.OrderFilled, qty model.Quantity, commission model.Money) ([]schema.PositionEvent, error) {
	pos := newPosition(a.idGen.Generate(fill.StrategyID), fill)
	f := fill.WithPositionID(pos.id)
	if err := pos.increase(f, qty, commission); err != nil {
		return nil, err
	}
	a.positions[pos.id] = pos
	a.seq = append(a.seq, pos.id)
	a.open[key] = pos
	return []schema.PositionEvent{pos.event(schema.EventPositionOpened, a.header(), f)}, nil
}

func (a *Aggregator) reducePosition(key positionKey, pos *Position, fill schema.OrderFilled, qty model.Quantity, commission model.Money) ([]schema.PositionEvent, error) {
	f := fill.WithPositionID(pos.id)
	if err := pos.reduce(f, qty, commission); err != nil {
		return nil, err
	}
	if pos.qty.IsZero() {
		delete(a.open, key)
		return []schema.PositionEvent{pos.event(schema.EventPositionClosed, a.header(), f)}, nil
	}
	return []schema.PositionEvent{pos.event(schema.EventPositionModified, a.header(), f)}, nil
}

// flip closes pos with part of the fill and opens the residual on the other side. Commission is split
// by quantity.
func (a *Aggregator) flip(key positionKey, pos *Position, fill schema.OrderFilled) ([]schema.PositionEvent, error) {
	closeQty := pos.qty
	openQty, err := fill.FillQty.Sub(closeQty)
	if err != nil {
		return nil, err
	}

	closeComm, openComm := fill.Commission, fill.Commission
	if !fill.Commission.IsZero() {
		share := closeQty.Decimal().Div(fill.FillQty.Decimal())
		closeComm = model.MoneyFromDecimal(fill.Commission.Decimal().Mul(share), fill.Commission.Currency())
		if openComm, err = fill.Commission.Sub(closeComm); err != nil {
			return nil, err
		}
	}

	closed, err := a.reducePosition(key, pos, fill, closeQty, closeComm)
	if err != nil {
		return nil, err
	}
	opened, err := a.openPosition(key, fill, openQty, openComm)
	if err != nil {
		return nil, err
	}
	return append(closed, opened...), nil
}

func (a *Aggregator) header() schema.EventHeader {
	return schema.NewHeader(a.uuids.New(), a.clock.Now())
}

func (a *Aggregator) isDuplicate(fill schema.OrderFilled) bool {
	if _, ok := a.seenFills[fill.ID]; ok {
		return true
	}
	if fill.ExecutionID.IsNull() {
		return false
	}
	_, ok := a.seenExecs[execKey{order: fill.ClientOrderID, exec: fill.ExecutionID}]
	return ok
}

func (a *Aggregator) markSeen(fill schema.OrderFilled) {
	a.seenFills[fill.ID] = struct{}{}
	if !fill.ExecutionID.IsNull() {
		a.seenExecs[execKey{order: fill.ClientOrderID, exec: fill.ExecutionID}] = struct{}{}
	}
}

// Position returns a position by id. The pointer is read-only for callers.
func (a *Aggregator) Position(id model.PositionID) (*Position, bool) {
	p, ok := a.positions[id]
	return p, ok
}

// OpenPosition returns the open position for account and symbol.
func (a *Aggregator) OpenPosition(account model.AccountID, symbol model.Symbol) (*Position, bool) {
	p, ok := a.open[positionKey{account: account, symbol: symbol}]
	return p, ok
}

// Positions returns every position in creation order.
func (a *Aggregator) Positions() []*Position {
	out := make([]*Position, 0, len(a.seq))
	for _, id := range a.seq {
		out = append(out, a.positions[id])
	}
	return out
}

// OpenPositions returns positions with non-zero quantity in creation order.
func (a *Aggregator) OpenPositions() []*Position {
	out := make([]*Position, 0, len(a.open))
	for _, id := range a.seq {
		if p := a.positions[id]; p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

// NetQty returns the signed open quantity for account and symbol.
func (a *Aggregator) NetQty(account model.AccountID, symbol model.Symbol) decimal.Decimal {
	if p, ok := a.OpenPosition(account, symbol); ok {
		return p.SignedQty()
	}
	return decimal.Zero
}

// Count returns the number of tracked positions.
func (a *Aggregator) Count() int {
	return len(a.seq)
}
