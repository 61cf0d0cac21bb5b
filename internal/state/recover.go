package state

import (
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// RestorePosition rebuilds a position from its persisted lifecycle events. The last event's state is
// authoritative and the fills are taken from every event in order.
func RestorePosition(events []schema.PositionEvent) (*Position, error) {
	if len(events) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "restore empty position log")
	}
	if events[0].Kind() != schema.EventPositionOpened {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "restore starts with %s", events[0].Kind())
	}

	last := events[len(events)-1].State()
	p := &Position{
		id:         last.ID,
		accountID:  last.AccountID,
		strategyID: last.StrategyID,
		symbol:     last.Symbol,
		entrySide:  last.EntrySide,
		side:       last.Side,
		qty:        last.Quantity,
		peak:       last.PeakQuantity,
		avgOpen:    last.AvgOpen,
		avgClose:   last.AvgClose,
		closedQty:  last.ClosedQty,
		realized:   last.RealizedPnL,
		commission: last.Commissions,
		quote:      last.QuoteCurrency,
		opened:     last.OpenedTime,
		closed:     last.ClosedTime,
		events:     append([]schema.PositionEvent(nil), events...),
	}
	for _, ev := range events {
		if ev.State().ID != p.id {
			return nil, errors.Wrapf(exception.ErrInvalidArgument, "restore %s holds %s", p.id, ev.State().ID)
		}
		p.fills = append(p.fills, ev.Trigger())
	}
	return p, nil
}

// Load registers a recovered position. Fills it already holds are marked as seen, open positions
// become the active position for their account and symbol, and id numbering resumes after it.
func (a *Aggregator) Load(p *Position) error {
	if p == nil {
		return exception.ErrNilInstance
	}
	if _, ok := a.positions[p.id]; ok {
		return errors.Wrapf(exception.ErrInvalidArgument, "position already loaded: %s", p.id)
	}
	a.positions[p.id] = p
	a.seq = append(a.seq, p.id)
	if p.side != enum.PositionSideFlat {
		a.open[positionKey{account: p.accountID, symbol: p.symbol}] = p
	}
	for _, f := range p.fills {
		a.markSeen(f)
	}
	a.idGen.SetCount(p.strategyID, a.idGen.Count(p.strategyID)+1)
	return nil
}
