package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
)

// Position is the net exposure of one account in one symbol. Once closed it is never mutated again.
type Position struct {
	id         model.PositionID
	accountID  model.AccountID
	strategyID model.StrategyID
	symbol     model.Symbol
	entrySide  enum.OrderSide
	side       enum.PositionSide
	qty        model.Quantity
	peak       model.Quantity
	avgOpen    decimal.Decimal
	avgClose   decimal.Decimal
	closedQty  decimal.Decimal
	realized   model.Money
	commission model.Money
	quote      model.Currency
	opened     time.Time
	closed     time.Time

	fills  []schema.OrderFilled
	events []schema.PositionEvent
}

func newPosition(id model.PositionID, fill schema.OrderFilled) *Position {
	return &Position{
		id:         id,
		accountID:  fill.AccountID,
		strategyID: fill.StrategyID,
		symbol:     fill.Symbol,
		entrySide:  fill.Side,
		side:       enum.PositionSideFlat,
		qty:        model.ZeroQuantity(fill.FillQty.Precision()),
		peak:       model.ZeroQuantity(fill.FillQty.Precision()),
		realized:   model.ZeroMoney(fill.Currency),
		commission: model.ZeroMoney(fill.Currency),
		quote:      fill.Currency,
		opened:     fill.Timestamp,
	}
}

// increase adds qty at px in the entry direction.
func (p *Position) increase(fill schema.OrderFilled, qty model.Quantity, commission model.Money) error {
	next, err := p.qty.Add(qty)
	if err != nil {
		return err
	}
	total := next.Decimal()
	p.avgOpen = p.avgOpen.Mul(p.qty.Decimal()).Add(fill.FillPrice.Decimal().Mul(qty.Decimal())).Div(total)
	p.qty = next
	if next.GreaterThan(p.peak) {
		p.peak = next
	}
	if p.entrySide == enum.OrderSideBuy {
		p.side = enum.PositionSideLong
	} else {
		p.side = enum.PositionSideShort
	}
	return p.charge(fill, commission, decimal.Zero)
}

// reduce closes qty at px. qty must not exceed the open quantity.
func (p *Position) reduce(fill schema.OrderFilled, qty model.Quantity, commission model.Money) error {
	next, err := p.qty.Sub(qty)
	if err != nil {
		return err
	}
	px := fill.FillPrice.Decimal()
	q := qty.Decimal()

	pnl := px.Sub(p.avgOpen).Mul(q)
	if p.side == enum.PositionSideShort {
		pnl = pnl.Neg()
	}

	closed := p.closedQty.Add(q)
	p.avgClose = p.avgClose.Mul(p.closedQty).Add(px.Mul(q)).Div(closed)
	p.closedQty = closed
	p.qty = next
	if next.IsZero() {
		p.side = enum.PositionSideFlat
		p.closed = fill.Timestamp
	}
	return p.charge(fill, commission, pnl)
}

func (p *Position) charge(fill schema.OrderFilled, commission model.Money, pnl decimal.Decimal) error {
	delta := model.MoneyFromDecimal(pnl, p.quote)
	if !commission.IsZero() {
		var err error
		if delta, err = delta.Sub(commission); err != nil {
			return err
		}
		if p.commission, err = p.commission.Add(commission); err != nil {
			return err
		}
	}
	realized, err := p.realized.Add(delta)
	if err != nil {
		return err
	}
	p.realized = realized
	p.fills = append(p.fills, fill)
	return nil
}

// State returns a value snapshot.
func (p *Position) State() schema.PositionState {
	return schema.PositionState{
		ID:            p.id,
		AccountID:     p.accountID,
		StrategyID:    p.strategyID,
		Symbol:        p.symbol,
		EntrySide:     p.entrySide,
		Side:          p.side,
		Quantity:      p.qty,
		PeakQuantity:  p.peak,
		AvgOpen:       p.avgOpen,
		AvgClose:      p.avgClose,
		ClosedQty:     p.closedQty,
		RealizedPnL:   p.realized,
		Commissions:   p.commission,
		QuoteCurrency: p.quote,
		OpenedTime:    p.opened,
		ClosedTime:    p.closed,
		FillCount:     len(p.fills),
	}
}

func (p *Position) ID() model.PositionID           { return p.id }
func (p *Position) AccountID() model.AccountID     { return p.accountID }
func (p *Position) StrategyID() model.StrategyID   { return p.strategyID }
func (p *Position) Symbol() model.Symbol           { return p.symbol }
func (p *Position) EntrySide() enum.OrderSide      { return p.entrySide }
func (p *Position) Side() enum.PositionSide        { return p.side }
func (p *Position) Quantity() model.Quantity       { return p.qty }
func (p *Position) PeakQuantity() model.Quantity   { return p.peak }
func (p *Position) AvgOpen() decimal.Decimal       { return p.avgOpen }
func (p *Position) AvgClose() decimal.Decimal      { return p.avgClose }
func (p *Position) RealizedPnL() model.Money       { return p.realized }
func (p *Position) Commissions() model.Money       { return p.commission }
func (p *Position) QuoteCurrency() model.Currency  { return p.quote }
func (p *Position) OpenedTime() time.Time          { return p.opened }
func (p *Position) ClosedTime() time.Time          { return p.closed }
func (p *Position) IsClosed() bool                 { return p.side == enum.PositionSideFlat && len(p.fills) > 0 }
func (p *Position) IsOpen() bool                   { return p.side != enum.PositionSideFlat }
func (p *Position) FillCount() int                 { return len(p.fills) }
func (p *Position) Events() []schema.PositionEvent { return append([]schema.PositionEvent(nil), p.events...) }

// SignedQty is positive when long, negative when short.
func (p *Position) SignedQty() decimal.Decimal { return p.State().SignedQty() }

// Fills returns a copy of the applied fills.
func (p *Position) Fills() []schema.OrderFilled {
	return append([]schema.OrderFilled(nil), p.fills...)
}

func (p *Position) event(kind schema.EventKind, header schema.EventHeader, fill schema.OrderFilled) schema.PositionEvent {
	state := p.State()
	var ev schema.PositionEvent
	switch kind {
	case schema.EventPositionOpened:
		ev = schema.PositionOpened{EventHeader: header, Position: state, StrategyID: p.strategyID, Fill: fill}
	case schema.EventPositionClosed:
		ev = schema.PositionClosed{EventHeader: header, Position: state, StrategyID: p.strategyID, Fill: fill}
	default:
		ev = schema.PositionModified{EventHeader: header, Position: state, StrategyID: p.strategyID, Fill: fill}
	}
	p.events = append(p.events, ev)
	return ev
}
