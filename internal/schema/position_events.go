package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
)

// PositionState is a value snapshot of a position taken right after a fill was applied.
type PositionState struct {
	ID            model.PositionID  `json:"id"`
	AccountID     model.AccountID   `json:"account_id"`
	StrategyID    model.StrategyID  `json:"strategy_id"`
	Symbol        model.Symbol      `json:"symbol"`
	EntrySide     enum.OrderSide    `json:"entry_side"`
	Side          enum.PositionSide `json:"side"`
	Quantity      model.Quantity    `json:"qty"`
	PeakQuantity  model.Quantity    `json:"peak_qty"`
	AvgOpen       decimal.Decimal   `json:"avg_open"`
	AvgClose      decimal.Decimal   `json:"avg_close"`
	ClosedQty     decimal.Decimal   `json:"closed_qty"`
	RealizedPnL   model.Money       `json:"realized_pnl"`
	Commissions   model.Money       `json:"commissions"`
	QuoteCurrency model.Currency    `json:"quote_currency"`
	OpenedTime    time.Time         `json:"opened_time"`
	ClosedTime    time.Time         `json:"closed_time"`
	FillCount     int               `json:"fill_count"`
}

// SignedQty is positive when long, negative when short.
func (s PositionState) SignedQty() decimal.Decimal {
	if s.Side == enum.PositionSideShort {
		return s.Quantity.Decimal().Neg()
	}
	return s.Quantity.Decimal()
}

func (s PositionState) IsClosed() bool { return s.Side == enum.PositionSideFlat }

// PositionOpened is emitted for the fill that opens exposure.
type PositionOpened struct {
	EventHeader
	Position   PositionState    `json:"position"`
	StrategyID model.StrategyID `json:"strategy_id"`
	Fill       OrderFilled      `json:"fill"`
}

// PositionModified is emitted when net quantity changes without reaching zero.
type PositionModified struct {
	EventHeader
	Position   PositionState    `json:"position"`
	StrategyID model.StrategyID `json:"strategy_id"`
	Fill       OrderFilled      `json:"fill"`
}

// PositionClosed is emitted when net quantity returns to exactly zero.
type PositionClosed struct {
	EventHeader
	Position   PositionState    `json:"position"`
	StrategyID model.StrategyID `json:"strategy_id"`
	Fill       OrderFilled      `json:"fill"`
}

var (
	_ PositionEvent = PositionOpened{}
	_ PositionEvent = PositionModified{}
	_ PositionEvent = PositionClosed{}
)

func (PositionOpened) isEvent()   {}
func (PositionModified) isEvent() {}
func (PositionClosed) isEvent()   {}

func (PositionOpened) Kind() EventKind   { return EventPositionOpened }
func (PositionModified) Kind() EventKind { return EventPositionModified }
func (PositionClosed) Kind() EventKind   { return EventPositionClosed }

func (e PositionOpened) State() PositionState   { return e.Position }
func (e PositionModified) State() PositionState { return e.Position }
func (e PositionClosed) State() PositionState   { return e.Position }

func (e PositionOpened) Trigger() OrderFilled   { return e.Fill }
func (e PositionModified) Trigger() OrderFilled { return e.Fill }
func (e PositionClosed) Trigger() OrderFilled   { return e.Fill }

func (e PositionOpened) Strategy() model.StrategyID   { return e.StrategyID }
func (e PositionModified) Strategy() model.StrategyID { return e.StrategyID }
func (e PositionClosed) Strategy() model.StrategyID   { return e.StrategyID }

func (e PositionOpened) String() string   { return positionString(EventPositionOpened, e.Position, e.ID) }
func (e PositionModified) String() string { return positionString(EventPositionModified, e.Position, e.ID) }
func (e PositionClosed) String() string   { return positionString(EventPositionClosed, e.Position, e.ID) }

func (e PositionOpened) GoString() string   { return e.String() }
func (e PositionModified) GoString() string { return e.String() }
func (e PositionClosed) GoString() string   { return e.String() }

func positionString(kind EventKind, p PositionState, id uuid.UUID) string {
	return newFormatter(kind).
		field("position_id", p.ID.String()).
		field("account_id", p.AccountID.String()).
		field("strategy_id", p.StrategyID.String()).
		field("symbol", p.Symbol.String()).
		field("side", p.Side.String()).
		field("qty", p.Quantity.String()).
		field("avg_open", p.AvgOpen.String()).
		field("realized_pnl", p.RealizedPnL.String()).
		done(id)
}
