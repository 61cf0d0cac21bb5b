package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
)

// Reason is the denial reason carried by OrderDenied.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonKillSwitch    Reason = "KILL_SWITCH"
	ReasonRateLimit     Reason = "RATE_LIMIT_EXCEEDED"
	ReasonMaxQty        Reason = "MAX_ORDER_QTY_EXCEEDED"
	ReasonPriceBand     Reason = "PRICE_BAND_EXCEEDED"
	ReasonMaxNotional   Reason = "MAX_NOTIONAL_EXCEEDED"
	ReasonPositionLimit Reason = "POSITION_LIMIT_EXCEEDED"
)

// Config defines simple risk limits. Zero disables a limit.
type Config struct {
	Version              uint16          `json:"version"`
	KillSwitch           bool            `json:"killSwitch"`
	MaxOrderQty          decimal.Decimal `json:"maxOrderQty"`
	MaxOrderNotional     decimal.Decimal `json:"maxOrderNotional"`
	MaxPosition          decimal.Decimal `json:"maxPosition"`
	OrderRateLimit       int             `json:"orderRateLimit"`
	OrderRateWindow      time.Duration   `json:"orderRateWindow"`
	MaxPriceDeviationBps int64           `json:"maxPriceDeviationBps"`
}

// StateView provides what the engine knows about the order's account and symbol.
type StateView struct {
	Position       decimal.Decimal
	ReferencePrice model.Price
	Now            time.Time
}

// Decision is the outcome of a pre-trade check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

// Engine evaluates risk decisions. It is not safe for concurrent use.
type Engine struct {
	cfg             Config
	rateWindowStart time.Time
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the active limits.
func (e *Engine) Config() Config { return e.cfg }

// SetKillSwitch toggles the kill switch at runtime.
func (e *Engine) SetKillSwitch(on bool) { e.cfg.KillSwitch = on }

// Evaluate applies the checks in order and stops at the first denial. A nil engine allows everything.
func (e *Engine) Evaluate(order schema.OrderInitialized, state StateView) Decision {
	if e == nil {
		return allow()
	}

	if e.cfg.KillSwitch {
		return deny(ReasonKillSwitch)
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		now := state.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		if e.rateWindowStart.IsZero() || now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return deny(ReasonRateLimit)
		}
	}

	qty := order.Quantity.Decimal()
	if e.cfg.MaxOrderQty.IsPositive() && qty.GreaterThan(e.cfg.MaxOrderQty) {
		return deny(ReasonMaxQty)
	}

	if e.cfg.MaxPriceDeviationBps > 0 && order.Type == enum.OrderTypeLimit && !order.Price.IsZero() && !state.ReferencePrice.IsZero() {
		ref := state.ReferencePrice.Decimal()
		diff := order.Price.Decimal().Sub(ref).Abs()
		if diff.Mul(decimal.NewFromInt(10_000)).GreaterThan(ref.Mul(decimal.NewFromInt(e.cfg.MaxPriceDeviationBps))) {
			return deny(ReasonPriceBand)
		}
	}

	price := order.Price
	if price.IsZero() {
		price = state.ReferencePrice
	}
	if e.cfg.MaxOrderNotional.IsPositive() && !price.IsZero() {
		if price.Decimal().Mul(qty).GreaterThan(e.cfg.MaxOrderNotional) {
			return deny(ReasonMaxNotional)
		}
	}

	if e.cfg.MaxPosition.IsPositive() {
		next := state.Position
		switch order.Side {
		case enum.OrderSideBuy:
			next = next.Add(qty)
		case enum.OrderSideSell:
			next = next.Sub(qty)
		}
		if next.Abs().GreaterThan(e.cfg.MaxPosition) {
			return deny(ReasonPositionLimit)
		}
	}

	return allow()
}
