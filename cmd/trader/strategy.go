package main

import (
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/risk"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// flipper alternates buy and sell market orders, each sized so a stop a fixed distance away
// loses at most riskBps of equity.
type flipper struct {
	id         model.StrategyID
	trader     model.TraderID
	account    model.AccountID
	instrument model.Instrument
	sizer      risk.FixedRiskSizer
	riskBps    decimal.Decimal
	stop       decimal.Decimal
	clock      clock.Clock
	uuids      ids.Factory

	mu      sync.Mutex
	orderID *ids.Generator
	side    enum.OrderSide
	fills   int
	last    schema.Event
}

func newFlipper(id model.StrategyID, trader model.TraderID, account model.AccountID, ins model.Instrument, riskBps, stop decimal.Decimal) *flipper {
	c := clock.Live{}
	return &flipper{
		id:         id,
		trader:     trader,
		account:    account,
		instrument: ins,
		sizer:      risk.NewFixedRiskSizer(ins.SizePrecision),
		riskBps:    riskBps,
		stop:       stop,
		clock:      c,
		uuids:      ids.Random{},
		orderID:    ids.NewGenerator("O", trader.Tag, id.Tag, c),
		side:       enum.OrderSideBuy,
	}
}

func (f *flipper) ID() model.StrategyID { return f.id }

func (f *flipper) OnEvent(ev schema.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = ev
	switch e := ev.(type) {
	case schema.OrderFilled:
		f.fills++
		logs.Debugf("%s filled %s @ %s, commission: %s", e.ClientOrderID, e.FillQty, e.FillPrice, e.Commission)
	case schema.OrderRejected:
		logs.Warnf("%s rejected: %s", e.ClientOrderID, e.Reason)
	case schema.OrderDenied:
		logs.Warnf("%s denied: %s", e.ClientOrderID, e.Reason)
	}
}

// Fills returns how many fills the strategy has seen.
func (f *flipper) Fills() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fills
}

// Next builds the next market order for the given mark price and equity.
func (f *flipper) Next(venue model.Venue, mark model.Price, equity model.Money) (schema.SubmitOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stop := mark.Decimal().Sub(f.stop)
	if f.side == enum.OrderSideSell {
		stop = mark.Decimal().Add(f.stop)
	}
	stopPrice, err := model.PriceFromDecimal(stop, mark.Precision())
	if err != nil {
		return schema.SubmitOrder{}, errors.Wrap(err, "stop price")
	}
	qty, err := f.sizer.Calculate(risk.SizingRequest{
		Equity:  equity,
		RiskBps: f.riskBps,
		Entry:   mark,
		Stop:    stopPrice,
	})
	if err != nil {
		return schema.SubmitOrder{}, err
	}
	if !qty.IsPositive() {
		return schema.SubmitOrder{}, errors.Wrapf(exception.ErrInvalidArgument, "equity %s is too small to size an order", equity)
	}

	now := f.clock.Now()
	cmd := schema.SubmitOrder{
		CommandHeader: schema.CommandHeader{
			TraderID:   f.trader,
			AccountID:  f.account,
			StrategyID: f.id,
			CommandID:  f.uuids.New(),
			Timestamp:  now,
		},
		Venue: venue,
		Order: schema.OrderInitialized{
			EventHeader:   schema.NewHeader(f.uuids.New(), now),
			ClientOrderID: model.ClientOrderID(f.orderID.Generate()),
			StrategyID:    f.id,
			Symbol:        f.instrument.Symbol,
			Side:          f.side,
			Type:          enum.OrderTypeMarket,
			Quantity:      qty,
			TimeInForce:   enum.TimeInForceIOC,
		},
	}
	if f.side == enum.OrderSideBuy {
		f.side = enum.OrderSideSell
	} else {
		f.side = enum.OrderSideBuy
	}
	return cmd, nil
}
