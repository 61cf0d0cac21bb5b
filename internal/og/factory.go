package og

import (
	"time"

	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
)

// ClientOrderIDGenerator issues ids like O-19700101-000000-000-001-1.
type ClientOrderIDGenerator struct {
	gen *ids.Generator
}

func NewClientOrderIDGenerator(trader model.TraderID, strategy model.StrategyID, c clock.Clock) *ClientOrderIDGenerator {
	return &ClientOrderIDGenerator{gen: ids.NewGenerator("O", trader.Tag, strategy.Tag, c)}
}

func (g *ClientOrderIDGenerator) Generate() model.ClientOrderID {
	return model.ClientOrderID(g.gen.Generate())
}

func (g *ClientOrderIDGenerator) Count() int     { return g.gen.Count() }
func (g *ClientOrderIDGenerator) SetCount(n int) { g.gen.SetCount(n) }
func (g *ClientOrderIDGenerator) Reset()         { g.gen.Reset() }

// OrderFactory builds orders for one strategy. Time and ids are injected so tests stay deterministic.
type OrderFactory struct {
	strategyID model.StrategyID
	clock      clock.Clock
	uuids      ids.Factory
	idGen      *ClientOrderIDGenerator
}

func NewOrderFactory(trader model.TraderID, strategy model.StrategyID, c clock.Clock, uuids ids.Factory) *OrderFactory {
	return &OrderFactory{
		strategyID: strategy,
		clock:      c,
		uuids:      uuids,
		idGen:      NewClientOrderIDGenerator(trader, strategy, c),
	}
}

// Market builds an IOC market order.
func (f *OrderFactory) Market(symbol model.Symbol, side enum.OrderSide, qty model.Quantity) *Order {
	return NewOrder(f.initialized(symbol, side, enum.OrderTypeMarket, qty, model.Price{}, enum.TimeInForceIOC, time.Time{}))
}

// Limit builds a limit order. GTD orders need a non-zero expireTime.
func (f *OrderFactory) Limit(symbol model.Symbol, side enum.OrderSide, qty model.Quantity, price model.Price,
	tif enum.TimeInForce, expireTime time.Time) *Order {
	return NewOrder(f.initialized(symbol, side, enum.OrderTypeLimit, qty, price, tif, expireTime))
}

// Stop builds a stop-market order triggered at price.
func (f *OrderFactory) Stop(symbol model.Symbol, side enum.OrderSide, qty model.Quantity, price model.Price,
	tif enum.TimeInForce) *Order {
	return NewOrder(f.initialized(symbol, side, enum.OrderTypeStop, qty, price, tif, time.Time{}))
}

func (f *OrderFactory) initialized(symbol model.Symbol, side enum.OrderSide, typ enum.OrderType,
	qty model.Quantity, price model.Price, tif enum.TimeInForce, expireTime time.Time) schema.OrderInitialized {
	return schema.OrderInitialized{
		EventHeader:   schema.NewHeader(f.uuids.New(), f.clock.Now()),
		ClientOrderID: f.idGen.Generate(),
		StrategyID:    f.strategyID,
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		Quantity:      qty,
		Price:         price,
		TimeInForce:   tif,
		ExpireTime:    expireTime,
	}
}

// IDGenerator exposes the client order id generator, e.g. to resume numbering after recovery.
func (f *OrderFactory) IDGenerator() *ClientOrderIDGenerator { return f.idGen }
