package order

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/chaos"
	"github.com/tianhm/nautilus-trader/internal/clock"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Reasons carried by the rejections the simulated venue emits.
const (
	ReasonDuplicateOrder    = "DUPLICATE_CL_ORD_ID"
	ReasonUnknownInstrument = "UNKNOWN_INSTRUMENT"
	ReasonNoMarketPrice     = "NO_MARKET_PRICE"
	ReasonOrderNotWorking   = "ORDER_NOT_WORKING"
	ReasonInvalidAmend      = "INVALID_AMEND"
)

const (
	defaultQueueCapacity = 1024
	bpsDenominator       = 10_000
)

// Sink receives the venue events a client produces, in the order the venue produced them per
// client order id.
type Sink func(schema.Event)

// Config holds simulated venue settings.
type Config struct {
	Venue     model.Venue     `json:"venue"`
	AccountID model.AccountID `json:"accountId"`
	// Workers is the number of request workers. Zero handles every request on the caller goroutine.
	Workers       int  `json:"workers"`
	QueueCapacity int  `json:"queueCapacity"`
	FillLimits    bool `json:"fillLimits"`
	// CommissionBps is charged on fill notional in the instrument quote currency.
	CommissionBps int64          `json:"commissionBps"`
	Currency      model.Currency `json:"currency"`
}

// Validate checks the settings New needs.
func (c Config) Validate() error {
	if c.Venue.IsNull() {
		return errors.Wrap(exception.ErrOrderInvalidWorkerConfig, "venue is empty")
	}
	if c.AccountID.IsNull() {
		return errors.Wrap(exception.ErrOrderInvalidWorkerConfig, "account id is empty")
	}
	if c.Workers < 0 {
		return errors.Wrapf(exception.ErrOrderInvalidWorkerConfig, "workers %d is negative", c.Workers)
	}
	if c.QueueCapacity < 0 {
		return errors.Wrapf(exception.ErrOrderInvalidWorkerConfig, "queue capacity %d is negative", c.QueueCapacity)
	}
	if c.CommissionBps < 0 {
		return errors.Wrapf(exception.ErrOrderInvalidWorkerConfig, "commission %d bps is negative", c.CommissionBps)
	}
	return nil
}

// Deps are the client's collaborators. Nil clock and UUIDs fall back to the live clock and random
// ids. A nil registry accepts every symbol in Config.Currency. A nil chaos engine delivers events
// unchanged.
type Deps struct {
	Clock       clock.Clock
	UUIDs       ids.Factory
	Instruments *model.InstrumentRegistry
	Chaos       *chaos.Engine
}

type request struct {
	cmd schema.Command
}

type working struct {
	order    schema.OrderInitialized
	orderID  model.OrderID
	qty      model.Quantity
	price    model.Price
	filled   model.Quantity
	currency model.Currency
}

func (w *working) leaves() model.Quantity {
	leaves, err := w.qty.Sub(w.filled)
	if err != nil {
		return model.ZeroQuantity(w.qty.Precision())
	}
	return leaves
}

// SimulatedClient is an execution client backed by an in-process venue. Submits are acknowledged
// with OrderSubmitted and OrderAccepted. Market orders fill in full at the mark price, and limit
// orders rest until FillWorking unless FillLimits is set.
//
// Requests are sharded by client order id onto worker queues, so the events of one order are never
// produced concurrently.
type SimulatedClient struct {
	cfg         Config
	clock       clock.Clock
	uuids       ids.Factory
	instruments *model.InstrumentRegistry
	sink        Sink

	running  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
	queues   []chan request
	wg       sync.WaitGroup

	mu      sync.Mutex
	emitMu  sync.Mutex
	chaos   *chaos.Engine
	orders  map[model.ClientOrderID]*working
	marks   map[model.Symbol]model.Price
	seen    map[model.ClientOrderID]struct{}
	orderNo uint64
	execNo  uint64
}

// New creates a simulated client that emits to sink.
func New(cfg Config, deps Deps, sink Sink) (*SimulatedClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "sink")
	}
	if cfg.Workers > 0 && cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	if cfg.Currency.IsNull() {
		cfg.Currency = model.USD
	}
	if deps.Clock == nil {
		deps.Clock = clock.Live{}
	}
	if deps.UUIDs == nil {
		deps.UUIDs = ids.Random{}
	}

	c := &SimulatedClient{
		cfg:         cfg,
		clock:       deps.Clock,
		uuids:       deps.UUIDs,
		instruments: deps.Instruments,
		sink:        sink,
		done:        make(chan struct{}),
		queues:      make([]chan request, cfg.Workers),
		chaos:       deps.Chaos,
		orders:      make(map[model.ClientOrderID]*working),
		marks:       make(map[model.Symbol]model.Price),
		seen:        make(map[model.ClientOrderID]struct{}),
	}
	for i := range c.queues {
		c.queues[i] = make(chan request, cfg.QueueCapacity)
	}
	return c, nil
}

func (c *SimulatedClient) Venue() model.Venue         { return c.cfg.Venue }
func (c *SimulatedClient) AccountID() model.AccountID { return c.cfg.AccountID }

func (c *SimulatedClient) Submit(cmd schema.SubmitOrder) error { return c.handle(cmd) }
func (c *SimulatedClient) Cancel(cmd schema.CancelOrder) error { return c.handle(cmd) }
func (c *SimulatedClient) Amend(cmd schema.AmendOrder) error   { return c.handle(cmd) }

func (c *SimulatedClient) handle(cmd schema.Command) error {
	if c.stopped.Load() {
		return errors.Wrapf(exception.ErrOrderClientStopped, "%s %s", cmd.Kind(), cmd.ClOrdID())
	}
	if len(c.queues) == 0 {
		c.execute(cmd)
		return nil
	}

	select {
	case c.queues[c.shard(cmd.ClOrdID())] <- request{cmd: cmd}:
		return nil
	default:
		return errors.Wrapf(exception.ErrOrderQueueFull, "%s %s", cmd.Kind(), cmd.ClOrdID())
	}
}

func (c *SimulatedClient) shard(id model.ClientOrderID) int {
	return int(xxhash.Sum64String(string(id)) % uint64(len(c.queues)))
}

// Run starts the workers. Requests queued before Run are handled once it is called.
func (c *SimulatedClient) Run(ctx context.Context) {
	if c.running.Swap(true) {
		return
	}

	for _, q := range c.queues {
		c.wg.Add(1)
		go c.worker(ctx, q)
	}
	logs.Infof("simulated client %s started, workers: %d", c.cfg.Venue, len(c.queues))
}

func (c *SimulatedClient) worker(ctx context.Context, q chan request) {
	defer c.wg.Done()
	for {
		select {
		case req := <-q:
			c.execute(req.cmd)
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop refuses new requests, waits for the workers and releases events held by the chaos engine.
// Requests still queued are discarded.
func (c *SimulatedClient) Stop() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		close(c.done)
		c.wg.Wait()

		c.mu.Lock()
		c.release(c.chaos.Flush())

		if n := c.Pending(); n > 0 {
			logs.Warnf("simulated client %s stopped, %d requests discarded", c.cfg.Venue, n)
			return
		}
		logs.Infof("simulated client %s stopped", c.cfg.Venue)
	})
}

// Pending returns the number of queued requests.
func (c *SimulatedClient) Pending() int {
	n := 0
	for _, q := range c.queues {
		n += len(q)
	}
	return n
}

// Working returns the number of orders resting on the venue.
func (c *SimulatedClient) Working() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

// SetMarkPrice sets the price market orders for symbol fill at.
func (c *SimulatedClient) SetMarkPrice(symbol model.Symbol, price model.Price) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[symbol] = price
}

// FillWorking fills qty of a resting order as maker. A zero price fills at the order price.
func (c *SimulatedClient) FillWorking(id model.ClientOrderID, qty model.Quantity, price model.Price) error {
	c.mu.Lock()
	w, ok := c.orders[id]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(exception.ErrNotFound, "working order %s", id)
	}
	if !qty.IsPositive() || qty.Precision() != w.qty.Precision() || qty.GreaterThan(w.leaves()) {
		c.mu.Unlock()
		return errors.Wrapf(exception.ErrInvalidArgument, "fill %s of %s, leaves %s", qty, id, w.leaves())
	}
	if price.IsZero() {
		price = w.price
	}
	c.release(c.inject([]schema.Event{c.fill(w, qty, price, enum.LiquiditySideMaker)}))
	return nil
}

// Expire ends a resting order with OrderExpired.
func (c *SimulatedClient) Expire(id model.ClientOrderID) error {
	c.mu.Lock()
	w, ok := c.orders[id]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(exception.ErrNotFound, "working order %s", id)
	}
	delete(c.orders, id)
	now := c.clock.Now()
	c.release(c.inject([]schema.Event{schema.OrderExpired{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: id,
		OrderID:       w.orderID,
		ExpiredTime:   now,
	}}))
	return nil
}

func (c *SimulatedClient) execute(cmd schema.Command) {
	c.mu.Lock()
	var evs []schema.Event
	switch v := cmd.(type) {
	case schema.SubmitOrder:
		evs = c.submit(v)
	case schema.CancelOrder:
		evs = c.cancel(v)
	case schema.AmendOrder:
		evs = c.amend(v)
	default:
		logs.Errorf("simulated client %s: unsupported command %s", c.cfg.Venue, cmd.Kind())
	}
	c.release(c.inject(evs))
}

func (c *SimulatedClient) submit(cmd schema.SubmitOrder) []schema.Event {
	init := cmd.Order
	id := init.ClientOrderID
	now := c.clock.Now()
	evs := []schema.Event{schema.OrderSubmitted{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: id,
		SubmittedTime: now,
	}}

	if _, ok := c.seen[id]; ok {
		return append(evs, c.reject(id, now, ReasonDuplicateOrder))
	}
	c.seen[id] = struct{}{}

	ccy, ok := c.currency(init.Symbol)
	if !ok {
		return append(evs, c.reject(id, now, ReasonUnknownInstrument))
	}
	price := init.Price
	if init.Type == enum.OrderTypeMarket {
		mark, ok := c.marks[init.Symbol]
		if !ok {
			return append(evs, c.reject(id, now, ReasonNoMarketPrice))
		}
		price = mark
	}

	c.orderNo++
	w := &working{
		order:    init,
		orderID:  model.OrderID(fmt.Sprintf("%s-%d", c.cfg.Venue, c.orderNo)),
		qty:      init.Quantity,
		price:    init.Price,
		filled:   model.ZeroQuantity(init.Quantity.Precision()),
		currency: ccy,
	}
	c.orders[id] = w
	evs = append(evs, schema.OrderAccepted{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: id,
		OrderID:       w.orderID,
		AcceptedTime:  now,
	})

	switch {
	case init.Type == enum.OrderTypeMarket:
		evs = append(evs, c.fill(w, w.leaves(), price, enum.LiquiditySideTaker))
	case init.Type == enum.OrderTypeLimit && c.cfg.FillLimits:
		evs = append(evs, c.fill(w, w.leaves(), price, enum.LiquiditySideMaker))
	}
	return evs
}

func (c *SimulatedClient) cancel(cmd schema.CancelOrder) []schema.Event {
	now := c.clock.Now()
	w, ok := c.orders[cmd.ClientOrderID]
	if !ok {
		return []schema.Event{c.cancelReject(cmd.ClientOrderID, cmd.OrderID, schema.CommandCancelOrder, now, ReasonOrderNotWorking)}
	}
	delete(c.orders, cmd.ClientOrderID)
	return []schema.Event{schema.OrderCancelled{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: cmd.ClientOrderID,
		OrderID:       w.orderID,
		CancelledTime: now,
	}}
}

func (c *SimulatedClient) amend(cmd schema.AmendOrder) []schema.Event {
	now := c.clock.Now()
	w, ok := c.orders[cmd.ClientOrderID]
	if !ok {
		return []schema.Event{c.cancelReject(cmd.ClientOrderID, "", schema.CommandAmendOrder, now, ReasonOrderNotWorking)}
	}
	if !cmd.Quantity.IsZero() {
		if cmd.Quantity.Precision() != w.qty.Precision() || !cmd.Quantity.GreaterThan(w.filled) {
			return []schema.Event{c.cancelReject(cmd.ClientOrderID, w.orderID, schema.CommandAmendOrder, now, ReasonInvalidAmend)}
		}
		w.qty = cmd.Quantity
	}
	if !cmd.Price.IsZero() {
		w.price = cmd.Price
	}
	return []schema.Event{schema.OrderAmended{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: cmd.ClientOrderID,
		OrderID:       w.orderID,
		Quantity:      w.qty,
		Price:         w.price,
		AmendedTime:   now,
	}}
}

func (c *SimulatedClient) fill(w *working, qty model.Quantity, price model.Price, liquidity enum.LiquiditySide) schema.OrderFilled {
	now := c.clock.Now()
	filled, err := w.filled.Add(qty)
	if err != nil {
		filled = w.qty
	}
	w.filled = filled
	leaves := w.leaves()
	if leaves.IsZero() {
		delete(c.orders, w.order.ClientOrderID)
	}

	c.execNo++
	notional := qty.Decimal().Mul(price.Decimal())
	commission := notional.Mul(decimal.NewFromInt(c.cfg.CommissionBps)).Div(decimal.NewFromInt(bpsDenominator))
	return schema.OrderFilled{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: w.order.ClientOrderID,
		OrderID:       w.orderID,
		ExecutionID:   model.ExecutionID(fmt.Sprintf("%s-E%d", c.cfg.Venue, c.execNo)),
		StrategyID:    w.order.StrategyID,
		Symbol:        w.order.Symbol,
		Side:          w.order.Side,
		FillQty:       qty,
		CumQty:        filled,
		LeavesQty:     leaves,
		FillPrice:     price,
		Currency:      w.currency,
		Commission:    model.MoneyFromDecimal(commission, w.currency),
		LiquiditySide: liquidity,
		ExecutionTime: now,
	}
}

func (c *SimulatedClient) reject(id model.ClientOrderID, now time.Time, reason string) schema.Event {
	logs.Warnf("simulated client %s rejected %s: %s", c.cfg.Venue, id, reason)
	return schema.OrderRejected{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: id,
		RejectedTime:  now,
		Reason:        reason,
	}
}

func (c *SimulatedClient) cancelReject(id model.ClientOrderID, orderID model.OrderID, kind schema.CommandKind, now time.Time, reason string) schema.Event {
	return schema.OrderCancelReject{
		EventHeader:   c.header(now),
		AccountID:     c.cfg.AccountID,
		ClientOrderID: id,
		OrderID:       orderID,
		RejectedTime:  now,
		ResponseTo:    kind.String(),
		Reason:        reason,
	}
}

func (c *SimulatedClient) currency(symbol model.Symbol) (model.Currency, bool) {
	if c.instruments == nil {
		return c.cfg.Currency, true
	}
	ins, ok := c.instruments.Instrument(symbol)
	if !ok {
		return model.Currency{}, false
	}
	if ins.QuoteCurrency.IsNull() {
		return c.cfg.Currency, true
	}
	return ins.QuoteCurrency, true
}

func (c *SimulatedClient) header(now time.Time) schema.EventHeader {
	return schema.NewHeader(c.uuids.New(), now)
}

// inject passes evs through the chaos engine. The caller holds mu.
func (c *SimulatedClient) inject(evs []schema.Event) []chaos.Delivery {
	if c.chaos == nil {
		out := make([]chaos.Delivery, len(evs))
		for i, ev := range evs {
			out[i] = chaos.Delivery{Event: ev}
		}
		return out
	}
	var out []chaos.Delivery
	for _, ev := range evs {
		out = append(out, c.chaos.Process(ev)...)
	}
	return out
}

// release unlocks mu and sends out to the sink. With workers, emitMu is taken before mu is released
// so deliveries reach the sink in the order the chaos engine released them. Without workers the
// sink may call back into the client, so no lock is held.
func (c *SimulatedClient) release(out []chaos.Delivery) {
	async := len(c.queues) > 0
	if async {
		c.emitMu.Lock()
		defer c.emitMu.Unlock()
	}
	c.mu.Unlock()
	c.emit(out, async)
}

func (c *SimulatedClient) emit(out []chaos.Delivery, delay bool) {
	for _, d := range out {
		if delay && d.Delay > 0 {
			time.Sleep(d.Delay)
		}
		c.sink(d.Event)
	}
}
