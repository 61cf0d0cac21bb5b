package schema

import (
	"time"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
)

// OrderInitialized carries everything needed to build an order.
type OrderInitialized struct {
	EventHeader
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	StrategyID    model.StrategyID    `json:"strategy_id"`
	Symbol        model.Symbol        `json:"symbol"`
	Side          enum.OrderSide      `json:"side"`
	Type          enum.OrderType      `json:"type"`
	Quantity      model.Quantity      `json:"qty"`
	Price         model.Price         `json:"price"`
	TimeInForce   enum.TimeInForce    `json:"tif"`
	ExpireTime    time.Time           `json:"expire_time"`
}

// OrderDenied is emitted when pre-trade checks refuse an order.
type OrderDenied struct {
	EventHeader
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	Reason        string              `json:"reason"`
}

// OrderInvalid is emitted when an order command is malformed or unroutable.
type OrderInvalid struct {
	EventHeader
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	Reason        string              `json:"reason"`
}

type OrderSubmitted struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	SubmittedTime time.Time           `json:"submitted_time"`
}

type OrderRejected struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	RejectedTime  time.Time           `json:"rejected_time"`
	Reason        string              `json:"reason"`
}

type OrderAccepted struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	OrderID       model.OrderID       `json:"order_id"`
	AcceptedTime  time.Time           `json:"accepted_time"`
}

// OrderCancelReject reports that a cancel or amend could not be applied. It never changes order status.
type OrderCancelReject struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	OrderID       model.OrderID       `json:"order_id"`
	RejectedTime  time.Time           `json:"rejected_time"`
	ResponseTo    string              `json:"response_to"`
	Reason        string              `json:"reason"`
}

type OrderCancelled struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	OrderID       model.OrderID       `json:"order_id"`
	CancelledTime time.Time           `json:"cancelled_time"`
}

type OrderAmended struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	OrderID       model.OrderID       `json:"order_id"`
	Quantity      model.Quantity      `json:"qty"`
	Price         model.Price         `json:"price"`
	AmendedTime   time.Time           `json:"amended_time"`
}

type OrderExpired struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	OrderID       model.OrderID       `json:"order_id"`
	ExpiredTime   time.Time           `json:"expired_time"`
}

// OrderFilled is a single execution against an order. CumQty and LeavesQty are the venue's view
// after this fill.
type OrderFilled struct {
	EventHeader
	AccountID     model.AccountID     `json:"account_id"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	OrderID       model.OrderID       `json:"order_id"`
	ExecutionID   model.ExecutionID   `json:"execution_id"`
	PositionID    model.PositionID    `json:"position_id"`
	StrategyID    model.StrategyID    `json:"strategy_id"`
	Symbol        model.Symbol        `json:"symbol"`
	Side          enum.OrderSide      `json:"side"`
	FillQty       model.Quantity      `json:"fill_qty"`
	CumQty        model.Quantity      `json:"cum_qty"`
	LeavesQty     model.Quantity      `json:"leaves_qty"`
	FillPrice     model.Price         `json:"fill_price"`
	Currency      model.Currency      `json:"currency"`
	Commission    model.Money         `json:"commission"`
	LiquiditySide enum.LiquiditySide  `json:"liquidity_side"`
	ExecutionTime time.Time           `json:"execution_time"`
}

// WithFillQty returns a derived fill for qty under header. Cumulative and leaves are
// recomputed from the order's filled quantity before this fill and its requested quantity.
func (e OrderFilled) WithFillQty(header EventHeader, qty, filledBefore, requested model.Quantity) OrderFilled {
	out := e
	out.EventHeader = header
	out.FillQty = qty
	if cum, err := filledBefore.Add(qty); err == nil {
		out.CumQty = cum
		if leaves, err := requested.Sub(cum); err == nil {
			out.LeavesQty = leaves
		}
	}
	return out
}

// WithPositionID returns a copy carrying the engine-assigned position. The event id is kept.
func (e OrderFilled) WithPositionID(id model.PositionID) OrderFilled {
	out := e
	out.PositionID = id
	return out
}

// Ensure every order event satisfies OrderEvent.
var (
	_ OrderEvent = OrderInitialized{}
	_ OrderEvent = OrderDenied{}
	_ OrderEvent = OrderInvalid{}
	_ OrderEvent = OrderSubmitted{}
	_ OrderEvent = OrderRejected{}
	_ OrderEvent = OrderAccepted{}
	_ OrderEvent = OrderCancelReject{}
	_ OrderEvent = OrderCancelled{}
	_ OrderEvent = OrderAmended{}
	_ OrderEvent = OrderExpired{}
	_ OrderEvent = OrderFilled{}
)

func (OrderInitialized) isEvent()  {}
func (OrderDenied) isEvent()       {}
func (OrderInvalid) isEvent()      {}
func (OrderSubmitted) isEvent()    {}
func (OrderRejected) isEvent()     {}
func (OrderAccepted) isEvent()     {}
func (OrderCancelReject) isEvent() {}
func (OrderCancelled) isEvent()    {}
func (OrderAmended) isEvent()      {}
func (OrderExpired) isEvent()      {}
func (OrderFilled) isEvent()       {}

func (OrderInitialized) Kind() EventKind  { return EventOrderInitialized }
func (OrderDenied) Kind() EventKind       { return EventOrderDenied }
func (OrderInvalid) Kind() EventKind      { return EventOrderInvalid }
func (OrderSubmitted) Kind() EventKind    { return EventOrderSubmitted }
func (OrderRejected) Kind() EventKind     { return EventOrderRejected }
func (OrderAccepted) Kind() EventKind     { return EventOrderAccepted }
func (OrderCancelReject) Kind() EventKind { return EventOrderCancelReject }
func (OrderCancelled) Kind() EventKind    { return EventOrderCancelled }
func (OrderAmended) Kind() EventKind      { return EventOrderAmended }
func (OrderExpired) Kind() EventKind      { return EventOrderExpired }
func (OrderFilled) Kind() EventKind       { return EventOrderFilled }

func (e OrderInitialized) ClOrdID() model.ClientOrderID  { return e.ClientOrderID }
func (e OrderDenied) ClOrdID() model.ClientOrderID       { return e.ClientOrderID }
func (e OrderInvalid) ClOrdID() model.ClientOrderID      { return e.ClientOrderID }
func (e OrderSubmitted) ClOrdID() model.ClientOrderID    { return e.ClientOrderID }
func (e OrderRejected) ClOrdID() model.ClientOrderID     { return e.ClientOrderID }
func (e OrderAccepted) ClOrdID() model.ClientOrderID     { return e.ClientOrderID }
func (e OrderCancelReject) ClOrdID() model.ClientOrderID { return e.ClientOrderID }
func (e OrderCancelled) ClOrdID() model.ClientOrderID    { return e.ClientOrderID }
func (e OrderAmended) ClOrdID() model.ClientOrderID      { return e.ClientOrderID }
func (e OrderExpired) ClOrdID() model.ClientOrderID      { return e.ClientOrderID }
func (e OrderFilled) ClOrdID() model.ClientOrderID       { return e.ClientOrderID }

func (e OrderInitialized) String() string {
	return newFormatter(EventOrderInitialized).
		field("cl_ord_id", e.ClientOrderID.String()).
		done(e.ID)
}

func (e OrderDenied) String() string {
	return newFormatter(EventOrderDenied).
		field("cl_ord_id", e.ClientOrderID.String()).
		quoted("reason", e.Reason).
		done(e.ID)
}

func (e OrderInvalid) String() string {
	return newFormatter(EventOrderInvalid).
		field("cl_ord_id", e.ClientOrderID.String()).
		quoted("reason", e.Reason).
		done(e.ID)
}

func (e OrderSubmitted) String() string {
	return newFormatter(EventOrderSubmitted).
		field("account_id", e.AccountID.String()).
		field("cl_ord_id", e.ClientOrderID.String()).
		done(e.ID)
}

func (e OrderRejected) String() string {
	return newFormatter(EventOrderRejected).
		field("account_id", e.AccountID.String()).
		field("cl_ord_id", e.ClientOrderID.String()).
		quoted("reason", e.Reason).
		done(e.ID)
}

func (e OrderAccepted) String() string {
	return newFormatter(EventOrderAccepted).
		field("account_id", e.AccountID.String()).
		field("cl_ord_id", e.ClientOrderID.String()).
		field("order_id", e.OrderID.String()).
		done(e.ID)
}

func (e OrderCancelReject) String() string {
	return newFormatter(EventOrderCancelReject).
		field("account_id", e.AccountID.String()).
		field("cl_ord_id", e.ClientOrderID.String()).
		field("response_to", e.ResponseTo).
		quoted("reason", e.Reason).
		done(e.ID)
}

func (e OrderCancelled) String() string {
	return newFormatter(EventOrderCancelled).
		field("account_id", e.AccountID.String()).
		field("cl_ord_id", e.ClientOrderID.String()).
		field("order_id", e.OrderID.String()).
		done(e.ID)
}

func (e OrderAmended) String() string {
	return newFormatter(EventOrderAmended).
		field("account_id", e.AccountID.String()).
		field("cl_order_id", e.ClientOrderID.String()).
		field("order_id", e.OrderID.String()).
		field("qty", e.Quantity.String()).
		field("price", e.Price.String()).
		done(e.ID)
}

func (e OrderExpired) String() string {
	return newFormatter(EventOrderExpired).
		field("account_id", e.AccountID.String()).
		field("cl_ord_id", e.ClientOrderID.String()).
		field("order_id", e.OrderID.String()).
		done(e.ID)
}

func (e OrderFilled) String() string {
	return newFormatter(EventOrderFilled).
		field("account_id", e.AccountID.String()).
		field("cl_ord_id", e.ClientOrderID.String()).
		field("order_id", e.OrderID.String()).
		field("position_id", e.PositionID.String()).
		field("strategy_id", e.StrategyID.String()).
		field("symbol", e.Symbol.String()).
		field("side", e.Side.String()+"-"+e.LiquiditySide.String()).
		field("fill_qty", e.FillQty.String()).
		field("fill_price", e.FillPrice.String()+" "+e.Currency.Code).
		field("cum_qty", e.CumQty.String()).
		field("leaves_qty", e.LeavesQty.String()).
		field("commission", e.Commission.String()).
		done(e.ID)
}

func (e OrderInitialized) GoString() string  { return e.String() }
func (e OrderDenied) GoString() string       { return e.String() }
func (e OrderInvalid) GoString() string      { return e.String() }
func (e OrderSubmitted) GoString() string    { return e.String() }
func (e OrderRejected) GoString() string     { return e.String() }
func (e OrderAccepted) GoString() string     { return e.String() }
func (e OrderCancelReject) GoString() string { return e.String() }
func (e OrderCancelled) GoString() string    { return e.String() }
func (e OrderAmended) GoString() string      { return e.String() }
func (e OrderExpired) GoString() string      { return e.String() }
func (e OrderFilled) GoString() string       { return e.String() }
