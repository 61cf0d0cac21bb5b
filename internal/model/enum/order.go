package enum

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

// Opposite returns the other side. Unknown sides are returned unchanged.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case OrderSideBuy:
		return OrderSideSell
	case OrderSideSell:
		return OrderSideBuy
	default:
		return s
	}
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (s OrderSide) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *OrderSide) UnmarshalText(b []byte) error {
	return parseText(b, s, _order_side_beg+1, _order_side_end)
}

// OrderType market, limit, stop
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

// HasPrice reports whether orders of this type must carry a price.
func (t OrderType) HasPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStop
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

func (t OrderType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *OrderType) UnmarshalText(b []byte) error {
	return parseText(b, t, _order_type_beg+1, _order_type_end)
}

// TimeInForce DAY, GTC, IOC, FOK, GTD
type TimeInForce uint8

const (
	_time_in_force_beg TimeInForce = iota
	TimeInForceDAY
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceGTD
	_time_in_force_end
)

func (t TimeInForce) IsAvailable() bool {
	return t > _time_in_force_beg && t < _time_in_force_end
}

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceDAY:
		return "DAY"
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	case TimeInForceGTD:
		return "GTD"
	default:
		return "UNKNOWN"
	}
}

func (t TimeInForce) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeInForce) UnmarshalText(b []byte) error {
	return parseText(b, t, _time_in_force_beg+1, _time_in_force_end)
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus uint8

const (
	_order_status_beg OrderStatus = iota
	OrderStatusInitialized
	OrderStatusDenied
	OrderStatusInvalid
	OrderStatusSubmitted
	OrderStatusRejected
	OrderStatusAccepted
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusExpired
	_order_status_end
)

func (s OrderStatus) IsAvailable() bool {
	return s > _order_status_beg && s < _order_status_end
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDenied, OrderStatusInvalid, OrderStatusRejected,
		OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// IsWorking reports whether the order is live at the venue.
func (s OrderStatus) IsWorking() bool {
	return s == OrderStatusAccepted || s == OrderStatusPartiallyFilled
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusInitialized:
		return "INITIALIZED"
	case OrderStatusDenied:
		return "DENIED"
	case OrderStatusInvalid:
		return "INVALID"
	case OrderStatusSubmitted:
		return "SUBMITTED"
	case OrderStatusRejected:
		return "REJECTED"
	case OrderStatusAccepted:
		return "ACCEPTED"
	case OrderStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *OrderStatus) UnmarshalText(b []byte) error {
	return parseText(b, s, _order_status_beg+1, _order_status_end)
}

// LiquiditySide none, maker, taker
type LiquiditySide uint8

const (
	LiquiditySideNone LiquiditySide = iota
	LiquiditySideMaker
	LiquiditySideTaker
	_liquidity_side_end
)

func (s LiquiditySide) String() string {
	switch s {
	case LiquiditySideMaker:
		return "MAKER"
	case LiquiditySideTaker:
		return "TAKER"
	default:
		return "NONE"
	}
}

func (s LiquiditySide) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *LiquiditySide) UnmarshalText(b []byte) error {
	return parseText(b, s, LiquiditySideNone, _liquidity_side_end)
}
