package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/tianhm/nautilus-trader/internal/model"
)

// CommandKind names the variant of a command.
type CommandKind uint8

const (
	CommandUnknown CommandKind = iota
	CommandSubmitOrder
	CommandCancelOrder
	CommandAmendOrder
)

func (k CommandKind) String() string {
	switch k {
	case CommandSubmitOrder:
		return "SubmitOrder"
	case CommandCancelOrder:
		return "CancelOrder"
	case CommandAmendOrder:
		return "AmendOrder"
	default:
		return "Unknown"
	}
}

// CommandHeader attributes a command to its issuer.
type CommandHeader struct {
	TraderID   model.TraderID   `json:"trader_id"`
	AccountID  model.AccountID  `json:"account_id"`
	StrategyID model.StrategyID `json:"strategy_id"`
	CommandID  uuid.UUID        `json:"command_id"`
	Timestamp  time.Time        `json:"ts"`
}

func (h CommandHeader) Header() CommandHeader { return h }

// Command is a request the engine may accept or reject.
type Command interface {
	Header() CommandHeader
	Kind() CommandKind
	TargetVenue() model.Venue
	ClOrdID() model.ClientOrderID
	String() string
	isCommand()
}

// SubmitOrder asks the engine to route a new order to Venue.
type SubmitOrder struct {
	CommandHeader
	Venue      model.Venue      `json:"venue"`
	PositionID model.PositionID `json:"position_id"`
	Order      OrderInitialized `json:"order"`
}

// CancelOrder asks the venue to cancel a working order.
type CancelOrder struct {
	CommandHeader
	Venue         model.Venue         `json:"venue"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	OrderID       model.OrderID       `json:"order_id"`
}

// AmendOrder asks the venue to change a working order's quantity or price.
type AmendOrder struct {
	CommandHeader
	Venue         model.Venue         `json:"venue"`
	ClientOrderID model.ClientOrderID `json:"cl_ord_id"`
	Quantity      model.Quantity      `json:"qty"`
	Price         model.Price         `json:"price"`
}

func (SubmitOrder) isCommand() {}
func (CancelOrder) isCommand() {}
func (AmendOrder) isCommand()  {}

func (SubmitOrder) Kind() CommandKind { return CommandSubmitOrder }
func (CancelOrder) Kind() CommandKind { return CommandCancelOrder }
func (AmendOrder) Kind() CommandKind  { return CommandAmendOrder }

func (c SubmitOrder) TargetVenue() model.Venue { return c.Venue }
func (c CancelOrder) TargetVenue() model.Venue { return c.Venue }
func (c AmendOrder) TargetVenue() model.Venue  { return c.Venue }

func (c SubmitOrder) ClOrdID() model.ClientOrderID { return c.Order.ClientOrderID }
func (c CancelOrder) ClOrdID() model.ClientOrderID { return c.ClientOrderID }
func (c AmendOrder) ClOrdID() model.ClientOrderID  { return c.ClientOrderID }

func (c SubmitOrder) String() string {
	return "SubmitOrder(cl_ord_id=" + c.Order.ClientOrderID.String() +
		", venue=" + c.Venue.String() + ", id=" + c.CommandID.String() + ")"
}

func (c CancelOrder) String() string {
	return "CancelOrder(cl_ord_id=" + c.ClientOrderID.String() +
		", venue=" + c.Venue.String() + ", id=" + c.CommandID.String() + ")"
}

func (c AmendOrder) String() string {
	return "AmendOrder(cl_ord_id=" + c.ClientOrderID.String() + ", qty=" + c.Quantity.String() +
		", price=" + c.Price.String() + ", id=" + c.CommandID.String() + ")"
}
