package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/tianhm/nautilus-trader/internal/model"
)

// SchemaVersion is the current event schema version.
const SchemaVersion uint16 = 1

// EventKind names the variant of an event.
type EventKind uint16

const (
	EventUnknown EventKind = iota
	EventOrderInitialized
	EventOrderDenied
	EventOrderInvalid
	EventOrderSubmitted
	EventOrderRejected
	EventOrderAccepted
	EventOrderCancelReject
	EventOrderCancelled
	EventOrderAmended
	EventOrderExpired
	EventOrderFilled
	EventPositionOpened
	EventPositionModified
	EventPositionClosed
	EventAccountState
	_event_kind_end
)

var eventKindNames = [...]string{
	EventUnknown:           "Unknown",
	EventOrderInitialized:  "OrderInitialized",
	EventOrderDenied:       "OrderDenied",
	EventOrderInvalid:      "OrderInvalid",
	EventOrderSubmitted:    "OrderSubmitted",
	EventOrderRejected:     "OrderRejected",
	EventOrderAccepted:     "OrderAccepted",
	EventOrderCancelReject: "OrderCancelReject",
	EventOrderCancelled:    "OrderCancelled",
	EventOrderAmended:      "OrderAmended",
	EventOrderExpired:      "OrderExpired",
	EventOrderFilled:       "OrderFilled",
	EventPositionOpened:    "PositionOpened",
	EventPositionModified:  "PositionModified",
	EventPositionClosed:    "PositionClosed",
	EventAccountState:      "AccountState",
}

func (k EventKind) IsAvailable() bool {
	return k > EventUnknown && k < _event_kind_end
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return eventKindNames[EventUnknown]
}

// ParseEventKind is the inverse of String.
func ParseEventKind(s string) (EventKind, bool) {
	for k := EventUnknown + 1; k < _event_kind_end; k++ {
		if eventKindNames[k] == s {
			return k, true
		}
	}
	return EventUnknown, false
}

// EventKinds returns every known kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, int(_event_kind_end)-1)
	for k := EventUnknown + 1; k < _event_kind_end; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// EventHeader is the common metadata attached to every event.
type EventHeader struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"ts"`
}

// NewHeader builds a header for an event created at ts.
func NewHeader(id uuid.UUID, ts time.Time) EventHeader {
	return EventHeader{ID: id, Timestamp: ts}
}

func (h EventHeader) EventID() uuid.UUID   { return h.ID }
func (h EventHeader) EventTime() time.Time { return h.Timestamp }

// Event is the closed set of facts the execution core produces and consumes.
// Only types in this package implement it.
type Event interface {
	EventID() uuid.UUID
	EventTime() time.Time
	Kind() EventKind
	String() string
	isEvent()
}

// OrderEvent is an event that targets a single order.
type OrderEvent interface {
	Event
	ClOrdID() model.ClientOrderID
}

// PositionEvent is a position lifecycle event.
type PositionEvent interface {
	Event
	State() PositionState
	Trigger() OrderFilled
	Strategy() model.StrategyID
}
