package og

import (
	"fmt"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

var (
	ErrDuplicateOrder    = fmt.Errorf("%w: order already exists", exception.ErrCommandRejected)
	ErrUnknownOrder      = fmt.Errorf("%w: order not found", exception.ErrInvariantViolation)
	ErrInvalidTransition = fmt.Errorf("%w: invalid order state transition", exception.ErrInvariantViolation)
	ErrInvalidFill       = fmt.Errorf("%w: invalid fill quantity", exception.ErrInvariantViolation)
	ErrFillOverrun       = fmt.Errorf("%w: fill exceeds leaves quantity", exception.ErrInvariantViolation)
	ErrInvalidAmend      = fmt.Errorf("%w: amend must leave a positive leaves quantity", exception.ErrInvariantViolation)
)

// StateMachine is the order registry. It owns every order it holds.
type StateMachine struct {
	orders map[model.ClientOrderID]*Order
	seq    []model.ClientOrderID
}

// NewStateMachine creates an empty state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{orders: make(map[model.ClientOrderID]*Order)}
}

// Add registers o. A second order with the same client order id is refused.
func (m *StateMachine) Add(o *Order) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	if _, ok := m.orders[o.clOrdID]; ok {
		return ErrDuplicateOrder
	}
	m.orders[o.clOrdID] = o
	m.seq = append(m.seq, o.clOrdID)
	return nil
}

// Order returns the current order state.
func (m *StateMachine) Order(id model.ClientOrderID) (*Order, bool) {
	o, ok := m.orders[id]
	return o, ok
}

// Apply routes ev to its order.
func (m *StateMachine) Apply(ev schema.OrderEvent) (*Order, Outcome, error) {
	o, ok := m.orders[ev.ClOrdID()]
	if !ok {
		return nil, OutcomeRejected, ErrUnknownOrder
	}
	outcome, err := o.Apply(ev)
	return o, outcome, err
}

// Orders returns every order in registration order.
func (m *StateMachine) Orders() []*Order {
	out := make([]*Order, 0, len(m.seq))
	for _, id := range m.seq {
		out = append(out, m.orders[id])
	}
	return out
}

// OpenOrders returns orders that have not reached a terminal status.
func (m *StateMachine) OpenOrders() []*Order {
	out := make([]*Order, 0)
	for _, id := range m.seq {
		if o := m.orders[id]; !o.IsTerminal() {
			out = append(out, o)
		}
	}
	return out
}

func (m *StateMachine) Len() int { return len(m.seq) }
