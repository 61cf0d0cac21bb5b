package core

import (
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/og"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/internal/state"
)

// ExecutionClient forwards commands to one venue. Venue events come back through Process.
type ExecutionClient interface {
	Venue() model.Venue
	AccountID() model.AccountID
	Submit(cmd schema.SubmitOrder) error
	Cancel(cmd schema.CancelOrder) error
	Amend(cmd schema.AmendOrder) error
}

// Strategy receives the order and position events of the orders it submitted. Under LiveEngine
// OnEvent may run on the consumer goroutine and on any caller of Execute at the same time, so
// implementations must be safe for concurrent use. OnEvent may call Execute.
type Strategy interface {
	ID() model.StrategyID
	OnEvent(ev schema.Event)
}

// Portfolio receives every account state and position lifecycle event. Under LiveEngine the update
// methods may be called concurrently and must be safe for concurrent use.
type Portfolio interface {
	UpdateAccount(ev schema.AccountState)
	UpdatePosition(ev schema.PositionEvent)
}

// ExecutionDatabase persists engine-owned entities. Implementations must not mutate the entities
// they are handed. Lookups of missing ids return exception.ErrNotFound.
type ExecutionDatabase interface {
	AddOrder(o *og.Order) error
	UpdateOrder(o *og.Order) error
	AddPosition(p *state.Position) error
	UpdatePosition(p *state.Position) error
	AddAccount(a *state.Account) error
	UpdateAccount(a *state.Account) error

	LoadOrder(id model.ClientOrderID) (*og.Order, error)
	LoadPosition(id model.PositionID) (*state.Position, error)
	LoadAccount(id model.AccountID) (*state.Account, error)
	LoadOrders() ([]*og.Order, error)
	LoadPositions() ([]*state.Position, error)
	LoadAccounts() ([]*state.Account, error)

	Close() error
}
