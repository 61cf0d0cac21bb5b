package store

import (
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/og"
	"github.com/tianhm/nautilus-trader/internal/state"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Bypass persists nothing. Lookups find nothing.
type Bypass struct{}

func (Bypass) AddOrder(*og.Order) error            { return nil }
func (Bypass) UpdateOrder(*og.Order) error         { return nil }
func (Bypass) AddPosition(*state.Position) error    { return nil }
func (Bypass) UpdatePosition(*state.Position) error { return nil }
func (Bypass) AddAccount(*state.Account) error      { return nil }
func (Bypass) UpdateAccount(*state.Account) error   { return nil }

func (Bypass) LoadOrder(model.ClientOrderID) (*og.Order, error) { return nil, exception.ErrNotFound }
func (Bypass) LoadPosition(model.PositionID) (*state.Position, error) {
	return nil, exception.ErrNotFound
}
func (Bypass) LoadAccount(model.AccountID) (*state.Account, error) { return nil, exception.ErrNotFound }
func (Bypass) LoadOrders() ([]*og.Order, error)                    { return nil, nil }
func (Bypass) LoadPositions() ([]*state.Position, error)           { return nil, nil }
func (Bypass) LoadAccounts() ([]*state.Account, error)             { return nil, nil }

func (Bypass) Close() error { return nil }
