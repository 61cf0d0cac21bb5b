package state

import (
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Balance is one currency's balance in an account.
type Balance struct {
	Total  model.Money
	Free   model.Money
	Locked model.Money
}

// Account tracks per-currency balances. It changes only through AccountState events and relayed P&L.
type Account struct {
	id       model.AccountID
	balances map[model.Currency]Balance
	order    []model.Currency
	info     map[string]string
	events   []schema.AccountState
}

// NewAccount builds an account from its first state event.
func NewAccount(ev schema.AccountState) *Account {
	a := &Account{id: ev.AccountID}
	a.reset(ev)
	return a
}

// Apply replaces the balances with those in ev.
func (a *Account) Apply(ev schema.AccountState) error {
	if ev.AccountID != a.id {
		return errors.Wrapf(exception.ErrInvalidArgument, "account %s applied to %s", ev.AccountID, a.id)
	}
	a.reset(ev)
	return nil
}

func (a *Account) reset(ev schema.AccountState) {
	a.balances = make(map[model.Currency]Balance, len(ev.Balances))
	a.order = a.order[:0]
	for _, total := range ev.Balances {
		ccy := total.Currency()
		a.balances[ccy] = Balance{Total: total, Free: model.ZeroMoney(ccy), Locked: model.ZeroMoney(ccy)}
		a.order = append(a.order, ccy)
	}
	for _, free := range ev.BalancesFree {
		b := a.balance(free.Currency())
		b.Free = free
		a.balances[free.Currency()] = b
	}
	for _, locked := range ev.BalancesLocked {
		b := a.balance(locked.Currency())
		b.Locked = locked
		a.balances[locked.Currency()] = b
	}
	a.info = ev.Info
	a.events = append(a.events, ev)
}

func (a *Account) balance(ccy model.Currency) Balance {
	b, ok := a.balances[ccy]
	if !ok {
		b = Balance{Total: model.ZeroMoney(ccy), Free: model.ZeroMoney(ccy), Locked: model.ZeroMoney(ccy)}
		a.order = append(a.order, ccy)
	}
	return b
}

// ApplyPnL adds a realized P&L delta to total and free balances and returns the derived state event.
func (a *Account) ApplyPnL(delta model.Money, header schema.EventHeader) (schema.AccountState, error) {
	b := a.balance(delta.Currency())
	total, err := b.Total.Add(delta)
	if err != nil {
		return schema.AccountState{}, err
	}
	free, err := b.Free.Add(delta)
	if err != nil {
		return schema.AccountState{}, err
	}
	b.Total, b.Free = total, free
	a.balances[delta.Currency()] = b

	ev := a.StateEvent(header)
	a.events = append(a.events, ev)
	return ev, nil
}

// StateEvent renders the current balances as an AccountState.
func (a *Account) StateEvent(header schema.EventHeader) schema.AccountState {
	ev := schema.AccountState{
		EventHeader:    header,
		AccountID:      a.id,
		Balances:       make([]model.Money, 0, len(a.order)),
		BalancesFree:   make([]model.Money, 0, len(a.order)),
		BalancesLocked: make([]model.Money, 0, len(a.order)),
		Info:           a.info,
	}
	for _, ccy := range a.order {
		b := a.balances[ccy]
		ev.Balances = append(ev.Balances, b.Total)
		ev.BalancesFree = append(ev.BalancesFree, b.Free)
		ev.BalancesLocked = append(ev.BalancesLocked, b.Locked)
	}
	return ev
}

func (a *Account) ID() model.AccountID { return a.id }

// Balance returns the balance in ccy.
func (a *Account) Balance(ccy model.Currency) (Balance, bool) {
	b, ok := a.balances[ccy]
	return b, ok
}

// Currencies returns the currencies held in first-seen order.
func (a *Account) Currencies() []model.Currency {
	return append([]model.Currency(nil), a.order...)
}

// Events returns a copy of the applied state log.
func (a *Account) Events() []schema.AccountState {
	return append([]schema.AccountState(nil), a.events...)
}

func (a *Account) LastEvent() schema.AccountState {
	return a.events[len(a.events)-1]
}

// ReplayAccount rebuilds an account from its persisted state log.
func ReplayAccount(events []schema.AccountState) (*Account, error) {
	if len(events) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "replay empty account log")
	}
	a := NewAccount(events[0])
	for _, ev := range events[1:] {
		if err := a.Apply(ev); err != nil {
			return nil, err
		}
	}
	return a, nil
}
