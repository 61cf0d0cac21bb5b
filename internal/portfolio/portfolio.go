package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/schema"
)

type netKey struct {
	account model.AccountID
	symbol  model.Symbol
}

// Portfolio is a read model of account states and positions fed by the engine. It is safe for
// concurrent use.
type Portfolio struct {
	mu        sync.RWMutex
	accounts  map[model.AccountID]schema.AccountState
	positions map[model.PositionID]schema.PositionState
	net       map[netKey]decimal.Decimal
	realized  map[model.Currency]model.Money
}

// New creates an empty portfolio.
func New() *Portfolio {
	return &Portfolio{
		accounts:  make(map[model.AccountID]schema.AccountState),
		positions: make(map[model.PositionID]schema.PositionState),
		net:       make(map[netKey]decimal.Decimal),
		realized:  make(map[model.Currency]model.Money),
	}
}

// UpdateAccount stores the latest state of an account.
func (p *Portfolio) UpdateAccount(ev schema.AccountState) {
	p.mu.Lock()
	p.accounts[ev.AccountID] = ev
	p.mu.Unlock()
}

// UpdatePosition stores the position snapshot carried by ev.
func (p *Portfolio) UpdatePosition(ev schema.PositionEvent) {
	s := ev.State()
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.positions[s.ID]; ok {
		p.addRealized(prev.RealizedPnL.Neg())
	}
	p.addRealized(s.RealizedPnL)
	p.positions[s.ID] = s

	key := netKey{account: s.AccountID, symbol: s.Symbol}
	if s.IsClosed() {
		delete(p.net, key)
		return
	}
	p.net[key] = s.SignedQty()
}

func (p *Portfolio) addRealized(m model.Money) {
	ccy := m.Currency()
	if ccy.IsNull() {
		return
	}
	total, ok := p.realized[ccy]
	if !ok {
		p.realized[ccy] = m
		return
	}
	p.realized[ccy], _ = total.Add(m)
}

// Account returns the latest state of an account.
func (p *Portfolio) Account(id model.AccountID) (schema.AccountState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ev, ok := p.accounts[id]
	return ev, ok
}

// Position returns the latest snapshot of a position.
func (p *Portfolio) Position(id model.PositionID) (schema.PositionState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.positions[id]
	return s, ok
}

// NetQty returns the signed open quantity of symbol in account.
func (p *Portfolio) NetQty(account model.AccountID, symbol model.Symbol) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.net[netKey{account: account, symbol: symbol}]
}

// IsFlat reports whether no position in symbol is open for account.
func (p *Portfolio) IsFlat(account model.AccountID, symbol model.Symbol) bool {
	return p.NetQty(account, symbol).IsZero()
}

// RealizedPnL returns the realized P&L summed over every position in ccy.
func (p *Portfolio) RealizedPnL(ccy model.Currency) model.Money {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if m, ok := p.realized[ccy]; ok {
		return m
	}
	return model.ZeroMoney(ccy)
}

// OpenPositions returns the snapshots of positions that are not flat.
func (p *Portfolio) OpenPositions() []schema.PositionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]schema.PositionState, 0, len(p.net))
	for _, s := range p.positions {
		if !s.IsClosed() {
			out = append(out, s)
		}
	}
	return out
}
