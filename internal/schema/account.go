package schema

import (
	"strings"

	"github.com/tianhm/nautilus-trader/internal/model"
)

// AccountState is a full snapshot of an account's balances.
type AccountState struct {
	EventHeader
	AccountID      model.AccountID   `json:"account_id"`
	Balances       []model.Money     `json:"balances"`
	BalancesFree   []model.Money     `json:"balances_free"`
	BalancesLocked []model.Money     `json:"balances_locked"`
	Info           map[string]string `json:"info,omitempty"`
}

func (AccountState) isEvent()        {}
func (AccountState) Kind() EventKind { return EventAccountState }

func (e AccountState) String() string {
	return newFormatter(EventAccountState).
		field("account_id", e.AccountID.String()).
		field("free", moneyList(e.BalancesFree)).
		field("locked", moneyList(e.BalancesLocked)).
		done(e.ID)
}

func (e AccountState) GoString() string { return e.String() }

func moneyList(ms []model.Money) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
