package state

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/schema"
)

func accountState(free, locked int64) schema.AccountState {
	return schema.AccountState{
		EventHeader:    schema.NewHeader(uuid.New(), time.Unix(0, 0)),
		AccountID:      accountID,
		Balances:       []model.Money{model.MoneyFromInt(free+locked, model.USD)},
		BalancesFree:   []model.Money{model.MoneyFromInt(free, model.USD)},
		BalancesLocked: []model.Money{model.MoneyFromInt(locked, model.USD)},
	}
}

func TestAccount(t *testing.T) {
	acc := NewAccount(accountState(1_000_000, 0))
	b, ok := acc.Balance(model.USD)
	require.True(t, ok)
	assert.Equal(t, "1,000,000.00 USD", b.Total.String())

	require.NoError(t, acc.Apply(accountState(900_000, 100_000)))
	b, _ = acc.Balance(model.USD)
	assert.Equal(t, "900,000.00 USD", b.Free.String())
	assert.Equal(t, "100,000.00 USD", b.Locked.String())

	header := schema.NewHeader(uuid.New(), time.Unix(1, 0))
	ev, err := acc.ApplyPnL(model.MustMoney("-72.5", model.USD), header)
	require.NoError(t, err)
	assert.Equal(t, header.ID, ev.ID)
	assert.Equal(t, "[999,927.50 USD]", "["+ev.Balances[0].String()+"]")
	assert.Equal(t, "899,927.50 USD", ev.BalancesFree[0].String())
	assert.Len(t, acc.Events(), 3)

	_, err = acc.ApplyPnL(model.MoneyFromInt(5, model.EUR), header)
	require.NoError(t, err)
	assert.Equal(t, []model.Currency{model.USD, model.EUR}, acc.Currencies())

	other := accountState(1, 0)
	other.AccountID = model.NewAccountID("SIM", "999")
	assert.Error(t, acc.Apply(other))

	replayed, err := ReplayAccount(acc.Events())
	require.NoError(t, err)
	assert.Equal(t, acc.StateEvent(header), replayed.StateEvent(header))
}
