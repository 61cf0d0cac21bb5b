// Package store implements the execution database. Every entity is persisted as its event log and
// rebuilt by replaying that log.
package store

import (
	"strings"

	"github.com/tianhm/nautilus-trader/internal/codec"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/og"
	"github.com/tianhm/nautilus-trader/internal/state"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Key prefixes.
const (
	PrefixOrder    = "o:"
	PrefixPosition = "p:"
	PrefixAccount  = "a:"
)

func orderKey(id model.ClientOrderID) string { return PrefixOrder + string(id) }
func positionKey(id model.PositionID) string { return PrefixPosition + string(id) }
func accountKey(id model.AccountID) string   { return PrefixAccount + id.String() }

// splitKey returns the prefix and entity id of a key.
func splitKey(key string) (prefix, id string) {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i+1], key[i+1:]
	}
	return "", key
}

// kv is the storage a log store writes encoded event logs to. get returns exception.ErrNotFound for
// missing keys and scan visits keys in ascending order.
type kv interface {
	set(key string, value []byte) error
	get(key string) ([]byte, error)
	scan(prefix string, fn func(key string, value []byte) error) error
	close() error
}

// logStore maps entities to event logs in a kv.
type logStore struct {
	kv kv
}

func (s logStore) putOrder(o *og.Order) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	data, err := codec.EncodeEvents(o.Events())
	if err != nil {
		return errors.Wrapf(err, "encode order %s", o.ClientOrderID())
	}
	return s.kv.set(orderKey(o.ClientOrderID()), data)
}

func (s logStore) putPosition(p *state.Position) error {
	if p == nil {
		return exception.ErrNilInstance
	}
	data, err := codec.EncodeEvents(p.Events())
	if err != nil {
		return errors.Wrapf(err, "encode position %s", p.ID())
	}
	return s.kv.set(positionKey(p.ID()), data)
}

func (s logStore) putAccount(a *state.Account) error {
	if a == nil {
		return exception.ErrNilInstance
	}
	data, err := codec.EncodeEvents(a.Events())
	if err != nil {
		return errors.Wrapf(err, "encode account %s", a.ID())
	}
	return s.kv.set(accountKey(a.ID()), data)
}

func (s logStore) AddOrder(o *og.Order) error            { return s.putOrder(o) }
func (s logStore) UpdateOrder(o *og.Order) error         { return s.putOrder(o) }
func (s logStore) AddPosition(p *state.Position) error    { return s.putPosition(p) }
func (s logStore) UpdatePosition(p *state.Position) error { return s.putPosition(p) }
func (s logStore) AddAccount(a *state.Account) error      { return s.putAccount(a) }
func (s logStore) UpdateAccount(a *state.Account) error   { return s.putAccount(a) }

func (s logStore) LoadOrder(id model.ClientOrderID) (*og.Order, error) {
	data, err := s.kv.get(orderKey(id))
	if err != nil {
		return nil, errors.Wrapf(err, "order %s", id)
	}
	return decodeOrder(data)
}

func (s logStore) LoadPosition(id model.PositionID) (*state.Position, error) {
	data, err := s.kv.get(positionKey(id))
	if err != nil {
		return nil, errors.Wrapf(err, "position %s", id)
	}
	return decodePosition(data)
}

func (s logStore) LoadAccount(id model.AccountID) (*state.Account, error) {
	data, err := s.kv.get(accountKey(id))
	if err != nil {
		return nil, errors.Wrapf(err, "account %s", id)
	}
	return decodeAccount(data)
}

func (s logStore) LoadOrders() ([]*og.Order, error) {
	return loadAll(s.kv, PrefixOrder, decodeOrder)
}

func (s logStore) LoadPositions() ([]*state.Position, error) {
	return loadAll(s.kv, PrefixPosition, decodePosition)
}

func (s logStore) LoadAccounts() ([]*state.Account, error) {
	return loadAll(s.kv, PrefixAccount, decodeAccount)
}

func (s logStore) Close() error { return s.kv.close() }

func loadAll[T any](store kv, prefix string, decode func([]byte) (T, error)) ([]T, error) {
	var out []T
	err := store.scan(prefix, func(key string, value []byte) error {
		v, err := decode(value)
		if err != nil {
			return errors.Wrapf(err, "load %s", key)
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeOrder(data []byte) (*og.Order, error) {
	events, err := codec.DecodeOrderEvents(data)
	if err != nil {
		return nil, err
	}
	return og.Replay(events)
}

func decodePosition(data []byte) (*state.Position, error) {
	events, err := codec.DecodePositionEvents(data)
	if err != nil {
		return nil, err
	}
	return state.RestorePosition(events)
}

func decodeAccount(data []byte) (*state.Account, error) {
	events, err := codec.DecodeAccountStates(data)
	if err != nil {
		return nil, err
	}
	return state.ReplayAccount(events)
}
