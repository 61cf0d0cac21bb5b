package store

import (
	stderrors "errors"

	"github.com/cockroachdb/pebble"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Pebble persists event logs in a Pebble key-value store under the o:, p: and a: prefixes.
type Pebble struct {
	logStore
	db *pebble.DB
}

// OpenPebble opens or creates the database in dir. Nil opts use Pebble's defaults.
func OpenPebble(dir string, opts *pebble.Options) (*Pebble, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble %s", dir)
	}
	return &Pebble{logStore: logStore{kv: pebbleKV{db: db}}, db: db}, nil
}

// Flush persists memtables to disk.
func (p *Pebble) Flush() error { return p.db.Flush() }

type pebbleKV struct {
	db *pebble.DB
}

func (s pebbleKV) set(key string, value []byte) error {
	if err := s.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

func (s pebbleKV) get(key string) ([]byte, error) {
	value, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if stderrors.Is(err, pebble.ErrNotFound) {
			return nil, exception.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %s", key)
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (s pebbleKV) scan(prefix string, fn func(key string, value []byte) error) error {
	lower := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upperBound(lower),
	})
	if err != nil {
		return errors.Wrapf(err, "scan %s", prefix)
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(string(iter.Key()), append([]byte(nil), iter.Value()...)); err != nil {
			_ = iter.Close()
			return err
		}
	}
	return iter.Close()
}

func (s pebbleKV) close() error { return s.db.Close() }

// upperBound returns the smallest key greater than every key with the given prefix.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
