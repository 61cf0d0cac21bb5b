package ops

import (
	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/core"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/store"
	"github.com/tianhm/nautilus-trader/pkg/conn"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// OpenDatabase opens the execution database cfg selects.
func OpenDatabase(cfg DatabaseConfig) (core.ExecutionDatabase, error) {
	switch cfg.Backend {
	case BackendBypass, "":
		return store.Bypass{}, nil
	case BackendMemory:
		return store.NewMemory(), nil
	case BackendPebble:
		db, err := store.OpenPebble(cfg.Dir, nil)
		if err != nil {
			return nil, err
		}
		logs.Infof("pebble execution database opened, dir: %s", cfg.Dir)
		return db, nil
	case BackendPostgres:
		client, err := conn.New(cfg.Postgres)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		db, err := store.NewPostgres(client, cfg.Migrate)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		logs.Infof("postgres execution database opened, migrate: %t", cfg.Migrate)
		return db, nil
	default:
		return nil, errors.Wrapf(exception.ErrArgumentUnsupported, "database.backend %q", cfg.Backend)
	}
}
