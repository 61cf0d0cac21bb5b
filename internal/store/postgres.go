package store

import (
	stderrors "errors"
	"time"

	yerrors "github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tianhm/nautilus-trader/pkg/conn"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Tables holding one event log row per entity.
const (
	TableOrders    = "exec_orders"
	TablePositions = "exec_positions"
	TableAccounts  = "exec_accounts"
)

var tables = map[string]string{
	PrefixOrder:    TableOrders,
	PrefixPosition: TablePositions,
	PrefixAccount:  TableAccounts,
}

// EntityRow is the row layout shared by the three tables.
type EntityRow struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Events    string    `gorm:"column:events;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// Postgres persists event logs in PostgreSQL through gorm.
type Postgres struct {
	logStore
	client *conn.Client
}

// NewPostgres wraps client. With migrate set the tables are created when missing.
func NewPostgres(client *conn.Client, migrate bool) (*Postgres, error) {
	if client == nil || client.DB() == nil {
		return nil, exception.ErrNilInstance
	}
	db := client.DB()
	if migrate {
		for _, table := range []string{TableOrders, TablePositions, TableAccounts} {
			if err := db.Table(table).AutoMigrate(&EntityRow{}); err != nil {
				return nil, yerrors.Wrap(err, "auto migrate").With("table", table)
			}
		}
	}
	return &Postgres{logStore: logStore{kv: postgresKV{db: db, client: client}}, client: client}, nil
}

type postgresKV struct {
	db     *gorm.DB
	client *conn.Client
}

func tableOf(key string) (table, id string, err error) {
	prefix, id := splitKey(key)
	table, ok := tables[prefix]
	if !ok {
		return "", "", yerrors.Wrap(exception.ErrInvalidArgument, "unknown key prefix").With("key", key)
	}
	return table, id, nil
}

// upsert inserts row or replaces the events of an existing row with the same id.
func upsert(db *gorm.DB, table string, row *EntityRow) *gorm.DB {
	return db.Table(table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"events", "updated_at"}),
	}).Create(row)
}

func (s postgresKV) set(key string, value []byte) error {
	table, id, err := tableOf(key)
	if err != nil {
		return err
	}
	row := EntityRow{ID: id, Events: string(value), UpdatedAt: time.Now().UTC()}
	if err := upsert(s.db, table, &row).Error; err != nil {
		return yerrors.Wrap(err, "upsert event log").With("table", table).With("id", id)
	}
	return nil
}

func (s postgresKV) get(key string) ([]byte, error) {
	table, id, err := tableOf(key)
	if err != nil {
		return nil, err
	}
	var row EntityRow
	if err := s.db.Table(table).Where("id = ?", id).Take(&row).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exception.ErrNotFound
		}
		return nil, yerrors.Wrap(err, "select event log").With("table", table).With("id", id)
	}
	return []byte(row.Events), nil
}

func (s postgresKV) scan(prefix string, fn func(key string, value []byte) error) error {
	table, ok := tables[prefix]
	if !ok {
		return yerrors.Wrap(exception.ErrInvalidArgument, "unknown key prefix").With("prefix", prefix)
	}
	var rows []EntityRow
	if err := s.db.Table(table).Order("id").Find(&rows).Error; err != nil {
		return yerrors.Wrap(err, "select event logs").With("table", table)
	}
	for _, row := range rows {
		if err := fn(prefix+row.ID, []byte(row.Events)); err != nil {
			return err
		}
	}
	return nil
}

func (s postgresKV) close() error { return s.client.Close() }
