package conn

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yanun0323/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
	defaultConnectTimeout  = 5 * time.Second
)

// Option defines connection options for PostgreSQL. ConnString, when set, overrides the discrete fields.
type Option struct {
	Host       string            `json:"host"`
	Port       int               `json:"port"`
	User       string            `json:"user"`
	Password   string            `json:"password"`
	Database   string            `json:"database"`
	SSLMode    string            `json:"sslMode"`
	Params     map[string]string `json:"params"`
	ConnString string            `json:"connString"`

	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	// ConnectTimeout bounds the initial ping. Zero means 5s.
	ConnectTimeout time.Duration `json:"connectTimeout"`
	// LogLevel is one of silent, error, warn or info. Empty means silent.
	LogLevel string `json:"logLevel"`

	Config *gorm.Config `json:"-"`
}

// Client wraps a PostgreSQL connection pool.
type Client struct {
	opt Option
	db  *gorm.DB
}

// New opens the pool and pings the server once.
func New(option Option) (*Client, error) {
	connString, err := option.dsn()
	if err != nil {
		return nil, err
	}
	level, err := option.logLevel()
	if err != nil {
		return nil, err
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}
	if config.Logger == nil {
		config.Logger = logger.Default.LogMode(level)
	}

	db, err := gorm.Open(postgres.Open(connString), config)
	if err != nil {
		return nil, errors.Wrapf(err, "open postgres %s", redact(connString))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "postgres pool")
	}
	if option.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(option.MaxOpenConns)
	}
	if option.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(option.MaxIdleConns)
	}
	if option.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(option.ConnMaxLifetime)
	}

	c := &Client{opt: option, db: db}
	timeout := option.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "ping postgres %s", redact(connString))
	}
	logs.Infof("postgres connected: %s", redact(connString))
	return c, nil
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.Wrap(exception.ErrNilInstance, "postgres client is not connected")
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt Option) logLevel() (logger.LogLevel, error) {
	switch strings.ToLower(opt.LogLevel) {
	case "", "silent":
		return logger.Silent, nil
	case "error":
		return logger.Error, nil
	case "warn":
		return logger.Warn, nil
	case "info":
		return logger.Info, nil
	default:
		return 0, errors.Wrapf(exception.ErrArgumentUnsupported, "postgres logLevel %q", opt.LogLevel)
	}
}

func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}
	if opt.Port < 0 || opt.Port > 65535 {
		return "", errors.Wrapf(exception.ErrInvalidArgument, "postgres port %d", opt.Port)
	}

	host, port, sslMode := opt.Host, opt.Port, opt.SSLMode
	if host == "" {
		host = defaultPostgresHost
	}
	if port == 0 {
		port = defaultPostgresPort
	}
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%d", host, port)}
	switch {
	case opt.User != "" && opt.Password != "":
		u.User = url.UserPassword(opt.User, opt.Password)
	case opt.User != "":
		u.User = url.User(opt.User)
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range opt.Params {
		if key != "" {
			query.Set(key, value)
		}
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// redact hides the password of a URL-form connection string.
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
