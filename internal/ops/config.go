package ops

import (
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/tianhm/nautilus-trader/internal/chaos"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/order"
	"github.com/tianhm/nautilus-trader/internal/risk"
	"github.com/tianhm/nautilus-trader/pkg/conn"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Database backends.
const (
	BackendBypass   = "bypass"
	BackendMemory   = "memory"
	BackendPebble   = "pebble"
	BackendPostgres = "postgres"
)

const (
	defaultQueueCapacity = 4096
	defaultErrorBuffer   = 64
	defaultPebbleDir     = "data/execution"
	defaultAppName       = "nautilus.trader"
)

var api = sonic.ConfigStd

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Trader    string          `json:"trader"`
	Engine    EngineConfig    `json:"engine"`
	Registry  RegistryConfig  `json:"registry"`
	Risk      risk.Config     `json:"risk"`
	Database  DatabaseConfig  `json:"database"`
	Venues    []VenueConfig   `json:"venues"`
	Profiling ProfilingConfig `json:"profiling"`
}

// EngineConfig sizes the live engine.
type EngineConfig struct {
	QueueCapacity int `json:"queueCapacity"`
	ErrorBuffer   int `json:"errorBuffer"`
}

// RegistryConfig defines venues and instruments.
type RegistryConfig struct {
	Venues      []string           `json:"venues"`
	Instruments []InstrumentConfig `json:"instruments"`
}

// InstrumentConfig describes an instrument entry. Symbol is CODE.VENUE.
type InstrumentConfig struct {
	Symbol         string `json:"symbol"`
	PricePrecision uint8  `json:"pricePrecision"`
	SizePrecision  uint8  `json:"sizePrecision"`
	QuoteCurrency  string `json:"quoteCurrency"`
}

// DatabaseConfig selects the execution database.
type DatabaseConfig struct {
	Backend  string      `json:"backend"`
	Dir      string      `json:"dir"`
	Postgres conn.Option `json:"postgres"`
	Migrate  bool        `json:"migrate"`
}

// VenueConfig describes a simulated venue.
type VenueConfig struct {
	Venue         string            `json:"venue"`
	Account       string            `json:"account"`
	Workers       int               `json:"workers"`
	QueueCapacity int               `json:"queueCapacity"`
	FillLimits    bool              `json:"fillLimits"`
	CommissionBps int64             `json:"commissionBps"`
	Currency      string            `json:"currency"`
	MarkPrices    map[string]string `json:"markPrices"`
	Chaos         *chaos.Config     `json:"chaos"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	Enabled         bool              `json:"enabled"`
	ServerAddress   string            `json:"serverAddress"`
	ApplicationName string            `json:"applicationName"`
	Tags            map[string]string `json:"tags"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Trader      model.TraderID
	Engine      EngineConfig
	Instruments *model.InstrumentRegistry
	Risk        risk.Config
	Database    DatabaseConfig
	Venues      []Venue
	Profiling   ProfilingConfig
}

// Venue is a resolved simulated venue.
type Venue struct {
	Client     order.Config
	MarkPrices map[model.Symbol]model.Price
	Chaos      *chaos.Config
}

// Load reads a JSON config file and resolves it. An empty path returns Default.
func Load(path string) (Loaded, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse resolves a JSON config document.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := api.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "decode config")
	}
	return Resolve(cfg)
}

// DefaultFile is the configuration used when no file is given: one simulated venue trading
// AUD/USD.SIM, an in-memory database and conservative risk limits.
func DefaultFile() FileConfig {
	return FileConfig{
		Trader: "TRADER-001",
		Registry: RegistryConfig{
			Venues: []string{"SIM"},
			Instruments: []InstrumentConfig{
				{Symbol: "AUD/USD.SIM", PricePrecision: 5, SizePrecision: 0, QuoteCurrency: "USD"},
			},
		},
		Risk: risk.Config{
			Version:          1,
			MaxOrderQty:      decimal.NewFromInt(1_000_000),
			MaxOrderNotional: decimal.NewFromInt(2_000_000),
			MaxPosition:      decimal.NewFromInt(5_000_000),
			OrderRateLimit:   100,
			OrderRateWindow:  time.Second,
		},
		Database: DatabaseConfig{Backend: BackendMemory},
		Venues: []VenueConfig{{
			Venue:         "SIM",
			Account:       "SIM-001",
			Workers:       2,
			CommissionBps: 2,
			Currency:      "USD",
			MarkPrices:    map[string]string{"AUD/USD.SIM": "0.66500"},
		}},
	}
}

// Default resolves DefaultFile.
func Default() (Loaded, error) {
	return Resolve(DefaultFile())
}

// Resolve validates cfg and applies defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	trader, err := model.ParseTraderID(cfg.Trader)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "trader %q", cfg.Trader)
	}
	engine, err := resolveEngine(cfg.Engine)
	if err != nil {
		return Loaded{}, err
	}
	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}
	if err := validateRisk(cfg.Risk); err != nil {
		return Loaded{}, err
	}
	database, err := resolveDatabase(cfg.Database)
	if err != nil {
		return Loaded{}, err
	}
	venues := make([]Venue, 0, len(cfg.Venues))
	for i, vc := range cfg.Venues {
		v, err := resolveVenue(vc, registry)
		if err != nil {
			return Loaded{}, errors.Wrapf(err, "venues[%d]", i)
		}
		venues = append(venues, v)
	}
	profiling := cfg.Profiling
	if profiling.Enabled && profiling.ServerAddress == "" {
		return Loaded{}, errors.Wrap(exception.ErrInvalidArgument, "profiling.serverAddress is empty")
	}
	if profiling.ApplicationName == "" {
		profiling.ApplicationName = defaultAppName
	}

	return Loaded{
		Trader:      trader,
		Engine:      engine,
		Instruments: registry,
		Risk:        cfg.Risk,
		Database:    database,
		Venues:      venues,
		Profiling:   profiling,
	}, nil
}

func resolveEngine(cfg EngineConfig) (EngineConfig, error) {
	if cfg.QueueCapacity < 0 {
		return cfg, errors.Wrapf(exception.ErrInvalidArgument, "engine.queueCapacity %d is negative", cfg.QueueCapacity)
	}
	if cfg.ErrorBuffer < 0 {
		return cfg, errors.Wrapf(exception.ErrInvalidArgument, "engine.errorBuffer %d is negative", cfg.ErrorBuffer)
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	if cfg.ErrorBuffer == 0 {
		cfg.ErrorBuffer = defaultErrorBuffer
	}
	return cfg, nil
}

func buildRegistry(cfg RegistryConfig) (*model.InstrumentRegistry, error) {
	reg := model.NewInstrumentRegistry()
	for _, venue := range cfg.Venues {
		if err := reg.AddVenue(model.Venue(strings.TrimSpace(venue))); err != nil {
			return nil, errors.Wrapf(err, "registry.venues %q", venue)
		}
	}
	for i, ic := range cfg.Instruments {
		symbol, err := model.ParseSymbol(ic.Symbol)
		if err != nil {
			return nil, errors.Wrapf(err, "registry.instruments[%d].symbol %q", i, ic.Symbol)
		}
		ccy, err := model.CurrencyFromString(ic.QuoteCurrency)
		if err != nil {
			return nil, errors.Wrapf(err, "registry.instruments[%d].quoteCurrency %q", i, ic.QuoteCurrency)
		}
		err = reg.AddInstrument(model.Instrument{
			Symbol:         symbol,
			PricePrecision: ic.PricePrecision,
			SizePrecision:  ic.SizePrecision,
			QuoteCurrency:  ccy,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "registry.instruments[%d]", i)
		}
	}
	return reg, nil
}

func validateRisk(cfg risk.Config) error {
	for name, v := range map[string]decimal.Decimal{
		"risk.maxOrderQty":      cfg.MaxOrderQty,
		"risk.maxOrderNotional": cfg.MaxOrderNotional,
		"risk.maxPosition":      cfg.MaxPosition,
	} {
		if v.IsNegative() {
			return errors.Wrapf(exception.ErrInvalidArgument, "%s %s is negative", name, v)
		}
	}
	if cfg.OrderRateLimit < 0 {
		return errors.Wrapf(exception.ErrInvalidArgument, "risk.orderRateLimit %d is negative", cfg.OrderRateLimit)
	}
	if cfg.OrderRateLimit > 0 && cfg.OrderRateWindow <= 0 {
		return errors.Wrap(exception.ErrInvalidArgument, "risk.orderRateWindow must be > 0 when risk.orderRateLimit is set")
	}
	if cfg.MaxPriceDeviationBps < 0 {
		return errors.Wrapf(exception.ErrInvalidArgument, "risk.maxPriceDeviationBps %d is negative", cfg.MaxPriceDeviationBps)
	}
	return nil
}

func resolveDatabase(cfg DatabaseConfig) (DatabaseConfig, error) {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case "":
		cfg.Backend = BackendBypass
	case BackendBypass, BackendMemory, BackendPostgres:
	case BackendPebble:
		if cfg.Dir == "" {
			cfg.Dir = defaultPebbleDir
		}
	default:
		return cfg, errors.Wrapf(exception.ErrArgumentUnsupported, "database.backend %q", cfg.Backend)
	}
	return cfg, nil
}

func resolveVenue(cfg VenueConfig, registry *model.InstrumentRegistry) (Venue, error) {
	venue := model.Venue(strings.TrimSpace(cfg.Venue))
	if !registry.HasVenue(venue) {
		return Venue{}, errors.Wrapf(exception.ErrNotFound, "venue %q is not in registry.venues", cfg.Venue)
	}
	account, err := model.ParseAccountID(cfg.Account)
	if err != nil {
		return Venue{}, errors.Wrapf(err, "account %q", cfg.Account)
	}
	var ccy model.Currency
	if cfg.Currency != "" {
		if ccy, err = model.CurrencyFromString(cfg.Currency); err != nil {
			return Venue{}, errors.Wrapf(err, "currency %q", cfg.Currency)
		}
	}

	client := order.Config{
		Venue:         venue,
		AccountID:     account,
		Workers:       cfg.Workers,
		QueueCapacity: cfg.QueueCapacity,
		FillLimits:    cfg.FillLimits,
		CommissionBps: cfg.CommissionBps,
		Currency:      ccy,
	}
	if err := client.Validate(); err != nil {
		return Venue{}, err
	}

	marks := make(map[model.Symbol]model.Price, len(cfg.MarkPrices))
	for s, p := range cfg.MarkPrices {
		symbol, err := model.ParseSymbol(s)
		if err != nil {
			return Venue{}, errors.Wrapf(err, "markPrices key %q", s)
		}
		if symbol.Venue != venue {
			return Venue{}, errors.Wrapf(exception.ErrInvalidArgument, "markPrices %s is not on %s", symbol, venue)
		}
		price, err := model.NewPrice(p)
		if err != nil {
			return Venue{}, errors.Wrapf(err, "markPrices[%s] %q", s, p)
		}
		if ins, ok := registry.Instrument(symbol); ok && price.Precision() != ins.PricePrecision {
			return Venue{}, errors.Wrapf(exception.ErrPrecisionMismatch, "markPrices[%s] %q", s, p)
		}
		marks[symbol] = price
	}

	if cfg.Chaos != nil {
		c := *cfg.Chaos
		if c.ReorderWindow == 0 {
			c.ReorderWindow = 1
		}
		if err := c.Validate(); err != nil {
			return Venue{}, errors.Wrap(err, "chaos")
		}
		cfg.Chaos = &c
	}
	return Venue{Client: client, MarkPrices: marks, Chaos: cfg.Chaos}, nil
}
