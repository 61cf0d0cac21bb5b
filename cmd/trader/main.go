package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"github.com/tianhm/nautilus-trader/internal/chaos"
	"github.com/tianhm/nautilus-trader/internal/core"
	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/internal/ids"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/obs"
	"github.com/tianhm/nautilus-trader/internal/ops"
	"github.com/tianhm/nautilus-trader/internal/order"
	"github.com/tianhm/nautilus-trader/internal/portfolio"
	"github.com/tianhm/nautilus-trader/internal/recorder"
	"github.com/tianhm/nautilus-trader/internal/risk"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/internal/state"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

type options struct {
	configPath     string
	configReload   time.Duration
	orderCount     int
	orderInterval  time.Duration
	balance        string
	riskBps        string
	stopDistance   string
	settle         time.Duration
	loadState      bool
	snapshotPath   string
	verifySnapshot string
	journalDir     string
	replayDir      string
	replaySpeed    float64
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to JSON config (empty = built-in defaults)")
	flag.DurationVar(&opts.configReload, "config-reload-interval", 2*time.Second, "Config reload interval (0=disable)")
	flag.IntVar(&opts.orderCount, "order-count", 10, "Number of orders the demo strategy submits")
	flag.DurationVar(&opts.orderInterval, "order-interval", 100*time.Millisecond, "Delay between orders")
	flag.StringVar(&opts.balance, "balance", "1000000", "Starting balance of each simulated account")
	flag.StringVar(&opts.riskBps, "risk-bps", "10", "Equity risked per order in basis points")
	flag.StringVar(&opts.stopDistance, "stop-distance", "0.00100", "Stop distance used to size orders")
	flag.DurationVar(&opts.settle, "settle", 2*time.Second, "Max wait for venue events before shutdown")
	flag.BoolVar(&opts.loadState, "load-state", false, "Rebuild engine state from the database before trading")
	flag.StringVar(&opts.snapshotPath, "snapshot-path", "", "Write a position snapshot here on exit")
	flag.StringVar(&opts.verifySnapshot, "verify-snapshot", "", "Compare recovered positions against this snapshot")
	flag.StringVar(&opts.journalDir, "journal-dir", "", "Record account and position events to a journal in this directory")
	flag.StringVar(&opts.replayDir, "replay-dir", "", "Rebuild a portfolio from the journal in this directory and exit")
	flag.Float64Var(&opts.replaySpeed, "replay-speed", 0, "Replay pacing (1=real-time, 0=no pacing)")
	flag.Parse()

	if err := run(opts); err != nil {
		logs.Errorf("trader failed, err: %+v", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	loaded, err := ops.Load(opts.configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if opts.replayDir != "" {
		return runReplay(context.Background(), opts.replayDir, opts.replaySpeed, quoteCurrencies(loaded))
	}

	if loaded.Profiling.Enabled {
		profiler, err := startProfiler(loaded.Profiling, loaded.Trader)
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	db, err := ops.OpenDatabase(loaded.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logs.Errorf("close execution database, err: %+v", err)
		}
	}()

	metrics := obs.NewMetrics()
	pf := portfolio.New()
	var sink core.Portfolio = pf
	if opts.journalDir != "" {
		journal, err := recorder.NewWriter(recorder.DefaultConfig(opts.journalDir))
		if err != nil {
			return err
		}
		if err := journal.Start(context.Background()); err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logs.Errorf("close journal, err: %+v", err)
			}
		}()
		sink = journaledPortfolio{Portfolio: pf, journal: journal}
	}
	live := core.NewLive(core.LiveConfig{
		Config:        core.Config{TraderID: loaded.Trader, ErrorBuffer: loaded.Engine.ErrorBuffer},
		QueueCapacity: loaded.Engine.QueueCapacity,
	}, core.Deps{
		Database:    db,
		Portfolio:   sink,
		Risk:        risk.NewEngine(loaded.Risk),
		Instruments: loaded.Instruments,
		Metrics:     metrics,
	})

	if opts.loadState {
		if err := live.LoadState(); err != nil {
			return errors.Wrap(err, "load state")
		}
		if opts.verifySnapshot != "" {
			expected, err := state.ReadSnapshot(opts.verifySnapshot)
			if err != nil {
				return err
			}
			if err := state.CompareSnapshots(expected, live.PositionSnapshot()); err != nil {
				return errors.Wrap(err, "verify snapshot")
			}
			logs.Infof("snapshot verified, positions: %d", len(expected.Positions))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	live.Start(ctx)
	go reportErrors(ctx, live.Errors())

	clients := make([]*order.SimulatedClient, 0, len(loaded.Venues))
	stopClients := func() {
		for _, c := range clients {
			c.Stop()
		}
	}
	for _, v := range loaded.Venues {
		client, err := startVenue(ctx, live, loaded.Instruments, v)
		if err != nil {
			stopClients()
			live.Stop()
			return err
		}
		clients = append(clients, client)
	}

	if opts.configPath != "" && opts.configReload > 0 {
		go watchConfig(ctx, opts.configPath, opts.configReload, func(next ops.Loaded) {
			live.UpdateRisk(next.Risk)
		})
	}

	err = trade(ctx, opts, loaded, live, pf)
	settle(ctx, opts.settle, live, clients)

	stopClients()
	live.Stop()

	if opts.snapshotPath != "" {
		if werr := state.WriteSnapshot(opts.snapshotPath, live.PositionSnapshot()); werr != nil {
			logs.Errorf("write snapshot %s, err: %+v", opts.snapshotPath, werr)
		}
	}
	logSummary(metrics.Snapshot(), pf, quoteCurrencies(loaded))
	return err
}

// startVenue creates a simulated venue whose events feed the live engine, registers it and starts its workers.
func startVenue(ctx context.Context, live *core.LiveEngine, instruments *model.InstrumentRegistry, v ops.Venue) (*order.SimulatedClient, error) {
	var ce *chaos.Engine
	if v.Chaos != nil {
		var err error
		if ce, err = chaos.NewEngine(*v.Chaos); err != nil {
			return nil, errors.Wrapf(err, "chaos for %s", v.Client.Venue)
		}
		logs.Warnf("chaos enabled for %s, config: %+v", v.Client.Venue, *v.Chaos)
	}

	client, err := order.New(v.Client, order.Deps{Instruments: instruments, Chaos: ce}, func(ev schema.Event) {
		if err := live.Process(ctx, ev); err != nil {
			logs.Warnf("venue %s event %s not queued, err: %+v", v.Client.Venue, ev.Kind(), err)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "venue %s", v.Client.Venue)
	}
	for symbol, price := range v.MarkPrices {
		client.SetMarkPrice(symbol, price)
	}
	if err := live.RegisterClient(client); err != nil {
		return nil, err
	}
	client.Run(ctx)
	logs.Infof("simulated venue %s started, account: %s, workers: %d", v.Client.Venue, v.Client.AccountID, v.Client.Workers)
	return client, nil
}

// trade seeds the first venue's account and lets a flipper strategy trade its first marked instrument.
func trade(ctx context.Context, opts options, loaded ops.Loaded, live *core.LiveEngine, pf *portfolio.Portfolio) error {
	if opts.orderCount <= 0 || len(loaded.Venues) == 0 {
		return nil
	}
	venue := loaded.Venues[0]
	symbol, mark, ok := firstMark(venue)
	if !ok {
		return errors.Wrapf(exception.ErrNotFound, "venue %s has no mark prices", venue.Client.Venue)
	}
	ins, ok := loaded.Instruments.Instrument(symbol)
	if !ok {
		ins = model.Instrument{Symbol: symbol, PricePrecision: mark.Precision(), QuoteCurrency: venue.Client.Currency}
	}
	ccy := ins.QuoteCurrency
	if ccy.IsNull() {
		ccy = model.USD
	}

	balance, err := model.NewMoney(opts.balance, ccy)
	if err != nil {
		return errors.Wrapf(err, "balance %q", opts.balance)
	}
	riskBps, err := decimal.NewFromString(opts.riskBps)
	if err != nil {
		return errors.Wrapf(exception.ErrInvalidArgument, "risk-bps %q", opts.riskBps)
	}
	stop, err := decimal.NewFromString(opts.stopDistance)
	if err != nil {
		return errors.Wrapf(exception.ErrInvalidArgument, "stop-distance %q", opts.stopDistance)
	}

	err = live.Process(ctx, schema.AccountState{
		EventHeader:    schema.NewHeader(ids.Random{}.New(), time.Now().UTC()),
		AccountID:      venue.Client.AccountID,
		Balances:       []model.Money{balance},
		BalancesFree:   []model.Money{balance},
		BalancesLocked: []model.Money{model.ZeroMoney(ccy)},
	})
	if err != nil {
		return errors.Wrap(err, "seed account")
	}

	strategy := newFlipper(model.NewStrategyID("FLIPPER", "001"), loaded.Trader, venue.Client.AccountID, ins, riskBps, stop)
	if err := live.RegisterStrategy(strategy); err != nil {
		return err
	}

	for i := 0; i < opts.orderCount; i++ {
		equity := balance
		if acc, ok := pf.Account(venue.Client.AccountID); ok && len(acc.Balances) > 0 {
			equity = acc.Balances[0]
		}
		cmd, err := strategy.Next(venue.Client.Venue, mark, equity)
		if err != nil {
			return err
		}
		if err := live.Execute(cmd); err != nil {
			logs.Warnf("order %s refused, err: %+v", cmd.Order.ClientOrderID, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.orderInterval):
		}
	}
	logs.Infof("strategy %s done, orders: %d, fills: %d", strategy.ID(), opts.orderCount, strategy.Fills())
	return nil
}

func quoteCurrencies(loaded ops.Loaded) []model.Currency {
	seen := make(map[model.Currency]struct{})
	var out []model.Currency
	for i := 0; i < loaded.Instruments.InstrumentCount(); i++ {
		ins, _ := loaded.Instruments.InstrumentAt(i)
		if _, ok := seen[ins.QuoteCurrency]; ok || ins.QuoteCurrency.IsNull() {
			continue
		}
		seen[ins.QuoteCurrency] = struct{}{}
		out = append(out, ins.QuoteCurrency)
	}
	return out
}

func firstMark(v ops.Venue) (model.Symbol, model.Price, bool) {
	var (
		best  model.Symbol
		price model.Price
		found bool
	)
	for s, p := range v.MarkPrices {
		if !found || s.String() < best.String() {
			best, price, found = s, p, true
		}
	}
	return best, price, found
}

// settle waits until every venue and the engine queue are idle, or until timeout.
func settle(ctx context.Context, timeout time.Duration, live *core.LiveEngine, clients []*order.SimulatedClient) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		idle := live.Pending() == 0
		for _, c := range clients {
			idle = idle && c.Pending() == 0
		}
		if idle {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	logs.Warnf("venues not idle after %s", timeout)
}

func reportErrors(ctx context.Context, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			logs.Errorf("execution engine, err: %+v", err)
		}
	}
}

func logSummary(s obs.Snapshot, pf *portfolio.Portfolio, currencies []model.Currency) {
	logs.Infof("metrics: events=%v rejections=%v commands=%d violations=%d clamps=%d duplicates=%d drops=%d closed=%d execute=%+v process=%+v",
		s.EventCounts, s.Rejections, s.Commands, s.Violations, s.Clamps, s.Duplicates, s.QueueDrops, s.QueueClosed,
		s.ExecuteLatency, s.ProcessLatency)
	for _, p := range pf.OpenPositions() {
		logs.Infof("open position %s %s net %s, realized: %s", p.ID, p.Symbol, p.SignedQty(), p.RealizedPnL)
	}
	for _, ccy := range currencies {
		logs.Infof("realized pnl: %s", pf.RealizedPnL(ccy))
	}
}

func startProfiler(cfg ops.ProfilingConfig, trader model.TraderID) (*pyroscope.Profiler, error) {
	tags := map[string]string{"trader": trader.String()}
	for k, v := range cfg.Tags {
		tags[k] = v
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Tags:            tags,
		Logger:          emptyLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "start pyroscope")
	}
	logs.Infof("pyroscope profiling to %s as %s", cfg.ServerAddress, cfg.ApplicationName)
	return profiler, nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
