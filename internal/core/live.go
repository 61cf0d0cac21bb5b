package core

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/bus"
	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/risk"
	"github.com/tianhm/nautilus-trader/internal/schema"
	"github.com/tianhm/nautilus-trader/internal/state"
)

const defaultQueueCapacity = 4096

// ErrQueueFull is returned by TryProcess when the intake queue has no space.
var ErrQueueFull = bus.ErrQueueFull

// LiveConfig holds live engine settings.
type LiveConfig struct {
	Config
	QueueCapacity int
}

// LiveEngine funnels venue events through one bounded queue with a single consumer. Commands are
// applied directly. One mutex serializes the consumer, commands and queries, and strategies,
// the portfolio and venue clients are always called outside it.
type LiveEngine struct {
	mu     sync.Mutex
	engine *Engine
	queue  *bus.Queue

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewLive creates a live engine. Start must be called before events are consumed.
func NewLive(cfg LiveConfig, deps Deps) *LiveEngine {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	e := New(cfg.Config, deps)
	e.deferred = true
	return &LiveEngine{
		engine: e,
		queue:  bus.NewQueue(cfg.QueueCapacity),
	}
}

// Start runs the consumer until Stop is called or ctx is done.
func (l *LiveEngine) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.queue.Run(ctx, l.apply)
		}()
		logs.Info("live engine started")
	})
}

// Stop closes the intake, drains the events already queued and waits for the consumer.
func (l *LiveEngine) Stop() {
	l.stopOnce.Do(func() {
		l.queue.Close()
		l.wg.Wait()
		if l.cancel != nil {
			l.cancel()
		}
		logs.Info("live engine stopped")
	})
}

func (l *LiveEngine) apply(ev schema.Event) {
	l.mu.Lock()
	_ = l.engine.Process(ev)
	out := l.engine.takeOutbox()
	l.mu.Unlock()
	l.flush(out)
}

func (l *LiveEngine) flush(out []delivery) {
	for _, d := range out {
		l.engine.deliver(d)
	}
}

// Process enqueues ev, waiting for space until ctx is done.
func (l *LiveEngine) Process(ctx context.Context, ev schema.Event) error {
	err := l.queue.Publish(ctx, ev)
	if stderrors.Is(err, bus.ErrQueueClosed) {
		l.engine.metrics.IncQueueClosed()
	}
	return err
}

// TryProcess enqueues ev without waiting. It returns ErrQueueFull when the queue has no space.
func (l *LiveEngine) TryProcess(ev schema.Event) error {
	err := l.queue.TryPublish(ev)
	switch {
	case stderrors.Is(err, bus.ErrQueueFull):
		l.engine.metrics.IncQueueDrop()
	case stderrors.Is(err, bus.ErrQueueClosed):
		l.engine.metrics.IncQueueClosed()
	}
	return err
}

// Execute validates and records cmd under the engine lock, then calls the venue client without it.
func (l *LiveEngine) Execute(cmd schema.Command) error {
	l.mu.Lock()
	dispatch, err := l.engine.prepare(cmd)
	out := l.engine.takeOutbox()
	l.mu.Unlock()
	l.flush(out)

	if dispatch == nil {
		return err
	}
	if cerr := dispatch(); cerr != nil {
		l.mu.Lock()
		err = l.engine.clientFailed(cmd, cerr)
		out = l.engine.takeOutbox()
		l.mu.Unlock()
		l.flush(out)
	}
	return err
}

// RegisterClient binds client under its venue.
func (l *LiveEngine) RegisterClient(client ExecutionClient) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.RegisterClient(client)
}

// DeregisterClient removes the client bound to venue.
func (l *LiveEngine) DeregisterClient(venue model.Venue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.DeregisterClient(venue)
}

// RegisterStrategy binds s so events for its orders are routed back to it.
func (l *LiveEngine) RegisterStrategy(s Strategy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.RegisterStrategy(s)
}

// UpdateRisk replaces the risk engine when cfg carries a different version.
func (l *LiveEngine) UpdateRisk(cfg risk.Config) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.UpdateRisk(cfg)
}

// LoadState rebuilds the engine state from the database. Call it before Start.
func (l *LiveEngine) LoadState() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.LoadState()
}

// View runs fn with the engine locked. fn must not retain the entities it reads.
func (l *LiveEngine) View(fn func(e *Engine)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.engine)
}

// PositionSnapshot summarizes every position.
func (l *LiveEngine) PositionSnapshot() state.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.PositionSnapshot()
}

// Errors reports invariant violations and persistence failures.
func (l *LiveEngine) Errors() <-chan error { return l.engine.Errors() }

// Pending returns the number of queued events.
func (l *LiveEngine) Pending() int { return l.queue.Len() }
