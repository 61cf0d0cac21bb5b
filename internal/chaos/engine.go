package chaos

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tianhm/nautilus-trader/internal/schema"
)

// Delivery is an event released by the chaos engine and the delay to hold it for.
type Delivery struct {
	Event schema.Event
	Delay time.Duration
}

// Config controls chaos injection behavior.
type Config struct {
	Seed          int64         `json:"seed"`
	DropRate      float64       `json:"dropRate"`
	DuplicateRate float64       `json:"duplicateRate"`
	ReorderWindow int           `json:"reorderWindow"`
	MaxDelay      time.Duration `json:"maxDelay"`
}

// Engine applies chaos rules to venue events. Reordering only swaps events of different orders, so
// the events of one client order id keep their relative order. It is not safe for concurrent use.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []Delivery
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("dropRate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return fmt.Errorf("duplicateRate must be between 0 and 1")
	}
	if c.ReorderWindow <= 0 {
		return fmt.Errorf("reorderWindow must be >= 1")
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("maxDelay must be >= 0")
	}
	return nil
}

// Process applies chaos to a single event and returns the deliveries it releases.
func (e *Engine) Process(ev schema.Event) []Delivery {
	if e == nil {
		return []Delivery{{Event: ev}}
	}
	if e.shouldDrop() {
		return nil
	}
	d := Delivery{Event: ev, Delay: e.delay()}
	if e.cfg.ReorderWindow <= 1 {
		return e.applyDuplicate(d)
	}
	e.pending = append(e.pending, d)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.applyDuplicate(e.take())
}

// Flush returns any buffered deliveries after processing completes.
func (e *Engine) Flush() []Delivery {
	if e == nil || len(e.pending) == 0 {
		return nil
	}
	out := make([]Delivery, 0, len(e.pending))
	for len(e.pending) > 0 {
		out = append(out, e.applyDuplicate(e.take())...)
	}
	return out
}

// take removes a random pending delivery that no earlier pending delivery of the same order precedes.
func (e *Engine) take() Delivery {
	candidates := make([]int, 0, len(e.pending))
	seen := make(map[string]struct{}, len(e.pending))
	for i, d := range e.pending {
		key := orderKey(d.Event)
		if key == "" {
			candidates = append(candidates, i)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, i)
	}
	idx := candidates[e.rng.Intn(len(candidates))]
	out := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return out
}

func orderKey(ev schema.Event) string {
	if oe, ok := ev.(schema.OrderEvent); ok {
		return string(oe.ClOrdID())
	}
	return ""
}

func (e *Engine) shouldDrop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) applyDuplicate(d Delivery) []Delivery {
	out := []Delivery{d}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, d)
	}
	return out
}

func (e *Engine) delay() time.Duration {
	if e.cfg.MaxDelay <= 0 {
		return 0
	}
	return time.Duration(e.rng.Int63n(e.cfg.MaxDelay.Nanoseconds() + 1))
}
