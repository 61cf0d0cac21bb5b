package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time for event timestamps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Live reads the wall clock in UTC.
type Live struct{}

func (Live) Now() time.Time                         { return time.Now().UTC() }
func (Live) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Test is a settable clock for deterministic tests and simulation. Time only moves when told to.
type Test struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

// NewTest returns a clock frozen at start.
func NewTest(start time.Time) *Test {
	return &Test{now: start.UTC()}
}

func (c *Test) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After fires once the clock has been advanced by at least d.
func (c *Test) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	at := c.now.Add(d)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, waiter{at: at, ch: ch})
	return ch
}

// Set moves the clock to t. Moving backwards is allowed and fires nothing.
func (c *Test) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t.UTC()
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

// Advance moves the clock forward by d.
func (c *Test) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}
