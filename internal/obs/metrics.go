package obs

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tianhm/nautilus-trader/internal/schema"
)

const maxEventKind = int(schema.EventAccountState)

// Metrics collects lightweight engine counters and latency stats. A nil *Metrics records nothing.
type Metrics struct {
	eventCounts [maxEventKind + 1]uint64
	commands    uint64
	violations  uint64
	clamps      uint64
	duplicates  uint64
	queueDrops  uint64
	queueClosed uint64
	errorDrops  uint64

	mu         sync.Mutex
	rejections map[string]uint64

	executeLatency LatencyStats
	processLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts    map[schema.EventKind]uint64
	Rejections     map[string]uint64
	Commands       uint64
	Violations     uint64
	Clamps         uint64
	Duplicates     uint64
	QueueDrops     uint64
	QueueClosed    uint64
	ErrorDrops     uint64
	ExecuteLatency LatencySnapshot
	ProcessLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{rejections: make(map[string]uint64)}
}

// ObserveEvent counts a processed event by kind.
func (m *Metrics) ObserveEvent(kind schema.EventKind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// IncCommand counts an executed command.
func (m *Metrics) IncCommand() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.commands, 1)
}

// IncRejection counts a refused command by its reason.
func (m *Metrics) IncRejection(reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.rejections == nil {
		m.rejections = make(map[string]uint64)
	}
	m.rejections[reason]++
	m.mu.Unlock()
}

// IncViolation counts an event that could not be applied.
func (m *Metrics) IncViolation() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.violations, 1)
}

// IncClamp counts a fill reduced to the order's leaves quantity.
func (m *Metrics) IncClamp() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.clamps, 1)
}

// IncDuplicate counts an event ignored as already applied.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.duplicates, 1)
}

// IncQueueDrop records an event refused by a full intake queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncErrorDrop records an error report dropped by a full error channel.
func (m *Metrics) IncErrorDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.errorDrops, 1)
}

// ObserveExecute measures command handling latency.
func (m *Metrics) ObserveExecute(d time.Duration) {
	if m == nil {
		return
	}
	m.executeLatency.Observe(d)
}

// ObserveProcess measures event handling latency.
func (m *Metrics) ObserveProcess(d time.Duration) {
	if m == nil {
		return
	}
	m.processLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventKind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventKind(i)] = v
		}
	}
	m.mu.Lock()
	rejections := make(map[string]uint64, len(m.rejections))
	for k, v := range m.rejections {
		rejections[k] = v
	}
	m.mu.Unlock()
	return Snapshot{
		EventCounts:    eventCounts,
		Rejections:     rejections,
		Commands:       atomic.LoadUint64(&m.commands),
		Violations:     atomic.LoadUint64(&m.violations),
		Clamps:         atomic.LoadUint64(&m.clamps),
		Duplicates:     atomic.LoadUint64(&m.duplicates),
		QueueDrops:     atomic.LoadUint64(&m.queueDrops),
		QueueClosed:    atomic.LoadUint64(&m.queueClosed),
		ErrorDrops:     atomic.LoadUint64(&m.errorDrops),
		ExecuteLatency: m.executeLatency.Snapshot(),
		ProcessLatency: m.processLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
