package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/tianhm/nautilus-trader/internal/schema"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue is a bounded multi-producer, single-consumer event queue.
// Events are delivered in the order producers managed to enqueue them.
type Queue struct {
	ch chan schema.Event

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	done   chan struct{} // closed first, unblocks waiting producers
	sealed chan struct{} // closed once no producer can enqueue any more
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:     make(chan schema.Event, capacity),
		done:   make(chan struct{}),
		sealed: make(chan struct{}),
	}
}

// Publish enqueues e, waiting for space until ctx is done or the queue closes.
func (q *Queue) Publish(ctx context.Context, e schema.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e schema.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new events. Events already enqueued are still delivered by Run.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.sealed)
	})
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Run consumes events until the context is done, or until the queue is closed and drained.
func (q *Queue) Run(ctx context.Context, handler func(schema.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-q.ch:
			handler(e)
		case <-q.sealed:
			for {
				select {
				case e := <-q.ch:
					handler(e)
				default:
					return
				}
			}
		}
	}
}
