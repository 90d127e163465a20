package bridge

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Push once the queue has been closed.
var ErrQueueClosed = errors.New("queue closed")

// Queue is a thread-safe FIFO crossing the background/synchronous boundary.
//
// Producers are background goroutines; the consumer is the poll loop, which
// only ever uses the non-blocking side (TryDequeue, Drain, Closed).
//
// A capacity of 0 means unbounded. A bounded queue applies backpressure:
// Push blocks the producer until space frees up. Producers are never the
// poll loop, so blocking them is acceptable.
//
// The queue uses channels for signaling so waiters can select on a context
// alongside it (same pattern as the engine run loop it grew out of).
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
	signal   chan struct{} // item availability (buffered, size 1)
	space    chan struct{} // room freed in a bounded queue (buffered, size 1)
}

// NewQueue creates an unbounded queue.
func NewQueue[T any]() *Queue[T] {
	return NewBoundedQueue[T](0)
}

// NewBoundedQueue creates a queue holding at most capacity items.
// capacity <= 0 means unbounded.
func NewBoundedQueue[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		items:    make([]T, 0, 16),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
	}
}

// Enqueue appends v without blocking.
// Returns false if the queue is closed, or full when bounded.
func (q *Queue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.full() {
		return false
	}
	q.appendLocked(v)
	return true
}

// Push appends v, blocking while a bounded queue is full.
// Returns ErrQueueClosed if the queue is (or becomes) closed, or ctx.Err().
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if !q.full() {
			q.appendLocked(v)
			q.mu.Unlock()
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.space:
		}
	}
}

func (q *Queue[T]) full() bool {
	return q.capacity > 0 && len(q.items) >= q.capacity
}

func (q *Queue[T]) appendLocked(v T) {
	q.items = append(q.items, v)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryDequeue removes and returns the front item without blocking.
// Returns false if the queue is empty.
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	v := q.items[0]
	q.items[0] = zero // release references held by the backing array
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	q.notifySpace()
	return v, true
}

// Drain removes and returns every item currently queued, in FIFO order.
// Returns nil when the queue is empty. Never blocks.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	out := make([]T, len(q.items))
	copy(out, q.items)

	clear(q.items)
	q.items = q.items[:0]

	q.notifySpace()
	return out
}

func (q *Queue[T]) notifySpace() {
	// space is closed with the queue; sending on it would panic.
	if q.capacity == 0 || q.closed {
		return
	}
	select {
	case q.space <- struct{}{}:
	default:
	}
}

// Wait returns a channel that signals when items may be available.
// The channel is closed when the queue is closed.
func (q *Queue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue as finished. Items already queued stay available to
// the consumer; blocked producers and waiters are released.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	// Drop a pending token so receivers observe the close, not a stale signal.
	select {
	case <-q.signal:
	default:
	}
	close(q.signal)
	close(q.space)
}

// Closed reports whether the producer side is finished AND every item has
// been consumed. This is what distinguishes a stopped producer from an idle one.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}
