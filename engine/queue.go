package engine

import (
	"context"
	"time"
)

// DefaultQueueDepth bounds a work queue when no depth is configured. Deep
// enough that discovery rarely blocks, small enough to cap memory on very
// large batches.
const DefaultQueueDepth = 1000

// Queue is a bounded multi-producer multi-consumer work queue with
// blocking-with-timeout pop semantics. No ordering is guaranteed across
// concurrent consumers.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a queue holding at most depth items. A depth <= 0 falls
// back to DefaultQueueDepth.
func NewQueue[T any](depth int) *Queue[T] {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Queue[T]{ch: make(chan T, depth)}
}

// Put blocks until the item is enqueued or the context is cancelled.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- v:
		return nil
	}
}

// Pop blocks up to timeout for an item. The second return value is false if
// the queue stayed empty for the whole window; this is the only stop signal
// workers get.
func (q *Queue[T]) Pop(timeout time.Duration) (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-q.ch:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len returns the number of items currently queued.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
