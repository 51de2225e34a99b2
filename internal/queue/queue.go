// Package queue holds snapshot histories and write batches between the
// reader and a storage backend.
package queue

import (
	"sync"
)

// Queue is a FIFO safe for concurrent use. A bounded queue keeps the newest
// max items and counts what it discards.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	max     int
	dropped uint64
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// NewBounded creates a queue holding at most max items. max <= 0 means unbounded.
func NewBounded[T any](max int) *Queue[T] {
	return &Queue[T]{max: max}
}

// Push appends items, evicting the oldest when over the bound.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	q.trim(len(q.items) - q.max)
}

// Requeue puts a batch that failed to write back in front of anything pushed
// since it was drained. When over the bound the oldest items still go first.
func (q *Queue[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
	q.trim(len(q.items) - q.max)
}

// trim drops the first n items. Caller holds mu.
func (q *Queue[T]) trim(n int) {
	if q.max <= 0 || n <= 0 {
		return
	}
	q.dropped += uint64(n)
	q.items = append(q.items[:0], q.items[n:]...)
}

// Drain returns every item and leaves the queue empty.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Snapshot returns a copy of the items, oldest first.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items the bound has evicted.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
