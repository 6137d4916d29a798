// Package spsc implements a fixed-capacity, power-of-two, lock-free
// single-producer/single-consumer ring buffer with an optional blocking
// consumer path.
//
// Producer and consumer indices live on separate cache lines to avoid false
// sharing. Exactly one goroutine may call TryPush and exactly one goroutine
// may call TryPop/BlockingPop for the lifetime of a queue; this contract is
// enforced by construction, not at runtime.
package spsc

import (
	"sync"
	"sync/atomic"
)

const cacheLine = 64

// Queue is a bounded SPSC ring. head == tail means empty and
// (head+1)&mask == tail means full, so a queue of capacity N holds at most
// N-1 elements.
type Queue[T any] struct {
	_    [cacheLine]byte
	head atomic.Uint64 // next write index, producer-owned
	_    [cacheLine - 8]byte
	tail atomic.Uint64 // next read index, consumer-owned
	_    [cacheLine - 8]byte

	mask uint64
	buf  []T

	// Slow-path machinery for BlockingPop. The producer takes the mutex
	// only while a consumer is parked, tracked by waiters, so the lock-free
	// fast path stays untouched when no one is blocked.
	mu       sync.Mutex
	notEmpty *sync.Cond
	waiters  atomic.Int32
	closed   atomic.Bool
}

// New allocates a queue whose capacity must be a power of two; it panics
// otherwise so the bit-masked wrap-around stays valid.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("spsc: capacity must be >0 and a power of two")
	}
	q := &Queue[T]{
		mask: uint64(capacity - 1),
		buf:  make([]T, capacity),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Cap returns the slot count; the queue holds at most Cap()-1 elements.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// TryPush enqueues v, returning false when the queue is full. Producer only.
func (q *Queue[T]) TryPush(v T) bool {
	h := q.head.Load()
	next := (h + 1) & q.mask
	if next == q.tail.Load() {
		return false
	}
	q.buf[h] = v
	q.head.Store(next)

	if q.waiters.Load() > 0 {
		q.mu.Lock()
		q.notEmpty.Signal()
		q.mu.Unlock()
	}
	return true
}

// TryPop dequeues one element, returning ok == false when empty. Consumer
// only. Ownership of the element transfers to the caller; the vacated slot is
// zeroed so the queue does not pin the payload.
func (q *Queue[T]) TryPop() (T, bool) {
	var zero T
	t := q.tail.Load()
	if t == q.head.Load() {
		return zero, false
	}
	v := q.buf[t]
	q.buf[t] = zero
	q.tail.Store((t + 1) & q.mask)
	return v, true
}

// BlockingPop behaves like TryPop but parks the calling goroutine until the
// producer pushes or Close is called. It must only be used by a queue with
// exactly one designated consumer. After Close, remaining elements are still
// drained; once empty it returns ok == false.
func (q *Queue[T]) BlockingPop() (T, bool) {
	if v, ok := q.TryPop(); ok {
		return v, true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	// Raise the waiter count before re-checking emptiness: a producer that
	// pushes concurrently either observes the count and signals under the
	// mutex, or pushed early enough for the TryPop below to see the element.
	q.waiters.Add(1)
	defer q.waiters.Add(-1)
	for {
		if v, ok := q.TryPop(); ok {
			return v, true
		}
		if q.closed.Load() {
			var zero T
			return zero, false
		}
		q.notEmpty.Wait()
	}
}

// Close wakes any parked consumer. Further pushes are still accepted (the
// producer side does not check the flag on its fast path); BlockingPop
// returns ok == false once the queue is drained.
func (q *Queue[T]) Close() {
	q.closed.Store(true)
	q.mu.Lock()
	q.notEmpty.Broadcast()
	q.mu.Unlock()
}

// Len reports a snapshot of the element count. Advisory only: the value may
// be stale as soon as it is returned.
func (q *Queue[T]) Len() int {
	h := q.head.Load()
	t := q.tail.Load()
	return int((h - t) & q.mask)
}
