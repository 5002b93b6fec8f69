package syncq

import "sync"

// Queue is a closable FIFO queue for handing items between goroutines.
// Any number of producers can Push and any number of consumers can Get
// without external synchronization.
//
// Unlike a native channel it's unbounded, reports its depth and has
// close semantics that make shutdown deterministic: Close doesn't
// return until every consumer that was blocked in Get at the moment of
// closing has been woken and observed the closure. After Close returns
// it's safe to tear down whatever owns the queue.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond // signaled on Push and broadcast on Close
	drained  *sync.Cond // signaled when a woken waiter leaves Get after Close
	items    []T
	waiting  int
	closed   bool
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.notEmpty = sync.NewCond(&q.mu)
	q.drained = sync.NewCond(&q.mu)
	return q
}

// Push appends v and wakes one blocked consumer.
// Never blocks. If the queue is closed, v is silently dropped.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, v)
	q.notEmpty.Signal()
}

// Get blocks until an item is available or the queue is closed.
// Items already queued when Close is called are still delivered, so a
// consumer loop drains everything before seeing ok == false.
// Once the queue is closed and empty, Get returns the zero value and
// false immediately.
func (q *Queue[T]) Get() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.waiting++
		q.notEmpty.Wait()
		q.waiting--
		if q.closed {
			// close is waiting for us, tell it we're out
			q.drained.Signal()
		}
	}
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	var zero T
	v := q.items[0]
	// don't let the backing array pin popped items
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Close marks the queue closed and wakes every blocked consumer.
// It blocks until all consumers that were blocked in Get when Close was
// called have observed the closure. Calling Close again is a no-op.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	for q.waiting > 0 {
		q.drained.Wait()
	}
}

// Size returns the number of pending items, 0 once closed.
// Advisory only: not atomic with a subsequent Get or Push.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}
	return len(q.items)
}

// IsClosed reports whether Close was called. Advisory only.
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
