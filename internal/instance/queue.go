package instance

import (
	"sync"

	"github.com/roach88/hcore/internal/ir"
)

// actionQueue is a thread-safe, unbounded FIFO of wrapped actions.
//
// Workers finishing zome calls dispatch from their own goroutines while the
// Run loop dequeues, so enqueue never blocks. Sequence numbers are taken
// from the clock while the lock is held; two racing dispatches can never be
// dequeued in the opposite order of their seq.
type actionQueue struct {
	mu      sync.Mutex
	clock   *Clock
	actions []ir.ActionWrapper
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newActionQueue(clock *Clock) *actionQueue {
	return &actionQueue{
		clock:   clock,
		actions: make([]ir.ActionWrapper, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue stamps a with id and the next seq and appends it.
// Returns false if the queue is closed.
func (q *actionQueue) Enqueue(id string, a ir.Action) (ir.ActionWrapper, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ir.ActionWrapper{}, false
	}

	w := ir.ActionWrapper{ID: id, Seq: q.clock.Next(), Action: a}
	q.actions = append(q.actions, w)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return w, true
}

// TryDequeue removes the front action without blocking.
func (q *actionQueue) TryDequeue() (ir.ActionWrapper, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return ir.ActionWrapper{}, false
	}

	w := q.actions[0]
	q.actions[0] = ir.ActionWrapper{} // release the action for GC

	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}

	return w, true
}

// Wait returns a channel that fires when actions may be available. It is
// closed when the queue is closed.
func (q *actionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued actions.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Closed reports whether Close was called.
func (q *actionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further actions and wakes the Run loop. Queued actions are
// still delivered.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
