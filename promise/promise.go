// Package promise implements a single-assignment cell: a value that starts
// pending and settles exactly once to a value, an error, or a cancellation,
// awaitable by any number of concurrent waiters.
package promise

import (
	"context"
	"sync"
)

// outcome tags which terminal state a settled Promise holds. A zero Go value
// is a legitimate producer result (e.g. 0, "", a nil pointer), so cancellation
// must be tracked as its own tag rather than inferred from comparing the
// stored value to the zero value.
type outcome int

const (
	outcomeValue outcome = iota
	outcomeError
	outcomeCancelled
)

// Promise is a single-assignment cell holding a value, an error, or a
// cancellation.
type Promise[V any] struct {
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	value   V
	err     error
	outcome outcome
}

// New returns a pending Promise.
func New[V any]() *Promise[V] {
	return &Promise[V]{done: make(chan struct{})}
}

// Set transitions the promise to value(v). Only the first call of
// Set/SetError/Cancel on a given Promise has effect.
func (p *Promise[V]) Set(v V) {
	p.TrySet(v)
}

// TrySet is Set, reporting whether this call performed the transition. The
// coordinator uses it instead of a Done check followed by Set: checking
// Done and then calling Set is two steps with a window in between where a
// faster sibling or a cancellation can settle the promise first, which would
// make Set silently a no-op while the caller still believed it had won the
// race and proceeded to write the Store.
func (p *Promise[V]) TrySet(v V) bool {
	won := false
	p.once.Do(func() {
		p.mu.Lock()
		p.value = v
		p.outcome = outcomeValue
		p.mu.Unlock()
		close(p.done)
		won = true
	})
	return won
}

// SetError transitions the promise to error(e).
func (p *Promise[V]) SetError(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.outcome = outcomeError
		p.mu.Unlock()
		close(p.done)
	})
}

// Cancel transitions the promise to a cancelled terminal state on behalf of
// a concurrent remove/clear. Readers awaiting via Await observe it exactly
// like a legitimate zero value; Outcome lets the coordinator itself tell the
// two apart where it must.
func (p *Promise[V]) Cancel() {
	p.once.Do(func() {
		p.mu.Lock()
		p.outcome = outcomeCancelled
		p.mu.Unlock()
		close(p.done)
	})
}

// Done reports whether the promise has been settled, without blocking.
// The coordinator's overtake walk does not use it; it relies on TrySet's
// win/lose result instead.
func (p *Promise[V]) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Await blocks until the promise settles or ctx is cancelled.
//
// On a settled value (including a cancellation, which Await cannot
// distinguish from a legitimate zero value — use Outcome for that), it
// returns (value, nil). On a settled error, it returns (zero, err) —
// callers decide how to render that error further (cerrors.DeliverToReader
// for Get, direct wrap for ComputeAndPut).
//
// If ctx is cancelled first, Await returns (zero, ctx.Err()) without ever
// observing the promise's eventual outcome; callers handling interruption
// (Get) treat this as a clean nil, never an error.
func (p *Promise[V]) Await(ctx context.Context) (V, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Outcome returns the settled value/error plus whether this Promise was
// cancelled rather than genuinely resolved to a value. Must only be called
// once Done reports true; the coordinator uses it (never a reader) to tell
// "remove/clear raced in" apart from "the producer legitimately returned the
// zero value".
func (p *Promise[V]) Outcome() (value V, err error, cancelled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err, p.outcome == outcomeCancelled
}
