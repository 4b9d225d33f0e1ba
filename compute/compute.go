// Package compute implements the Computing Coordinator: the layer that
// guarantees request coalescing over a store.Store. Concurrent callers for a
// missing key block on one in-flight producer instead of racing to compute
// duplicate values, with well-defined outcomes when producers overlap, when
// a reader arrives mid-computation, and when a remove or clear intervenes.
package compute

import (
	"context"
	"errors"

	"github.com/flowcache/ccache/cerrors"
	"github.com/flowcache/ccache/expiration"
	"github.com/flowcache/ccache/logger"
	"github.com/flowcache/ccache/metrics"
	"github.com/flowcache/ccache/promise"
	"github.com/flowcache/ccache/registry"
	"github.com/flowcache/ccache/store"
)

// Producer computes the value to cache under a key. Invoked synchronously on
// the calling goroutine — the coordinator never schedules it elsewhere.
type Producer[V any] func(ctx context.Context) (V, error)

// Cache is the Computing Coordinator layered over a store.Store.
type Cache[K comparable, V any] struct {
	store    store.Store[K, V]
	registry *registry.Registry[K, V]
	log      logger.ILogger
	metrics  *metrics.CacheMetrics
}

// Option configures a Cache at construction.
type Option[K comparable, V any] func(*Cache[K, V])

// WithLogger overrides the default logger with a per-component ILogger
// rather than relying on a package-level global.
func WithLogger[K comparable, V any](log logger.ILogger) Option[K, V] {
	return func(c *Cache[K, V]) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches Prometheus instrumentation. Purely observational:
// metrics calls happen after a promise transition is already committed and
// never influence the coordinator's decisions.
func WithMetrics[K comparable, V any](m *metrics.CacheMetrics) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.metrics = m
	}
}

// New builds a Cache over the given Store.
func New[K comparable, V any](s store.Store[K, V], opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		store:    s,
		registry: registry.New[K, V](),
		log:      logger.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put is shorthand for ComputeAndPut with a producer that returns value
// unconditionally, under the given expiration. Preserves the
// faster-overtakes-slower rule: a Put racing a still-running producer for
// the same key wins over that producer if Put's own (trivially fast)
// promise settles first.
func (c *Cache[K, V]) Put(ctx context.Context, key K, value V, policy expiration.Policy) (V, error) {
	return c.ComputeAndPut(ctx, key, func(context.Context) (V, error) { return value, nil }, policy)
}

// PutEternal is Put with an eternal expiration.
func (c *Cache[K, V]) PutEternal(ctx context.Context, key K, value V) (V, error) {
	return c.Put(ctx, key, value, expiration.Eternal)
}

// ComputeAndPutEternal is ComputeAndPut with an eternal expiration.
func (c *Cache[K, V]) ComputeAndPutEternal(ctx context.Context, key K, producer Producer[V]) (V, error) {
	return c.ComputeAndPut(ctx, key, producer, expiration.Eternal)
}

// ComputeAndPut runs producer for key, coalescing it with any concurrent
// producers for the same key.
//
// The algorithm: register a promise for this call before invoking the
// producer, so concurrent readers have something to wait on rather than
// starting a duplicate computation; invoke the producer synchronously on
// the calling goroutine; then atomically try to settle the registered
// promise with the result. Losing that race means the promise was already
// cancelled by a concurrent remove/clear or settled by a faster sibling, in
// which case the Store must not be written. The promise is always removed
// from its queue afterward, whether or not this call won.
func (c *Cache[K, V]) ComputeAndPut(ctx context.Context, key K, producer Producer[V], policy expiration.Policy) (V, error) {
	var zero V
	if producer == nil {
		return zero, cerrors.InvalidArgument("producer must not be nil")
	}

	q := c.registry.AcquireQueue(key)
	p := promise.New[V]()
	handle := q.Offer(p)
	defer func() {
		q.Remove(handle)
	}()

	v, err := producer(ctx)
	if err != nil {
		return c.failProducer(key, p, err)
	}

	// TrySet atomically tells us whether we won the race to settle p
	// ourselves; if not, p was already cancelled by a remove/clear or
	// overtaken by a faster sibling, and we must not write the Store.
	if p.TrySet(v) {
		c.overtakeOlderSiblings(q, p, v)
		c.store.Put(key, v, policy)
	} else {
		c.recordCoalesced()
	}

	result, _, cancelled := p.Outcome()
	if cancelled {
		// A remove/clear raced in: return the locally computed value to
		// this caller only, never write it to the Store.
		return v, nil
	}
	return result, nil
}

// ComputeAndPutIfAbsent returns the existing value via Get; only delegates
// to ComputeAndPut if absent.
func (c *Cache[K, V]) ComputeAndPutIfAbsent(ctx context.Context, key K, producer Producer[V], policy expiration.Policy) (V, error) {
	if v, err, found := c.tryGet(ctx, key); found {
		return v, err
	}
	return c.ComputeAndPut(ctx, key, producer, policy)
}

// Get returns key's value, preferring a precomputed Store value over
// blocking on an in-flight recomputation for the same key.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	v, err, _ := c.tryGet(ctx, key)
	return v, err
}

// tryGet is Get's algorithm, plus a found flag ComputeAndPutIfAbsent needs to
// decide whether to delegate to ComputeAndPut — kept separate from Get
// because a Go zero value is not a reliable "absent" sentinel.
func (c *Cache[K, V]) tryGet(ctx context.Context, key K) (V, error, bool) {
	var zero V

	if v, ok := c.store.Get(key); ok {
		return v, nil, true
	}

	p := c.registry.Peek(key)
	if p == nil {
		return zero, nil, false
	}

	c.recordCoalesced()

	v, err := p.Await(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Interruption is swallowed to a clean nil, never propagated,
			// and treated as if nothing was found.
			return zero, nil, false
		}
		return zero, cerrors.DeliverToReader(err), true
	}
	return v, nil, true
}

// Remove cancels every pending producer for key so in-flight producers skip
// the Store write, then removes the Store's own entry for key, if any.
func (c *Cache[K, V]) Remove(_ context.Context, key K) (V, bool) {
	c.cancelPending(key)
	return c.store.Remove(key)
}

// RemoveExpected atomically removes key iff its current value equals
// expected under equal. Absence or mismatch returns false. When the
// underlying Store implements store.AtomicStore the compare and the removal
// happen as one locked step; otherwise this falls back to a Get-then-Remove
// pair that a concurrent writer could interleave with, which is the best a
// plain Store without compare-and-swap support allows.
func (c *Cache[K, V]) RemoveExpected(ctx context.Context, key K, expected V, equal func(a, b V) bool) bool {
	if atomic, ok := c.store.(store.AtomicStore[K, V]); ok {
		_, removed := atomic.CompareAndRemove(key, expected, equal)
		if removed {
			c.cancelPending(key)
		}
		return removed
	}

	current, ok := c.store.Get(key)
	if !ok || !equal(current, expected) {
		return false
	}
	_, removed := c.Remove(ctx, key)
	return removed
}

// Replace puts newValue iff key is currently present, returning the prior
// value. Does not coalesce with in-flight producers — this is a direct
// Store-level replace, not a computation.
func (c *Cache[K, V]) Replace(_ context.Context, key K, newValue V, policy expiration.Policy) (V, bool) {
	prior, ok := c.store.Get(key)
	if !ok {
		return prior, false
	}
	c.store.Put(key, newValue, policy)
	return prior, true
}

// ReplaceExpected puts newValue iff key is present and its current value
// equals oldValue under equal, atomically when the Store supports it (see
// RemoveExpected).
func (c *Cache[K, V]) ReplaceExpected(_ context.Context, key K, oldValue, newValue V, policy expiration.Policy, equal func(a, b V) bool) (V, bool) {
	if atomic, ok := c.store.(store.AtomicStore[K, V]); ok {
		return atomic.CompareAndReplace(key, oldValue, newValue, policy, equal)
	}

	var zero V
	current, ok := c.store.Get(key)
	if !ok || !equal(current, oldValue) {
		return zero, false
	}
	c.store.Put(key, newValue, policy)
	return current, true
}

// Clear cancels every pending producer for every key currently registered,
// then clears the Store. Ordering matters: cancelling first means no reader
// can observe a value published by a producer that is about to discover it
// has been cleared out from under it.
func (c *Cache[K, V]) Clear(_ context.Context) {
	for _, key := range c.registry.Keys() {
		c.cancelPending(key)
	}
	c.store.Clear()
}

// RemoveIf iterates the current key set, removing every key for which
// predicate returns true. Returns whether any key matched.
func (c *Cache[K, V]) RemoveIf(ctx context.Context, predicate func(key K, value V) bool) bool {
	matched := false
	for _, key := range c.store.Keys() {
		value, ok := c.store.Get(key)
		if !ok {
			continue
		}
		if predicate(key, value) {
			c.Remove(ctx, key)
			matched = true
		}
	}
	return matched
}

// failProducer settles p with err and returns the wrapped execution error
// for the computing caller. The Store is never written on a producer
// failure.
func (c *Cache[K, V]) failProducer(key K, p *promise.Promise[V], err error) (V, error) {
	var zero V
	p.SetError(err)
	if c.log != nil {
		c.log.Errorf("ccache: producer failed for key %v: %v", key, err)
	}
	return zero, cerrors.Wrap(err)
}

// overtakeOlderSiblings publishes a successful producer's value to every
// still-pending older sibling in the same key's queue, oldest first,
// stopping once it reaches its own promise. Already-settled siblings are
// skipped, never overwritten — single assignment is still enforced by
// TrySet itself, this is a pure optimization to avoid calling TrySet on
// settled promises and recording spurious overtakes for them.
func (c *Cache[K, V]) overtakeOlderSiblings(q *registry.Queue[K, V], self *promise.Promise[V], value V) {
	for _, sibling := range q.Snapshot() {
		if sibling == self {
			return
		}
		if sibling.TrySet(value) {
			c.recordOvertaken()
		}
	}
}

// cancelPending drains key's pending-producer queue and cancels every
// promise still pending. Those producers still compute their value but
// will discover, when they try to settle their own promise in
// ComputeAndPut, that it is already done, so they skip the Store write.
func (c *Cache[K, V]) cancelPending(key K) {
	q := c.registry.AcquireQueue(key)
	for _, p := range q.PollAll() {
		p.Cancel()
	}
}

func (c *Cache[K, V]) recordCoalesced() {
	if c.metrics != nil {
		c.metrics.RecordCoalesced()
	}
}

func (c *Cache[K, V]) recordOvertaken() {
	if c.metrics != nil {
		c.metrics.RecordOvertaken()
	}
}

