package store

import (
	"container/heap"
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/flowcache/ccache/entry"
	"github.com/flowcache/ccache/expiration"
	"github.com/flowcache/ccache/workerpool"
)

// Memory is a sharded, in-process Store. Each shard is an independent
// map guarded by its own RWMutex, so keys in different shards never
// contend; keys are distributed across shards by a hash function, with a
// caller-supplied override available via WithHasher.
type Memory[K comparable, V any] struct {
	shards       []*shard[K, V]
	hashFn       func(K) uint64
	onEvict      func()
	onSweepPanic func(shardIdx any, recovered any)
	janitor      *time.Ticker
	pool         *workerpool.Pool[int]
	poolDone     context.CancelFunc
	stopOnce     sync.Once
}

// Option configures a Memory store.
type Option[K comparable, V any] func(*config[K, V])

type config[K comparable, V any] struct {
	shardCount   int
	capacity     int
	hashFn       func(K) uint64
	onEvict      func()
	onSweepPanic func(shardIdx any, recovered any)
	sweepEvery   time.Duration
	sweepWorkers int
}

// WithShards sets the number of shards. Default 1 (no sharding).
func WithShards[K comparable, V any](n int) Option[K, V] {
	return func(cfg *config[K, V]) {
		if n > 0 {
			cfg.shardCount = n
		}
	}
}

// WithCapacity bounds each shard's entry count. When a shard is full, the
// entry with the soonest life expiry is evicted to make room. Default 0
// (unbounded).
func WithCapacity[K comparable, V any](perShard int) Option[K, V] {
	return func(cfg *config[K, V]) {
		cfg.capacity = perShard
	}
}

// WithHasher overrides the default key hashing used to pick a shard.
func WithHasher[K comparable, V any](fn func(K) uint64) Option[K, V] {
	return func(cfg *config[K, V]) {
		cfg.hashFn = fn
	}
}

// WithOnEvict registers a callback invoked once per entry removed by the
// capacity evictor or the background sweep — evictions happen internally
// and can't be auto-detected by an external instrumentation wrapper, the
// same reasoning behind metrics.CacheMetrics.RecordEviction in the pack.
func WithOnEvict[K comparable, V any](fn func()) Option[K, V] {
	return func(cfg *config[K, V]) {
		cfg.onEvict = fn
	}
}

// WithSweepInterval enables a background janitor that purges expired
// entries every interval, dispatching one sweep task per shard through a
// workerpool so shards sweep concurrently. Default 0 (disabled; expiration
// is then purely lazy, checked on Get).
func WithSweepInterval[K comparable, V any](interval time.Duration, workers int) Option[K, V] {
	return func(cfg *config[K, V]) {
		cfg.sweepEvery = interval
		cfg.sweepWorkers = workers
	}
}

// WithOnSweepPanic registers a callback invoked if a sweep task panics for a
// shard, so the caller can log it; the janitor's other shards keep sweeping
// on schedule regardless.
func WithOnSweepPanic[K comparable, V any](fn func(shardIdx any, recovered any)) Option[K, V] {
	return func(cfg *config[K, V]) {
		cfg.onSweepPanic = fn
	}
}

// NewMemory builds a Memory store.
func NewMemory[K comparable, V any](opts ...Option[K, V]) *Memory[K, V] {
	cfg := &config[K, V]{
		shardCount:   1,
		hashFn:       defaultHash[K],
		sweepWorkers: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Memory[K, V]{
		shards:       make([]*shard[K, V], cfg.shardCount),
		hashFn:       cfg.hashFn,
		onEvict:      cfg.onEvict,
		onSweepPanic: cfg.onSweepPanic,
	}
	for i := range m.shards {
		m.shards[i] = newShard[K, V](cfg.capacity)
	}

	if cfg.sweepEvery > 0 {
		m.startJanitor(cfg.sweepEvery, cfg.sweepWorkers)
	}

	return m
}

func defaultHash[K comparable](key K) uint64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%v", key)
	return h.Sum64()
}

func (m *Memory[K, V]) shardFor(key K) *shard[K, V] {
	if len(m.shards) == 1 {
		return m.shards[0]
	}
	idx := m.hashFn(key) % uint64(len(m.shards))
	return m.shards[idx]
}

// Put implements Store.
func (m *Memory[K, V]) Put(key K, value V, policy expiration.Policy) {
	m.shardFor(key).put(key, value, policy, m.onEvict)
}

// Get implements Store.
func (m *Memory[K, V]) Get(key K) (V, bool) {
	return m.shardFor(key).get(key)
}

// Remove implements Store.
func (m *Memory[K, V]) Remove(key K) (V, bool) {
	return m.shardFor(key).remove(key)
}

// CompareAndRemove implements AtomicStore.
func (m *Memory[K, V]) CompareAndRemove(key K, expected V, equal func(a, b V) bool) (V, bool) {
	return m.shardFor(key).compareAndRemove(key, expected, equal)
}

// CompareAndReplace implements AtomicStore.
func (m *Memory[K, V]) CompareAndReplace(key K, oldValue, newValue V, policy expiration.Policy, equal func(a, b V) bool) (V, bool) {
	return m.shardFor(key).compareAndReplace(key, oldValue, newValue, policy, equal)
}

// Describe returns key's current value and expiration policy without
// refreshing its idle window, for admin-surface introspection.
func (m *Memory[K, V]) Describe(key K) (V, expiration.Policy, bool) {
	return m.shardFor(key).describe(key)
}

// Clear implements Store.
func (m *Memory[K, V]) Clear() {
	for _, s := range m.shards {
		s.clear()
	}
}

// Contains implements Store.
func (m *Memory[K, V]) Contains(key K) bool {
	return m.shardFor(key).contains(key)
}

// Keys implements Store.
func (m *Memory[K, V]) Keys() []K {
	var keys []K
	for _, s := range m.shards {
		keys = append(keys, s.keys()...)
	}
	return keys
}

// Len returns the total number of entries across all shards, including any
// not yet reclaimed by a lazy read or the janitor.
func (m *Memory[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		total += s.len()
	}
	return total
}

// startJanitor launches the background sweep: a ticker submits one task per
// shard index to a bounded workerpool each interval, so shards sweep
// concurrently instead of one goroutine scanning a single flat map.
func (m *Memory[K, V]) startJanitor(interval time.Duration, workers int) {
	ctx, cancel := context.WithCancel(context.Background())
	m.poolDone = cancel
	m.pool = workerpool.New(ctx, func(_ context.Context, shardIdx int) {
		m.shards[shardIdx].sweep(m.onEvict)
	},
		workerpool.WithWorkers[int](workers),
		workerpool.WithOnPanic[int](func(task any, recovered any) {
			// A sweep task panicking (e.g. a custom onEvict callback with a
			// bug) must not take down sweeping for every other shard.
			if m.onSweepPanic != nil {
				m.onSweepPanic(task, recovered)
			}
		}),
	)

	m.janitor = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.janitor.C:
				for i := range m.shards {
					m.pool.Submit(i)
				}
			}
		}
	}()
}

// Close stops the background janitor, if one was started. Safe to call
// multiple times, and safe to call on a Memory store that never started one.
func (m *Memory[K, V]) Close() {
	m.stopOnce.Do(func() {
		if m.janitor != nil {
			m.janitor.Stop()
		}
		if m.poolDone != nil {
			m.poolDone()
		}
		if m.pool != nil {
			m.pool.Shutdown()
		}
	})
}
