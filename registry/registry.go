// Package registry implements the pending-producer registry: a map from key
// to an ordered FIFO queue of in-flight promises, with queues reclaimed as
// soon as they empty so the registry never retains memory per ever-used key.
package registry

import (
	"container/list"
	"sync"

	"github.com/flowcache/ccache/promise"
)

// Registry is a concurrent map of key to per-key promise queues.
type Registry[K comparable, V any] struct {
	mu     sync.Mutex
	queues map[K]*Queue[K, V]
}

// New returns an empty Registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{queues: make(map[K]*Queue[K, V])}
}

// AcquireQueue returns the queue for key, creating it if absent. Atomic with
// respect to other AcquireQueue/reclaim calls via the registry's own mutex;
// the returned Queue has its own independent mutex so operations on it never
// contend with AcquireQueue calls for other keys.
func (r *Registry[K, V]) AcquireQueue(key K) *Queue[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q, ok := r.queues[key]; ok {
		return q
	}
	q := &Queue[K, V]{
		list:  list.New(),
		owner: r,
		key:   key,
	}
	r.queues[key] = q
	return q
}

// Peek returns the oldest pending promise for key without removing it, or
// nil if the key has no queue or an empty one. Convenience wrapper so
// callers that only need to peek don't have to call AcquireQueue (which
// would otherwise materialize an empty queue entry for keys that never had
// a producer).
func (r *Registry[K, V]) Peek(key K) *promise.Promise[V] {
	r.mu.Lock()
	q, ok := r.queues[key]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return q.Peek()
}

// Keys returns a snapshot of keys that currently have at least one pending
// producer. Used by Clear to cancel every key's pending producers.
func (r *Registry[K, V]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]K, 0, len(r.queues))
	for k := range r.queues {
		keys = append(keys, k)
	}
	return keys
}

// reclaimIfEmpty removes key's queue entry once it has no pending promises,
// so a key that is never contended again leaves no trace in the registry.
func (r *Registry[K, V]) reclaimIfEmpty(key K, q *Queue[K, V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q.list.Len() == 0 && r.queues[key] == q {
		delete(r.queues, key)
	}
}

// Queue is a per-key FIFO of pending promises, finely locked independently
// of the Registry's own map mutex.
type Queue[K comparable, V any] struct {
	mu    sync.Mutex
	list  *list.List
	owner *Registry[K, V]
	key   K
}

// element pairs a promise with its position so Remove can find it in O(1)
// given the handle returned by Offer, matching container/list's own API
// rather than doing a linear scan.
type element[V any] struct {
	p *promise.Promise[V]
}

// Offer appends p to the tail of the queue in FIFO order and returns a
// handle usable with Remove.
func (q *Queue[K, V]) Offer(p *promise.Promise[V]) *list.Element {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.PushBack(&element[V]{p: p})
}

// Peek returns the oldest pending promise without removing it, or nil if
// the queue is empty: the first (oldest) pending promise in a key's queue
// is the one a reader waits on.
func (q *Queue[K, V]) Peek() *promise.Promise[V] {
	q.mu.Lock()
	defer q.mu.Unlock()
	if front := q.list.Front(); front != nil {
		//nolint:forcetypeassert // list only ever holds *element[V]
		return front.Value.(*element[V]).p
	}
	return nil
}

// PollAll drains the queue in FIFO order, in one atomic step, returning the
// promises it held. Used by Remove/Clear to settle every sibling at once.
//
// Each element is removed individually rather than via list.Init, so that
// container/list's own idempotent-remove guarantee (a second Remove on an
// already-removed element is a no-op) protects the producer's own deferred
// Remove call that always runs afterward. Init leaves the drained elements'
// internal list/next/prev links pointing at the old list, so a later Remove
// on one of them would otherwise corrupt whatever queue object has since
// taken their place for the same key.
func (q *Queue[K, V]) PollAll() []*promise.Promise[V] {
	q.mu.Lock()
	var drained []*promise.Promise[V]
	for e := q.list.Front(); e != nil; {
		next := e.Next()
		//nolint:forcetypeassert // list only ever holds *element[V]
		drained = append(drained, e.Value.(*element[V]).p)
		q.list.Remove(e)
		e = next
	}
	q.mu.Unlock()

	q.reclaim()
	return drained
}

// Remove removes handle from the queue if present; absence is not an error.
func (q *Queue[K, V]) Remove(handle *list.Element) {
	q.mu.Lock()
	q.list.Remove(handle)
	q.mu.Unlock()

	q.reclaim()
}

// Snapshot returns the current pending promises oldest-first without
// draining the queue. Used by the coordinator's overtake walk, which must
// inspect siblings without disturbing their position.
func (q *Queue[K, V]) Snapshot() []*promise.Promise[V] {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := make([]*promise.Promise[V], 0, q.list.Len())
	for e := q.list.Front(); e != nil; e = e.Next() {
		//nolint:forcetypeassert // list only ever holds *element[V]
		snap = append(snap, e.Value.(*element[V]).p)
	}
	return snap
}

// Len reports the number of pending promises currently queued.
func (q *Queue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len()
}

func (q *Queue[K, V]) reclaim() {
	q.mu.Lock()
	empty := q.list.Len() == 0
	q.mu.Unlock()
	if empty {
		q.owner.reclaimIfEmpty(q.key, q)
	}
}
