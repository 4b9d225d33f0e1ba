// Package entry wraps a cached value with the timestamps needed to evaluate
// an expiration.Policy: when it was created, and when it was last read
// successfully.
package entry

import (
	"time"

	"github.com/flowcache/ccache/expiration"
)

// Entry holds a value plus the bookkeeping an expiration.Policy needs.
type Entry[V any] struct {
	Value        V
	CreatedAt    time.Time
	LastAccessAt time.Time
	Policy       expiration.Policy
}

// New wraps value, stamping CreatedAt and LastAccessAt at now.
func New[V any](value V, policy expiration.Policy, now time.Time) *Entry[V] {
	return &Entry[V]{
		Value:        value,
		CreatedAt:    now,
		LastAccessAt: now,
		Policy:       policy,
	}
}

// IsExpired reports whether this entry has outlived its Policy's life
// window since creation, or its idle window since last access. An eternal
// policy never expires via this check.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	if life := e.Policy.Life(); life > 0 && now.Sub(e.CreatedAt) > life {
		return true
	}
	if idle := e.Policy.Idle(); idle > 0 && now.Sub(e.LastAccessAt) > idle {
		return true
	}
	return false
}

// Touch updates LastAccessAt. Only called on a successful, non-expired read,
// so that the idle window is refreshed atomically with respect to the read
// that extended it.
func (e *Entry[V]) Touch(now time.Time) {
	e.LastAccessAt = now
}

// ExpiresAt returns the earliest instant at which this entry expires by its
// lifetime bound, or the zero Time if unbounded. Used by store.Memory to
// rank entries for capacity-driven eviction.
func (e *Entry[V]) ExpiresAt() time.Time {
	if life := e.Policy.Life(); life > 0 {
		return e.CreatedAt.Add(life)
	}
	return time.Time{}
}
