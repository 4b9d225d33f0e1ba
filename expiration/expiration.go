// Package expiration defines the immutable expiration policy attached to a
// cache entry: a hard lifetime from insertion, a maximum idle gap between
// successful reads, or both. A policy with both set to zero is eternal.
package expiration

import (
	"time"

	"github.com/flowcache/ccache/cerrors"
)

// Policy is an immutable life/idle expiration policy. The zero value is
// Eternal.
type Policy struct {
	life time.Duration
	idle time.Duration
}

// Eternal never expires by time (the Store may still evict under pressure).
var Eternal = Policy{}

// OfLife returns a policy that expires life after insertion.
func OfLife(life time.Duration) (Policy, error) {
	return build(life, 0)
}

// OfIdle returns a policy that expires idle after the last successful read.
func OfIdle(idle time.Duration) (Policy, error) {
	return build(0, idle)
}

// OfLifeAndIdle returns a policy bounded by both a lifetime and an idle gap.
// The entry expires when either bound is exceeded.
func OfLifeAndIdle(life, idle time.Duration) (Policy, error) {
	return build(life, idle)
}

func build(life, idle time.Duration) (Policy, error) {
	if life < 0 {
		return Policy{}, cerrors.InvalidArgument("life must be >= 0, got %s", life)
	}
	if idle < 0 {
		return Policy{}, cerrors.InvalidArgument("idle must be >= 0, got %s", idle)
	}
	return Policy{life: life, idle: idle}, nil
}

// IsEternal reports whether both life and idle are zero.
func (p Policy) IsEternal() bool {
	return p.life == 0 && p.idle == 0
}

// Life returns the configured lifetime bound, 0 if unbounded.
func (p Policy) Life() time.Duration {
	return p.life
}

// Idle returns the configured idle bound, 0 if unbounded.
func (p Policy) Idle() time.Duration {
	return p.idle
}

// LifeIn converts the lifetime bound to the given unit, rounding per
// time.Duration's native conversion rules. Used to render a Policy as an
// (amount, unit) pair for wire formats that don't carry time.Duration
// natively.
func (p Policy) LifeIn(unit time.Duration) int64 {
	if unit <= 0 {
		return int64(p.life)
	}
	return int64(p.life / unit)
}

// IdleIn converts the idle bound to the given unit, see LifeIn.
func (p Policy) IdleIn(unit time.Duration) int64 {
	if unit <= 0 {
		return int64(p.idle)
	}
	return int64(p.idle / unit)
}
