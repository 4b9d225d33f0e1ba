// Package resilience composes retry and circuitbreaker around a
// compute.Producer. The coordinator itself stays free of retries and
// timeouts; a caller that needs them wraps its producer with these
// middlewares instead, built entirely from the retry and circuitbreaker
// packages the rest of the module already ships.
package resilience

import (
	"context"

	"github.com/flowcache/ccache/circuitbreaker"
	"github.com/flowcache/ccache/compute"
	"github.com/flowcache/ccache/retry"
)

// WithRetry wraps a producer so that a failed invocation is retried
// according to opts before the failure is handed back to the coordinator.
// A retried-and-still-failing producer fails exactly like an unretried one
// from compute's point of view — the core never sees the individual
// attempts, only the final outcome.
func WithRetry[V any](opts ...retry.Option) func(compute.Producer[V]) compute.Producer[V] {
	return func(producer compute.Producer[V]) compute.Producer[V] {
		return func(ctx context.Context) (V, error) {
			var result V
			err := retry.Do(ctx, func(ctx context.Context) error {
				v, err := producer(ctx)
				if err != nil {
					return err
				}
				result = v
				return nil
			}, opts...)
			return result, err
		}
	}
}

// WithCircuitBreaker wraps a producer so that, once cb trips open, calls
// fail fast with circuitbreaker.ErrCircuitOpen instead of invoking the
// underlying producer. That error flows through compute's ordinary
// producer-failure path like any other producer error: it is a checked
// failure, so Get's waiters see it wrapped in a cerrors.ProducerError.
func WithCircuitBreaker[V any](cb *circuitbreaker.CircuitBreaker) func(compute.Producer[V]) compute.Producer[V] {
	return func(producer compute.Producer[V]) compute.Producer[V] {
		return func(ctx context.Context) (V, error) {
			var result V
			err := cb.Execute(func() error {
				v, err := producer(ctx)
				if err != nil {
					return err
				}
				result = v
				return nil
			})
			return result, err
		}
	}
}

// Chain composes producer-wrapping middlewares left to right: Chain(p, a, b)
// returns b(a(p)), so a runs closest to the producer and b is the outermost
// layer a caller sees — matching the order options are listed in.
func Chain[V any](producer compute.Producer[V], middlewares ...func(compute.Producer[V]) compute.Producer[V]) compute.Producer[V] {
	for _, mw := range middlewares {
		producer = mw(producer)
	}
	return producer
}
