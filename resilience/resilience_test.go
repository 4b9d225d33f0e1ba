package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowcache/ccache/circuitbreaker"
	"github.com/flowcache/ccache/compute"
	"github.com/flowcache/ccache/resilience"
	"github.com/flowcache/ccache/retry"
)

var errUpstream = errors.New("upstream failure")

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	producer := compute.Producer[string](func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errUpstream
		}
		return "ok", nil
	})

	wrapped := resilience.WithRetry[string](
		retry.WithMaxAttempts(5),
		retry.WithDelay(time.Millisecond),
		retry.WithJitter(false),
	)(producer)

	v, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "ok" {
		t.Fatalf("expected ok, got %q", v)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_ExhaustsAndReturnsLastError(t *testing.T) {
	t.Parallel()

	calls := 0
	producer := compute.Producer[int](func(_ context.Context) (int, error) {
		calls++
		return 0, errUpstream
	})

	wrapped := resilience.WithRetry[int](
		retry.WithMaxAttempts(3),
		retry.WithDelay(time.Millisecond),
		retry.WithJitter(false),
	)(producer)

	_, err := wrapped(context.Background())
	if !errors.Is(err, errUpstream) {
		t.Fatalf("expected errUpstream, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithCircuitBreaker_PassesThroughWhileClosed(t *testing.T) {
	t.Parallel()

	cb := circuitbreaker.New()
	producer := compute.Producer[int](func(_ context.Context) (int, error) {
		return 42, nil
	})

	wrapped := resilience.WithCircuitBreaker[int](cb)(producer)

	v, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestWithCircuitBreaker_FailsFastWhenOpen(t *testing.T) {
	t.Parallel()

	cb := circuitbreaker.New(circuitbreaker.WithThreshold(2))
	calls := 0
	producer := compute.Producer[int](func(_ context.Context) (int, error) {
		calls++
		return 0, errUpstream
	})

	wrapped := resilience.WithCircuitBreaker[int](cb)(producer)

	for range 2 {
		_, _ = wrapped(context.Background())
	}
	if cb.State() != circuitbreaker.StateOpen {
		t.Fatalf("expected circuit to be open after threshold failures, got %v", cb.State())
	}

	callsBeforeTrip := calls
	_, err := wrapped(context.Background())
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != callsBeforeTrip {
		t.Fatalf("producer should not run while circuit is open, calls went from %d to %d", callsBeforeTrip, calls)
	}
}

func TestChain_ComposesLeftToRight(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) func(compute.Producer[int]) compute.Producer[int] {
		return func(next compute.Producer[int]) compute.Producer[int] {
			return func(ctx context.Context) (int, error) {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	producer := compute.Producer[int](func(_ context.Context) (int, error) { return 7, nil })
	chained := resilience.Chain(producer, mark("a"), mark("b"))

	v, err := chained(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Fatalf("expected outer-to-inner call order [b a], got %v", order)
	}
}

func TestChain_RetryThenCircuitBreaker(t *testing.T) {
	t.Parallel()

	cb := circuitbreaker.New(circuitbreaker.WithThreshold(10))
	calls := 0
	producer := compute.Producer[string](func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errUpstream
		}
		return "done", nil
	})

	chained := resilience.Chain(producer,
		resilience.WithRetry[string](
			retry.WithMaxAttempts(3),
			retry.WithDelay(time.Millisecond),
			retry.WithJitter(false),
		),
		resilience.WithCircuitBreaker[string](cb),
	)

	v, err := chained(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "done" {
		t.Fatalf("expected done, got %q", v)
	}
	if cb.State() != circuitbreaker.StateClosed {
		t.Fatalf("expected circuit to remain closed, got %v", cb.State())
	}
}
