package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/flowcache/ccache/circuitbreaker"
	"github.com/flowcache/ccache/compute"
	"github.com/flowcache/ccache/expiration"
	"github.com/flowcache/ccache/logger"
	"github.com/flowcache/ccache/metrics"
	"github.com/flowcache/ccache/resilience"
	"github.com/flowcache/ccache/retry"
	"github.com/flowcache/ccache/store"
	"github.com/flowcache/ccache/workerpool"
)

// service wires the Computing Coordinator to a demo resilient producer and
// a warm-cache job backed by a bounded worker pool.
type service struct {
	cache    *compute.Cache[string, string]
	memStore *store.Memory[string, string]
	cb       *circuitbreaker.CircuitBreaker
	policy   expiration.Policy
	log      logger.ILogger

	warmChan *metrics.ChannelMonitor[string]
	warmPool *workerpool.Pool[string]
}

func newService(ctx context.Context, cfg ctlConfig, reg *metrics.Registry, log logger.ILogger) (*service, error) {
	policy, err := expiration.OfLifeAndIdle(
		time.Duration(cfg.DefaultLifeMS)*time.Millisecond,
		time.Duration(cfg.DefaultIdleMS)*time.Millisecond,
	)
	if err != nil {
		return nil, fmt.Errorf("building default expiration policy: %w", err)
	}

	cacheMetrics := metrics.NewCacheMetrics(reg, "coordinator")

	memStore := store.NewMemory[string, string](
		store.WithShards[string, string](cfg.Shards),
		store.WithCapacity[string, string](cfg.CapacityPerShard),
		store.WithSweepInterval[string, string](cfg.SweepInterval, cfg.SweepWorkers),
		store.WithOnEvict[string, string](cacheMetrics.RecordEviction),
		store.WithOnSweepPanic[string, string](func(shardIdx, recovered any) {
			log.Errorf("sweep panic on shard %v: %v", shardIdx, recovered)
		}),
	)

	cb := circuitbreaker.New(
		circuitbreaker.WithThreshold(3),
		circuitbreaker.WithTimeout(5*time.Second),
		circuitbreaker.WithOnStateChange(func(from, to circuitbreaker.State) {
			log.Warningf("backend circuit breaker %s -> %s", from, to)
		}),
	)

	svc := &service{
		cache:    compute.New[string, string](memStore, compute.WithLogger[string, string](log.SubLogger("compute")), compute.WithMetrics[string, string](cacheMetrics)),
		memStore: memStore,
		cb:       cb,
		policy:   policy,
		log:      log,
	}

	const warmBuffer = 64
	svc.warmChan = metrics.NewChannelMonitor[string](reg, "warm_jobs", warmBuffer)
	svc.warmPool = workerpool.New(ctx, svc.runWarmTask,
		workerpool.WithWorkers[string](cfg.SweepWorkers),
		workerpool.WithOnPanic[string](func(task, recovered any) {
			log.Errorf("warm task panic for key %v: %v", task, recovered)
		}),
	)
	go svc.drainWarmChannel(ctx)

	return svc, nil
}

// backendProducer simulates a slow, occasionally-failing upstream fetch for
// key, wrapped with retry and a circuit breaker via resilience.Chain so
// both helpers run end to end.
func (s *service) backendProducer(key string) compute.Producer[string] {
	fetch := compute.Producer[string](func(ctx context.Context) (string, error) {
		select {
		case <-time.After(time.Duration(20+rand.IntN(80)) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if rand.IntN(10) == 0 {
			err := fmt.Errorf("simulated upstream failure for key %q", key)
			logger.FromCtx(ctx).Debugf("backend fetch failed: %v", err)
			return "", err
		}
		return fmt.Sprintf("value-for-%s@%d", key, time.Now().UnixNano()), nil
	})

	return resilience.Chain(fetch,
		resilience.WithRetry[string](
			retry.WithMaxAttempts(3),
			retry.WithDelay(10*time.Millisecond),
			retry.WithStrategy(retry.StrategyExponential),
			retry.WithOnRetry(func(attempt int, err error) {
				s.log.Warningf("retrying fetch for key %q after attempt %d: %v", key, attempt+1, err)
			}),
		),
		resilience.WithCircuitBreaker[string](s.cb),
	)
}

// fetch computes (with coalescing) and caches the value for key. The
// producer reaches its logger through the context rather than a captured
// closure, so whichever goroutine ends up actually running the producer
// (the original caller's, on a coalesced miss) logs through the same
// sub-logger regardless of which caller's stack it runs on.
func (s *service) fetch(ctx context.Context, key string) (string, error) {
	ctx = logger.WithSubLogger(ctx, "producer")
	return s.cache.ComputeAndPut(ctx, key, s.backendProducer(key), s.policy)
}

// warm enqueues key for background computation via the monitored warm
// channel, backpressuring the caller if the channel is full.
func (s *service) warm(ctx context.Context, key string) error {
	return s.warmChan.Send(ctx, key)
}

func (s *service) drainWarmChannel(ctx context.Context) {
	for {
		key, err := s.warmChan.Receive(ctx)
		if err != nil {
			return
		}
		s.warmPool.Submit(key)
	}
}

func (s *service) runWarmTask(ctx context.Context, key string) {
	if _, err := s.fetch(ctx, key); err != nil {
		s.log.Warningf("warm job failed for key %q: %v", key, err)
	}
}

func (s *service) close() {
	s.warmChan.Close()
	s.warmPool.Shutdown()
	s.memStore.Close()
}
