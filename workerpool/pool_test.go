package workerpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowcache/ccache/workerpool"
)

func TestPool_ProcessesAllTasks(t *testing.T) {
	t.Parallel()

	var count atomic.Int64

	pool := workerpool.New(context.Background(), func(_ context.Context, task int) {
		count.Add(int64(task))
	}, workerpool.WithWorkers[int](4))

	for i := 1; i <= 100; i++ {
		pool.Submit(i)
	}
	pool.Shutdown()

	expected := int64(5050) // sum 1..100
	if count.Load() != expected {
		t.Fatalf("expected sum %d, got %d", expected, count.Load())
	}
}

func TestPool_ConcurrentExecution(t *testing.T) {
	t.Parallel()

	var maxConcurrent atomic.Int64
	var current atomic.Int64

	pool := workerpool.New(context.Background(), func(_ context.Context, _ int) {
		cur := current.Add(1)
		for {
			old := maxConcurrent.Load()
			if cur <= old || maxConcurrent.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
	}, workerpool.WithWorkers[int](4), workerpool.WithBufferSize[int](100))

	for i := range 20 {
		pool.Submit(i)
	}
	pool.Shutdown()

	max := maxConcurrent.Load()
	if max < 2 || max > 4 {
		t.Fatalf("expected 2-4 concurrent workers, got %d", max)
	}
}

func TestPool_ShutdownWaitsForCompletion(t *testing.T) {
	t.Parallel()

	var completed atomic.Bool

	pool := workerpool.New(context.Background(), func(_ context.Context, _ int) {
		time.Sleep(50 * time.Millisecond)
		completed.Store(true)
	}, workerpool.WithWorkers[int](1))

	pool.Submit(1)
	pool.Shutdown()

	if !completed.Load() {
		t.Fatal("shutdown returned before task completed")
	}
}

func TestPool_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	pool := workerpool.New(context.Background(), func(_ context.Context, _ int) {
	}, workerpool.WithWorkers[int](2))

	pool.Submit(1)

	// Should not panic on double shutdown
	pool.Shutdown()
	pool.Shutdown()
}

func TestPool_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var processed atomic.Int64

	var mu sync.Mutex
	started := false

	pool := workerpool.New(ctx, func(_ context.Context, _ int) {
		mu.Lock()
		started = true
		mu.Unlock()
		time.Sleep(100 * time.Millisecond)
		processed.Add(1)
	}, workerpool.WithWorkers[int](1), workerpool.WithBufferSize[int](100))

	// Submit a task, wait for it to start, then cancel
	pool.Submit(1)
	for {
		mu.Lock()
		s := started
		mu.Unlock()
		if s {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// Submit more tasks that should be dropped on context cancel
	for i := range 10 {
		pool.Submit(i)
	}
	cancel()
	pool.Shutdown()

	// At least 1 should have processed, but not all 11
	got := processed.Load()
	if got == 0 {
		t.Fatal("expected at least 1 task processed")
	}
}

func TestPool_PanicIsRecoveredAndReported(t *testing.T) {
	t.Parallel()

	var recoveredTask atomic.Int64
	var recoveredCount atomic.Int64
	var processed atomic.Int64

	pool := workerpool.New(context.Background(), func(_ context.Context, task int) {
		if task == 3 {
			panic("boom")
		}
		processed.Add(1)
	},
		workerpool.WithWorkers[int](1),
		workerpool.WithOnPanic[int](func(task, recovered any) {
			recoveredTask.Store(int64(task.(int)))
			recoveredCount.Add(1)
			_ = recovered
		}),
	)

	for i := 1; i <= 5; i++ {
		pool.Submit(i)
	}
	pool.Shutdown()

	if recoveredCount.Load() != 1 {
		t.Fatalf("expected exactly 1 recovered panic, got %d", recoveredCount.Load())
	}
	if recoveredTask.Load() != 3 {
		t.Fatalf("expected panic recorded for task 3, got %d", recoveredTask.Load())
	}
	if processed.Load() != 4 {
		t.Fatalf("expected the other 4 tasks to still process, got %d", processed.Load())
	}
}

func TestPool_QueueLenAndWorkers(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	pool := workerpool.New(context.Background(), func(_ context.Context, _ int) {
		<-block
	}, workerpool.WithWorkers[int](2), workerpool.WithBufferSize[int](10))

	if pool.Workers() != 2 {
		t.Fatalf("expected Workers() == 2, got %d", pool.Workers())
	}

	for i := range 4 {
		pool.Submit(i)
	}

	// 2 workers pick up tasks immediately, leaving roughly 2 buffered.
	time.Sleep(10 * time.Millisecond)
	if got := pool.QueueLen(); got < 1 || got > 2 {
		t.Fatalf("expected QueueLen in [1,2], got %d", got)
	}

	close(block)
	pool.Shutdown()
}

func TestPool_DefaultWorkerCount(t *testing.T) {
	t.Parallel()

	var count atomic.Int64

	// No WithWorkers — should default to runtime.NumCPU()
	pool := workerpool.New(context.Background(), func(_ context.Context, _ string) {
		count.Add(1)
	})

	pool.Submit("a")
	pool.Submit("b")
	pool.Shutdown()

	if count.Load() != 2 {
		t.Fatalf("expected 2, got %d", count.Load())
	}
}
