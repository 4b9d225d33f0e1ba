package promise_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcache/ccache/promise"
)

func TestSetThenAwait(t *testing.T) {
	p := promise.New[string]()
	p.Set("v")

	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.True(t, p.Done())
}

func TestAwaitBlocksUntilSet(t *testing.T) {
	p := promise.New[int]()
	var wg sync.WaitGroup
	wg.Add(1)

	var got int
	go func() {
		defer wg.Done()
		v, err := p.Await(context.Background())
		require.NoError(t, err)
		got = v
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, p.Done())
	p.Set(42)
	wg.Wait()
	assert.Equal(t, 42, got)
}

func TestSetErrorThenAwait(t *testing.T) {
	p := promise.New[string]()
	wantErr := errors.New("boom")
	p.SetError(wantErr)

	_, err := p.Await(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestCancelIsValueNull(t *testing.T) {
	p := promise.New[string]()
	p.Cancel()

	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestOutcomeDistinguishesCancelFromZeroValue(t *testing.T) {
	cancelled := promise.New[string]()
	cancelled.Cancel()
	v, err, wasCancelled := cancelled.Outcome()
	assert.Empty(t, v)
	assert.NoError(t, err)
	assert.True(t, wasCancelled)

	zeroed := promise.New[string]()
	zeroed.Set("")
	v, err, wasCancelled = zeroed.Outcome()
	assert.Empty(t, v)
	assert.NoError(t, err)
	assert.False(t, wasCancelled)
}

func TestSingleAssignment(t *testing.T) {
	p := promise.New[int]()
	p.Set(1)
	p.Set(2)
	p.SetError(errors.New("ignored"))

	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestAwaitContextCancelled(t *testing.T) {
	p := promise.New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, p.Done())
}

func TestConcurrentWaitersAllObserveSameValue(t *testing.T) {
	p := promise.New[int]()
	const n = 50

	var wg sync.WaitGroup
	results := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := p.Await(context.Background())
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	p.Set(7)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}
