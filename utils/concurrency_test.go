package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledPoolBoundsConcurrency(t *testing.T) {
	pool := NewThrottledPool(context.Background(), 2, 0)

	var inFlight, peak, ran int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Go(func(context.Context) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			atomic.AddInt32(&ran, 1)
		}))
	}
	pool.Wait()

	assert.EqualValues(t, 10, ran)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestThrottledPoolSpacesStarts(t *testing.T) {
	const interval = 50 * time.Millisecond
	pool := NewThrottledPool(context.Background(), 3, interval)

	var mu sync.Mutex
	var starts []time.Time
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Go(func(context.Context) {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		}))
	}
	pool.Wait()

	require.Len(t, starts, 3)
	assert.GreaterOrEqual(t, starts[2].Sub(starts[0]), 2*interval-5*time.Millisecond,
		"three starts need at least two intervals even with three workers")
}

func TestThrottledPoolStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewThrottledPool(ctx, 1, time.Hour)

	var ran int32
	job := func(context.Context) { atomic.AddInt32(&ran, 1) }

	require.NoError(t, pool.Go(job), "first job starts immediately")
	require.NoError(t, pool.Go(job), "second job is admitted and waits an hour for its turn")
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}

	assert.ErrorIs(t, pool.Go(job), context.Canceled)
	assert.EqualValues(t, 1, ran, "the throttled job is abandoned")
}

func TestThrottledPoolClampsWorkers(t *testing.T) {
	pool := NewThrottledPool(context.Background(), 0, 0)

	var ran int32
	require.NoError(t, pool.Go(func(context.Context) { atomic.AddInt32(&ran, 1) }))
	pool.Wait()
	assert.EqualValues(t, 1, ran)
}
