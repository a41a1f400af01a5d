package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_KeepsInputOrder(t *testing.T) {
	inputs := []int{5, 1, 4, 2, 3}

	results, err := Map(context.Background(), DefaultPoolConfig(), inputs, func(ctx context.Context, input int) (int, error) {
		// Later inputs finish first.
		time.Sleep(time.Duration(input) * time.Millisecond)
		return input * 2, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{10, 2, 8, 4, 6}, results)
}

func TestMap_Empty(t *testing.T) {
	results, err := Map(context.Background(), DefaultPoolConfig(), []string{}, func(ctx context.Context, input string) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	inputs := make([]int, 20)

	_, err := Map(context.Background(), PoolConfig{}.WithWorkers(3), inputs, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMap_FirstErrorCancelsRest(t *testing.T) {
	boom := errors.New("boom")
	var started int32
	inputs := make([]int, 100)
	for i := range inputs {
		inputs[i] = i
	}

	_, err := Map(context.Background(), PoolConfig{MaxWorkers: 1}, inputs, func(ctx context.Context, input int) (int, error) {
		atomic.AddInt32(&started, 1)
		if input == 2 {
			return 0, boom
		}
		return input, nil
	})

	require.ErrorIs(t, err, boom)
	assert.Less(t, atomic.LoadInt32(&started), int32(100))
}

func TestMap_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, DefaultPoolConfig(), []int{1, 2, 3}, func(ctx context.Context, input int) (int, error) {
		return input, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()

	assert.GreaterOrEqual(t, cfg.MaxWorkers, 2)
	assert.LessOrEqual(t, cfg.MaxWorkers, 8)
	assert.Equal(t, 4, cfg.WithWorkers(4).MaxWorkers)
}

func TestMap_ErrorCancelsInFlightWork(t *testing.T) {
	boom := errors.New("boom")

	_, err := Map(context.Background(), PoolConfig{MaxWorkers: 2}, []int{0, 1}, func(ctx context.Context, input int) (int, error) {
		if input == 0 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return input, nil
		}
	})

	require.ErrorIs(t, err, boom)
}
