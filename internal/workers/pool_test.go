package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		name            string
		numWorkers      int
		expectedWorkers int
	}{
		{"positive workers", 5, 5},
		{"zero workers defaults to CPU count", 0, DefaultWorkers()},
		{"negative workers defaults to CPU count", -1, DefaultWorkers()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.numWorkers)
			assert.Equal(t, tt.expectedWorkers, pool.Size())
		})
	}
}

func TestDefaultWorkers_Positive(t *testing.T) {
	assert.Greater(t, DefaultWorkers(), 0)
}

func TestMap_Empty(t *testing.T) {
	pool := NewWorkerPool(2)
	results, err := Map(context.Background(), pool, []int(nil), func(ctx context.Context, i int, v int) (int, error) {
		return v, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMap_PreservesOrder(t *testing.T) {
	pool := NewWorkerPool(4)
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	results, err := Map(context.Background(), pool, items, func(ctx context.Context, index int, v int) (int, error) {
		// Finish later items first to shuffle completion order.
		time.Sleep(time.Duration(len(items)-index) * 10 * time.Microsecond)
		return v * v, nil
	})

	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestMap_RespectsLimit(t *testing.T) {
	pool := NewWorkerPool(3)
	var running, peak int32

	_, err := Map(context.Background(), pool, make([]struct{}, 30), func(ctx context.Context, index int, _ struct{}) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMap_ReturnsFirstError(t *testing.T) {
	pool := NewWorkerPool(2)
	boom := errors.New("boom")

	results, err := Map(context.Background(), pool, []int{1, 2, 3, 4}, func(ctx context.Context, index int, v int) (int, error) {
		if v == 3 {
			return 0, boom
		}
		return v, nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, results)
}

func TestMap_CanceledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	_, err := Map(ctx, pool, []int{1, 2, 3}, func(ctx context.Context, index int, v int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return v, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
