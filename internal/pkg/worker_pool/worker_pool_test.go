package worker_pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func collect(pool *WorkerPool, submit func()) []TaskResult {
	go func() {
		submit()
		pool.Wait()
	}()
	var out []TaskResult
	for res := range pool.ResultsCh {
		out = append(out, res)
	}
	return out
}

func TestWorkerPool_EveryTaskReportsOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewWorkerPool(context.Background(), 3, false, log.New())
	results := collect(pool, func() {
		for i := 0; i < 10; i++ {
			i := i
			require.NoError(t, pool.Submit(fmt.Sprintf("task-%d", i), func(ctx context.Context) (any, error) {
				if i%4 == 0 {
					return nil, errors.New("boom")
				}
				return i * 2, nil
			}))
		}
	})

	require.Len(t, results, 10)
	seen := map[string]bool{}
	failed := 0
	for _, r := range results {
		assert.False(t, seen[r.ID], "duplicate result for %s", r.ID)
		seen[r.ID] = true
		if r.Err != nil {
			failed++
		}
	}
	assert.Equal(t, 3, failed)
}

func TestWorkerPool_RespectsConcurrencyCeiling(t *testing.T) {
	defer goleak.VerifyNone(t)

	var running, peak int32
	pool := NewWorkerPool(context.Background(), 2, false, log.New())
	collect(pool, func() {
		for i := 0; i < 8; i++ {
			_ = pool.Submit(fmt.Sprint(i), func(ctx context.Context) (any, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			})
		}
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestWorkerPool_StopOnErrorCancelsQueued(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewWorkerPool(context.Background(), 1, true, log.New())
	results := collect(pool, func() {
		_ = pool.Submit("fail", func(ctx context.Context) (any, error) {
			return nil, errors.New("first failure")
		})
		for i := 0; i < 3; i++ {
			_ = pool.Submit(fmt.Sprint(i), func(ctx context.Context) (any, error) {
				return "ran", nil
			})
		}
	})

	require.Len(t, results, 4)
	cancelled := 0
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	assert.Equal(t, 3, cancelled)
}

func TestWorkerPool_PanicBecomesError(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewWorkerPool(context.Background(), 1, false, log.New())
	results := collect(pool, func() {
		_ = pool.Submit("panic", func(ctx context.Context) (any, error) {
			panic("unexpected")
		})
	})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestWorkerPool_SubmitAfterWaitFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewWorkerPool(context.Background(), 1, false, log.New())
	pool.Wait()
	for range pool.ResultsCh {
	}
	assert.ErrorIs(t, pool.Submit("late", func(ctx context.Context) (any, error) { return nil, nil }), ErrPoolClosed)
}
