package queue

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"site_auditor/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

const unit = 20 * time.Millisecond

func TestRetryTransientThenSucceed(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(Config{Ceiling: 2, MaxRetries: 3, InitialInterval: unit}, testLogger())

	attempts := 0
	start := time.Now()
	err := q.Do(context.Background(), `upsert`, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &net.DNSError{Err: `no such host`, Name: `db`, IsNotFound: true}
		}
		return nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.GreaterOrEqual(t, elapsed, 3*unit)
	assert.Less(t, elapsed, 7*unit)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(Config{Ceiling: 1, MaxRetries: 3, InitialInterval: time.Millisecond}, testLogger())

	attempts := 0
	err := q.Do(context.Background(), `put`, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf(`write: %w`, syscall.ECONNRESET)
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.True(t, errors.IsKind(err, errors.KindPersistence))
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(Config{Ceiling: 1, MaxRetries: 3, InitialInterval: time.Millisecond}, testLogger())

	constraint := fmt.Errorf(`duplicate key value violates unique constraint`)
	attempts := 0
	err := q.Do(context.Background(), `upsert`, func(ctx context.Context) error {
		attempts++
		return constraint
	})

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, constraint)
}

func TestCeilingBoundsInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(Config{Ceiling: 3, InitialInterval: time.Millisecond}, testLogger())

	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), `put`, func(ctx context.Context) error {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 3, q.InFlightLimit())
}

func TestWaitersAreServedInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(Config{Ceiling: 1, InitialInterval: time.Millisecond}, testLogger())

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), `hold`, func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = q.Do(context.Background(), `put`, func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		time.Sleep(10 * time.Millisecond)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestWaitAbortsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := New(Config{Ceiling: 1, InitialInterval: time.Millisecond}, testLogger())

	release := make(chan struct{})
	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Do(context.Background(), `hold`, func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Do(ctx, `put`, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&net.DNSError{Err: `timeout`, IsTimeout: true}))
	assert.True(t, IsTransient(fmt.Errorf(`read: %w`, syscall.ECONNRESET)))
	assert.True(t, IsTransient(MarkTransient(fmt.Errorf(`503`))))
	assert.False(t, IsTransient(fmt.Errorf(`constraint violation`)))
	assert.False(t, IsTransient(nil))
}
