package queue

import (
	"context"
	"net"
	"os"
	"syscall"
	"time"

	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Config struct {
	// Ceiling is the number of operations allowed in flight at once.
	Ceiling int
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// InitialInterval is the first backoff delay; later delays double.
	InitialInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Ceiling:         20,
		MaxRetries:      3,
		InitialInterval: time.Second,
	}
}

type Operation func(ctx context.Context) error

// Queue gates persistence operations behind an in-flight ceiling. Callers beyond
// the ceiling wait in FIFO order. Each operation is retried on transient errors.
type Queue struct {
	sem *semaphore.Weighted
	cfg Config
	log *log.Logger
}

func New(cfg Config, logger *log.Logger) *Queue {
	d := DefaultConfig()
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = d.Ceiling
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = d.InitialInterval
	}
	return &Queue{
		sem: semaphore.NewWeighted(int64(cfg.Ceiling)),
		cfg: cfg,
		log: logger,
	}
}

// Do waits for a slot and runs op, retrying transient failures with exponential
// backoff. Non-transient errors are returned after the first attempt.
func (q *Queue) Do(ctx context.Context, name string, op Operation) error {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, `persistence queue wait aborted`)
	}
	metrics.PersistenceInFlight.Inc()
	defer func() {
		metrics.PersistenceInFlight.Dec()
		q.sem.Release(1)
	}()

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		switch {
		case err == nil:
			metrics.PersistenceAttemptsTotal.WithLabelValues(`ok`).Inc()
			return nil
		case IsTransient(err):
			metrics.PersistenceAttemptsTotal.WithLabelValues(`transient`).Inc()
			return err
		default:
			metrics.PersistenceAttemptsTotal.WithLabelValues(`permanent`).Inc()
			return backoff.Permanent(err)
		}
	}
	notify := func(err error, wait time.Duration) {
		q.log.WithContext(ctx).WithFields(log.Fields{
			`operation`: name,
			`attempt`:   attempt,
			`wait`:      wait.String(),
		}).WithError(err).Warn(`transient persistence error, retrying`)
	}

	if err := backoff.RetryNotify(operation, q.newBackOff(ctx), notify); err != nil {
		return errors.NewStageError(errors.KindPersistence, err)
	}
	return nil
}

// InFlightLimit reports the configured ceiling.
func (q *Queue) InFlightLimit() int {
	return q.cfg.Ceiling
}

func (q *Queue) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.cfg.InitialInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = q.cfg.InitialInterval << 4
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, q.cfg.MaxRetries), ctx)
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient flags err as retryable for backends whose own error types say so.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is worth retrying: timeouts, connection resets
// and DNS failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
