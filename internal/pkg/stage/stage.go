package stage

import (
	"context"
	"time"

	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"

	log "github.com/sirupsen/logrus"
)

type Status string

const (
	StatusOK       Status = `ok`
	StatusDegraded Status = `degraded`
	StatusFatal    Status = `fatal`
)

// Outcome is what a fallible stage produced. Degraded outcomes still carry a
// usable Value built by the stage's fallback.
type Outcome[T any] struct {
	Value    T
	Status   Status
	Err      error
	Duration time.Duration
}

// Func is a stage body. It returns the value and, when it had to fall back, a
// non-nil degradation error. Fatal conditions are reported as *errors.PipelineError.
type Func[T any] func(ctx context.Context) (T, error)

// Run executes fn and classifies its result. A *errors.PipelineError is fatal; any
// other error means fn already produced its fallback value.
func Run[T any](ctx context.Context, logger *log.Entry, name string, fn Func[T]) Outcome[T] {
	start := time.Now()
	v, err := fn(ctx)
	out := Outcome[T]{Value: v, Status: StatusOK, Err: err, Duration: time.Since(start)}

	var pe *errors.PipelineError
	switch {
	case err == nil:
		logger.WithField(`stage`, name).WithField(`duration`, out.Duration.String()).Debug(`stage completed`)
	case errors.As(err, &pe):
		out.Status = StatusFatal
		logger.WithField(`stage`, name).WithError(err).Error(`stage failed`)
	default:
		out.Status = StatusDegraded
		metrics.StageDegradedTotal.WithLabelValues(name).Inc()
		logger.WithField(`stage`, name).WithError(err).Warn(`stage degraded`)
	}
	metrics.StageDuration.WithLabelValues(name, string(out.Status)).Observe(out.Duration.Seconds())
	return out
}

// Phase renders the outcome as a phase log entry.
func (o Outcome[T]) Phase(name string) models.Phase {
	p := models.Phase{Name: name, Duration: o.Duration}
	switch o.Status {
	case StatusFatal:
		p.Status = models.PhaseFatal
	case StatusDegraded:
		p.Status = models.PhaseDegraded
	default:
		p.Status = models.PhaseOK
	}
	if o.Err != nil {
		p.Error = o.Err.Error()
	}
	return p
}

func (o Outcome[T]) Fatal() bool {
	return o.Status == StatusFatal
}
