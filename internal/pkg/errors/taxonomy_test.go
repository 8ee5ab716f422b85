package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageErrorKind(t *testing.T) {
	cause := errors.New("sitemap unreachable")
	err := Wrap(NewStageError(KindDiscovery, cause), `discover`)

	assert.True(t, IsKind(err, KindDiscovery))
	assert.False(t, IsKind(err, KindGrading))
	assert.True(t, Is(err, cause))
}

func TestJudgmentErrorUnwrap(t *testing.T) {
	err := NewJudgmentError(JudgmentTimeout, `grading`, context.DeadlineExceeded)

	var je *JudgmentError
	assert.True(t, As(Wrap(err, `grade`), &je))
	assert.Equal(t, JudgmentTimeout, je.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), `timeout`)
}

func TestPipelineErrorReasonIsExact(t *testing.T) {
	err := NewPipelineError(ReasonNoPagesCrawled, errors.New("dns failure"))
	assert.Equal(t, `no pages crawled`, err.Error())

	var pe *PipelineError
	assert.True(t, As(err, &pe))
	assert.Equal(t, ReasonNoPagesCrawled, pe.Reason)
}
