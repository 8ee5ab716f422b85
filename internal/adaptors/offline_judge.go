package adaptors

import (
	"context"

	domain "site_auditor/internal/domain/adaptors"
	"site_auditor/internal/pkg/errors"
)

// OfflineJudge answers every request as unavailable. It stands in for the
// Claude client when no API key is configured so every judgment stage takes
// its deterministic path.
type OfflineJudge struct{}

func (OfflineJudge) Judge(_ context.Context, req domain.JudgmentRequest) (*domain.JudgmentResponse, error) {
	return nil, errors.NewJudgmentError(errors.JudgmentServiceUnavailable, req.Task, errors.New(`judgment service not configured`))
}
