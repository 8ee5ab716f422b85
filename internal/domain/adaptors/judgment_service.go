package adaptors

import (
	"context"
	"time"
)

type ImageAttachment struct {
	MediaType string
	Data      []byte
	Label     string
}

// JudgmentRequest is a structured prompt for the AI judgment service. Schema
// describes the JSON document the caller expects back.
type JudgmentRequest struct {
	Task      string
	System    string
	Prompt    string
	Images    []ImageAttachment
	Schema    string
	MaxTokens int
}

type JudgmentResponse struct {
	Raw          string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
	Cached       bool
}

// JudgmentService answers structured prompts. Failures are reported as
// *errors.JudgmentError.
type JudgmentService interface {
	Judge(ctx context.Context, req JudgmentRequest) (*JudgmentResponse, error)
}

// ResponseConfirmer is implemented by services that keep answers for reuse. Only
// answers passed to Confirm, after the caller decoded and validated them, are kept.
type ResponseConfirmer interface {
	Confirm(ctx context.Context, req JudgmentRequest, resp *JudgmentResponse)
}
