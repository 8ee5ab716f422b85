package judgmenttest

import (
	"context"
	"sync"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/pkg/errors"
)

type Handler func(ctx context.Context, req adaptors.JudgmentRequest) (*adaptors.JudgmentResponse, error)

// Stub is a scripted JudgmentService. Tasks without a handler fail as
// service-unavailable.
type Stub struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls     map[string]int
	confirmed map[string]int
	requests  []adaptors.JudgmentRequest
}

func NewStub() *Stub {
	return &Stub{
		handlers:  map[string]Handler{},
		calls:     map[string]int{},
		confirmed: map[string]int{},
	}
}

func (s *Stub) On(task string, h Handler) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[task] = h
	return s
}

func (s *Stub) Judge(ctx context.Context, req adaptors.JudgmentRequest) (*adaptors.JudgmentResponse, error) {
	s.mu.Lock()
	h, ok := s.handlers[req.Task]
	s.calls[req.Task]++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if !ok {
		return nil, errors.NewJudgmentError(errors.JudgmentServiceUnavailable, req.Task, nil)
	}
	return h(ctx, req)
}

func (s *Stub) Calls(task string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[task]
}

func (s *Stub) Confirm(_ context.Context, req adaptors.JudgmentRequest, _ *adaptors.JudgmentResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed[req.Task]++
}

// Confirmed counts the answers for task that the caller accepted.
func (s *Stub) Confirmed(task string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed[task]
}

// Requests returns every request seen for task, in call order.
func (s *Stub) Requests(task string) []adaptors.JudgmentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []adaptors.JudgmentRequest
	for _, r := range s.requests {
		if r.Task == task {
			out = append(out, r)
		}
	}
	return out
}

// Reply answers with a fixed raw body.
func Reply(raw string) Handler {
	return func(_ context.Context, _ adaptors.JudgmentRequest) (*adaptors.JudgmentResponse, error) {
		return &adaptors.JudgmentResponse{Raw: raw, Model: `stub`, InputTokens: 10, OutputTokens: 5}, nil
	}
}

// Fail answers with a typed judgment error.
func Fail(kind errors.JudgmentKind) Handler {
	return func(_ context.Context, req adaptors.JudgmentRequest) (*adaptors.JudgmentResponse, error) {
		return nil, errors.NewJudgmentError(kind, req.Task, nil)
	}
}

// Block waits for the context to end, like a call that never returns in time.
func Block() Handler {
	return func(ctx context.Context, req adaptors.JudgmentRequest) (*adaptors.JudgmentResponse, error) {
		<-ctx.Done()
		return nil, errors.NewJudgmentError(errors.JudgmentTimeout, req.Task, ctx.Err())
	}
}
