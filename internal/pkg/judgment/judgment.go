package judgment

import (
	"context"
	"strings"
	"time"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"

	json "github.com/json-iterator/go"
)

// Result is the validated outcome of one judgment call: either Value is usable
// (Kind is empty) or the call failed with Kind.
type Result[T any] struct {
	Value T
	Kind  errors.JudgmentKind
	Err   error
	Usage models.JudgmentUsage
}

func (r Result[T]) Ok() bool {
	return r.Kind == ``
}

// Error converts a failed result into a *errors.JudgmentError. It returns nil for Ok.
func (r Result[T]) Error(task string) error {
	if r.Ok() {
		return nil
	}
	return errors.NewJudgmentError(r.Kind, task, r.Err)
}

// Validator rejects decoded values that are structurally valid JSON but unusable.
type Validator[T any] func(v *T) error

// Decode calls the judgment service and validates its answer into a Result. A
// response that does not decode or fails validate is reported as
// invalid-response-format, the same way a transport failure is reported. Only
// validated answers are confirmed to a service implementing ResponseConfirmer.
func Decode[T any](ctx context.Context, svc adaptors.JudgmentService, req adaptors.JudgmentRequest, validate Validator[T]) Result[T] {
	start := time.Now()
	var res Result[T]

	resp, err := svc.Judge(ctx, req)
	if err != nil {
		res.Kind = Classify(ctx, err)
		res.Err = err
		res.Usage.Duration = time.Since(start)
		metrics.JudgmentCallsTotal.WithLabelValues(req.Task, string(res.Kind)).Inc()
		return res
	}
	res.Usage = UsageOf(resp)

	payload := ExtractJSON(resp.Raw)
	if payload == `` {
		res.Kind = errors.JudgmentInvalidResponse
		res.Err = errors.New(`response contains no JSON document`)
		metrics.JudgmentCallsTotal.WithLabelValues(req.Task, string(res.Kind)).Inc()
		return res
	}

	if err := json.Unmarshal([]byte(payload), &res.Value); err != nil {
		res.Kind = errors.JudgmentInvalidResponse
		res.Err = errors.Wrap(err, `failed to decode judgment response`)
		metrics.JudgmentCallsTotal.WithLabelValues(req.Task, string(res.Kind)).Inc()
		return res
	}

	if validate != nil {
		if err := validate(&res.Value); err != nil {
			res.Kind = errors.JudgmentInvalidResponse
			res.Err = err
			metrics.JudgmentCallsTotal.WithLabelValues(req.Task, string(res.Kind)).Inc()
			return res
		}
	}

	if c, ok := svc.(adaptors.ResponseConfirmer); ok && !resp.Cached {
		c.Confirm(ctx, req, resp)
	}
	metrics.JudgmentCallsTotal.WithLabelValues(req.Task, `ok`).Inc()
	return res
}

// Classify maps an error from the judgment service to a JudgmentKind. Typed
// errors keep their kind; context expiry is a timeout; anything else means the
// service was unavailable.
func Classify(ctx context.Context, err error) errors.JudgmentKind {
	var je *errors.JudgmentError
	if errors.As(err, &je) {
		return je.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.JudgmentTimeout
	}
	return errors.JudgmentServiceUnavailable
}

func UsageOf(resp *adaptors.JudgmentResponse) models.JudgmentUsage {
	if resp == nil {
		return models.JudgmentUsage{}
	}
	return models.JudgmentUsage{
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      resp.CostUSD,
		Duration:     resp.Duration,
	}
}

// ExtractJSON returns the first JSON object or array in text, unwrapping markdown
// code fences. It returns an empty string when none is found.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexAny(text, `{[`)
	if start < 0 {
		return ``
	}
	open := text[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ``
}
