package errors

import "fmt"

// Kind names the pipeline stage an error came from.
type Kind string

const (
	KindDiscovery     Kind = `DiscoveryError`
	KindSelection     Kind = `SelectionError`
	KindCrawlPage     Kind = `CrawlPageError`
	KindAnalyzer      Kind = `AnalyzerModuleError`
	KindConsolidation Kind = `ConsolidationError`
	KindGrading       Kind = `GradingError`
	KindPersistence   Kind = `PersistenceError`
)

// StageError is a non-fatal failure of one pipeline stage. The stage that returns it
// is expected to have a fallback.
type StageError struct {
	Kind Kind
	Err  error
}

func NewStageError(kind Kind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf(`%s: %v`, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err carries a StageError of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *StageError
	if As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// JudgmentKind classifies failures of the AI judgment service.
type JudgmentKind string

const (
	JudgmentTimeout            JudgmentKind = `timeout`
	JudgmentInvalidResponse    JudgmentKind = `invalid-response-format`
	JudgmentServiceUnavailable JudgmentKind = `service-unavailable`
)

type JudgmentError struct {
	Kind JudgmentKind
	Task string
	Err  error
}

func NewJudgmentError(kind JudgmentKind, task string, err error) *JudgmentError {
	return &JudgmentError{Kind: kind, Task: task, Err: err}
}

func (e *JudgmentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf(`judgment %s: %s`, e.Task, e.Kind)
	}
	return fmt.Sprintf(`judgment %s: %s: %v`, e.Task, e.Kind, e.Err)
}

func (e *JudgmentError) Unwrap() error {
	return e.Err
}

// Fatal pipeline reasons. These strings are part of the public contract.
const (
	ReasonNoPagesCrawled = `no pages crawled`
	ReasonNoCandidates   = `discovery and fallback both empty`
)

// PipelineError terminates a run. Error returns the bare reason so callers can
// match on it.
type PipelineError struct {
	Reason string
	Err    error
}

func NewPipelineError(reason string, err error) *PipelineError {
	return &PipelineError{Reason: reason, Err: err}
}

func (e *PipelineError) Error() string {
	return e.Reason
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
