package models

import "time"

// NeutralScore stands in for a module that could not produce a score.
const NeutralScore = 50

// JudgmentUsage is the model/cost/time metadata attached to AI-derived results.
type JudgmentUsage struct {
	Model        string        `json:"model,omitempty"`
	InputTokens  int           `json:"input_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	CostUSD      float64       `json:"cost_usd,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Add accumulates another call's usage.
func (u JudgmentUsage) Add(o JudgmentUsage) JudgmentUsage {
	if u.Model == "" {
		u.Model = o.Model
	}
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CostUSD += o.CostUSD
	u.Duration += o.Duration
	return u
}

type AnalyzerResult struct {
	Module   Module        `json:"module"`
	Score    float64       `json:"score"`
	Degraded bool          `json:"degraded"`
	Error    string        `json:"error,omitempty"`
	Issues   []Issue       `json:"issues"`
	Pages    []string      `json:"pages"`
	Summary  string        `json:"summary,omitempty"`
	Usage    JudgmentUsage `json:"usage"`
}

// DegradedResult is the neutral placeholder used when a module fails.
func DegradedResult(module Module, reason string) *AnalyzerResult {
	return &AnalyzerResult{
		Module:   module,
		Score:    NeutralScore,
		Degraded: true,
		Error:    reason,
		Issues:   []Issue{},
	}
}
