package models

import "strings"

type Module string

const (
	ModuleVisual        Module = "visual"
	ModuleSEO           Module = "seo"
	ModuleContent       Module = "content"
	ModuleSocial        Module = "social"
	ModuleAccessibility Module = "accessibility"
	ModulePerformance   Module = "performance"
)

// AllModules lists the analyzer modules in report order.
var AllModules = []Module{
	ModuleVisual,
	ModuleSEO,
	ModuleContent,
	ModuleSocial,
	ModuleAccessibility,
	ModulePerformance,
}

// SourceType groups modules the way reports label them.
func (m Module) SourceType() string {
	switch m {
	case ModuleVisual:
		return "visual"
	case ModuleSEO, ModulePerformance:
		return "technical"
	default:
		return string(m)
	}
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; higher is more severe. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ParseSeverity accepts any casing plus the "priority" aliases some analyzers emit.
func ParseSeverity(v string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "critical", "urgent":
		return SeverityCritical, true
	case "high", "major":
		return SeverityHigh, true
	case "medium", "moderate":
		return SeverityMedium, true
	case "low", "minor":
		return SeverityLow, true
	}
	return "", false
}

type Evidence struct {
	Page     string       `json:"page"`
	Viewport ViewportKind `json:"viewport,omitempty"`
	Region   string       `json:"region,omitempty"`
}

// Issue is created by one analyzer module and never modified afterwards.
type Issue struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Module      Module    `json:"module"`
	SourceType  string    `json:"source_type"`
	QuickWin    bool      `json:"quick_win"`
	Evidence    *Evidence `json:"evidence,omitempty"`
	Remediation string    `json:"remediation,omitempty"`
}

type ConsolidatedIssue struct {
	Issue     Issue    `json:"issue"`
	SourceIDs []string `json:"source_ids"`
	Rationale string   `json:"rationale,omitempty"`
}

type MergeEntry struct {
	KeptID    string   `json:"kept_id"`
	MergedIDs []string `json:"merged_ids"`
	Rationale string   `json:"rationale"`
}

type DedupStrategy string

const (
	DedupAI        DedupStrategy = "ai"
	DedupHeuristic DedupStrategy = "heuristic"
	DedupDisabled  DedupStrategy = "disabled"
)

type DedupStats struct {
	OriginalCount       int           `json:"original_count"`
	ConsolidatedCount   int           `json:"consolidated_count"`
	ReductionPercentage float64       `json:"reduction_percentage"`
	Strategy            DedupStrategy `json:"strategy"`
	Corrections         int           `json:"corrections"`
}

type DedupResult struct {
	Consolidated []ConsolidatedIssue `json:"consolidated"`
	MergeLog     []MergeEntry        `json:"merge_log"`
	Stats        DedupStats          `json:"stats"`
	Usage        JudgmentUsage       `json:"usage"`
}

type TopIssueSelection struct {
	Issues   []ConsolidatedIssue `json:"issues"`
	Strategy string              `json:"strategy"`
	Usage    JudgmentUsage       `json:"usage"`
}
