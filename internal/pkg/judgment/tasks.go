package judgment

// Task names identify the caller of a judgment request in logs, metrics and caches.
const (
	TaskPageSelection = `page-selection`
	TaskDeduplication = `deduplication`
	TaskTopIssues     = `top-issues`
	TaskGrading       = `grading`
	TaskLeadScoring   = `lead-scoring`
	TaskCritique      = `critique`
)

// AnalyzerTask names the judgment task of one analyzer module.
func AnalyzerTask(module string) string {
	return `analyzer-` + module
}
