package consolidation

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"
	"site_auditor/internal/pkg/judgment/judgmenttest"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

var severities = []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}

// fortyIssues spreads 40 distinct issues over the six modules.
func fortyIssues() []models.Issue {
	var issues []models.Issue
	counters := map[models.Module]int{}
	for i := 0; i < 40; i++ {
		m := models.AllModules[i%len(models.AllModules)]
		counters[m]++
		issues = append(issues, models.Issue{
			ID:          fmt.Sprintf(`%s-%03d`, m, counters[m]),
			Title:       fmt.Sprintf(`Distinct problem number %d`, i),
			Description: strings.Repeat(`x`, i),
			Severity:    severities[i%len(severities)],
			Module:      m,
		})
	}
	return issues
}

func assertPartition(t *testing.T, issues []models.Issue, res *models.DedupResult) {
	t.Helper()
	seen := map[string]int{}
	for _, c := range res.Consolidated {
		assert.Contains(t, c.SourceIDs, c.Issue.ID)
		for _, id := range c.SourceIDs {
			seen[id]++
		}
	}
	require.Len(t, seen, len(issues))
	for _, issue := range issues {
		assert.Equal(t, 1, seen[issue.ID], issue.ID)
	}
}

func TestDeduplicateAIPlan(t *testing.T) {
	issues := fortyIssues()

	// 18 pairs plus 4 singletons make 22 groups.
	var groups []string
	for i := 0; i < 36; i += 2 {
		groups = append(groups, fmt.Sprintf(`{"keep": %q, "merge": [%q], "rationale": "same root cause"}`, issues[i].ID, issues[i+1].ID))
	}
	for i := 36; i < 40; i++ {
		groups = append(groups, fmt.Sprintf(`{"keep": %q, "merge": []}`, issues[i].ID))
	}
	svc := judgmenttest.NewStub().On(judgment.TaskDeduplication, judgmenttest.Reply(`{"groups": [`+strings.Join(groups, `,`)+`]}`))

	res, err := NewDeduplicator(testLogger(), svc).Deduplicate(context.Background(), issues, RunContext{CompanyName: `Acme`, Score: 61}, true)
	require.NoError(t, err)

	assert.Equal(t, models.DedupAI, res.Stats.Strategy)
	assert.Equal(t, 40, res.Stats.OriginalCount)
	assert.Equal(t, 22, res.Stats.ConsolidatedCount)
	assert.InDelta(t, 45.0, res.Stats.ReductionPercentage, 0.01)
	assert.Equal(t, 0, res.Stats.Corrections)
	assert.Len(t, res.MergeLog, 18)
	assertPartition(t, issues, res)

	assert.Contains(t, svc.Requests(judgment.TaskDeduplication)[0].Prompt, `Current overall score: 61/100`)
}

func TestDeduplicateRepairsInvalidPlan(t *testing.T) {
	issues := fortyIssues()[:6]
	ids := func(i int) string { return issues[i].ID }
	plan := fmt.Sprintf(`{"groups": [
		{"keep": %q, "merge": [%q, "ghost-999"]},
		{"keep": %q, "merge": [%q]},
		{"keep": "nope", "merge": [%q, %q]}
	]}`, ids(0), ids(1), ids(2), ids(1), ids(3), ids(4))
	svc := judgmenttest.NewStub().On(judgment.TaskDeduplication, judgmenttest.Reply(plan))

	res, err := NewDeduplicator(testLogger(), svc).Deduplicate(context.Background(), issues, RunContext{}, true)
	require.NoError(t, err)

	assertPartition(t, issues, res)
	// ghost id, issue 1 claimed twice, invalid keep
	assert.Equal(t, 3, res.Stats.Corrections)

	byID := map[string][]string{}
	for _, c := range res.Consolidated {
		byID[c.Issue.ID] = c.SourceIDs
	}
	assert.Equal(t, []string{ids(1)}, byID[ids(1)])
	assert.Equal(t, []string{ids(0)}, byID[ids(0)])
	assert.Equal(t, []string{ids(2)}, byID[ids(2)])
	// issue 3 is critical, issue 4 is low
	assert.Equal(t, []string{ids(3), ids(4)}, byID[ids(3)])
	assert.Equal(t, 5, res.Stats.ConsolidatedCount)
}

func TestDeduplicateFallsBackToHeuristic(t *testing.T) {
	issues := []models.Issue{
		{ID: `accessibility-001`, Title: `Images missing alt text`, Severity: models.SeverityMedium, Module: models.ModuleAccessibility},
		{ID: `seo-001`, Title: `Slow Page Load!`, Severity: models.SeverityMedium, Module: models.ModuleSEO},
		{ID: `accessibility-002`, Title: `Missing alt text on images`, Severity: models.SeverityMedium, Module: models.ModuleAccessibility, Description: `longer description`},
		{ID: `performance-001`, Title: `Slow page load`, Severity: models.SeverityHigh, Module: models.ModulePerformance},
		{ID: `content-001`, Title: `Missing alt text on images`, Severity: models.SeverityLow, Module: models.ModuleContent},
		{ID: `visual-001`, Title: `Cluttered hero section`, Severity: models.SeverityHigh, Module: models.ModuleVisual},
	}
	svc := judgmenttest.NewStub().On(judgment.TaskDeduplication, judgmenttest.Fail(errors.JudgmentTimeout))

	res, err := NewDeduplicator(testLogger(), svc).Deduplicate(context.Background(), issues, RunContext{}, true)

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConsolidation))
	assert.Equal(t, models.DedupHeuristic, res.Stats.Strategy)
	assertPartition(t, issues, res)
	require.Len(t, res.Consolidated, 3)

	assert.Equal(t, `accessibility-002`, res.Consolidated[0].Issue.ID)
	assert.Equal(t, []string{`accessibility-001`, `accessibility-002`, `content-001`}, res.Consolidated[0].SourceIDs)
	assert.Equal(t, `performance-001`, res.Consolidated[1].Issue.ID)
	assert.Equal(t, []string{`seo-001`, `performance-001`}, res.Consolidated[1].SourceIDs)
	assert.Equal(t, `visual-001`, res.Consolidated[2].Issue.ID)
	assert.InDelta(t, 50.0, res.Stats.ReductionPercentage, 0.01)
}

func TestHeuristicIsIdempotent(t *testing.T) {
	titles := []string{
		`Missing meta description`, `missing META description`, `Meta description missing`,
		`No clear call to action`, `Unclear call to action`, `Call to action unclear`,
		`Slow page load`, `Broken contact form`, `Low contrast text`, `Low colour contrast text`,
	}
	var issues []models.Issue
	for i, title := range titles {
		issues = append(issues, models.Issue{
			ID:       fmt.Sprintf(`i-%02d`, i),
			Title:    title,
			Severity: models.SeverityMedium,
			Module:   models.ModuleContent,
		})
	}

	first := HeuristicDeduplicate(issues, models.JudgmentUsage{})
	assertPartition(t, issues, first)
	assert.Less(t, first.Stats.ConsolidatedCount, len(issues))

	var kept []models.Issue
	for _, c := range first.Consolidated {
		kept = append(kept, c.Issue)
	}
	second := HeuristicDeduplicate(kept, models.JudgmentUsage{})
	assert.Equal(t, first.Stats.ConsolidatedCount, second.Stats.ConsolidatedCount)
	assert.Empty(t, second.MergeLog)
}

func TestDeduplicateDisabled(t *testing.T) {
	issues := fortyIssues()[:5]
	svc := judgmenttest.NewStub()

	res, err := NewDeduplicator(testLogger(), svc).Deduplicate(context.Background(), issues, RunContext{}, false)

	require.NoError(t, err)
	assert.Equal(t, models.DedupDisabled, res.Stats.Strategy)
	assert.Equal(t, 5, res.Stats.ConsolidatedCount)
	assert.Equal(t, 0.0, res.Stats.ReductionPercentage)
	assert.Equal(t, 0, svc.Calls(judgment.TaskDeduplication))
	assertPartition(t, issues, res)
}

func consolidatedOf(issues ...models.Issue) []models.ConsolidatedIssue {
	var out []models.ConsolidatedIssue
	for _, i := range issues {
		out = append(out, models.ConsolidatedIssue{Issue: i, SourceIDs: []string{i.ID}})
	}
	return out
}

func issue(id string, m models.Module, s models.Severity) models.Issue {
	return models.Issue{ID: id, Title: id, Module: m, Severity: s}
}

func TestSelectTopPrefersSeverityThenDiversity(t *testing.T) {
	in := consolidatedOf(
		issue(`v1`, models.ModuleVisual, models.SeverityCritical),
		issue(`v2`, models.ModuleVisual, models.SeverityCritical),
		issue(`v3`, models.ModuleVisual, models.SeverityCritical),
		issue(`s1`, models.ModuleSEO, models.SeverityCritical),
		issue(`c1`, models.ModuleContent, models.SeverityLow),
		issue(`a1`, models.ModuleAccessibility, models.SeverityHigh),
		issue(`v4`, models.ModuleVisual, models.SeverityHigh),
	)
	svc := judgmenttest.NewStub().On(judgment.TaskTopIssues, judgmenttest.Reply(`{"ranking": ["v3", "s1", "v1", "unknown"]}`))

	top, err := NewTopSelector(testLogger(), svc).SelectTop(context.Background(), in, RunContext{}, 5)
	require.NoError(t, err)

	var ids []string
	for _, c := range top.Issues {
		ids = append(ids, c.Issue.ID)
	}
	assert.Equal(t, []string{`v3`, `s1`, `v1`, `v2`, `a1`}, ids)
	assert.Equal(t, TopStrategyAI, top.Strategy)
}

func TestSelectTopFallsBackToInputOrder(t *testing.T) {
	in := consolidatedOf(
		issue(`v1`, models.ModuleVisual, models.SeverityHigh),
		issue(`v2`, models.ModuleVisual, models.SeverityHigh),
		issue(`s1`, models.ModuleSEO, models.SeverityHigh),
	)
	svc := judgmenttest.NewStub().On(judgment.TaskTopIssues, judgmenttest.Reply(`{"ranking": ["zzz"]}`))

	top, err := NewTopSelector(testLogger(), svc).SelectTop(context.Background(), in, RunContext{}, 2)

	require.Error(t, err)
	assert.Equal(t, TopStrategySeverity, top.Strategy)
	require.Len(t, top.Issues, 2)
	assert.Equal(t, `v1`, top.Issues[0].Issue.ID)
	assert.Equal(t, `s1`, top.Issues[1].Issue.ID)
}

func TestSelectTopLength(t *testing.T) {
	all := fortyIssues()
	svc := judgmenttest.NewStub()
	sel := NewTopSelector(testLogger(), svc)

	for _, n := range []int{0, 1, 3, 5, 12} {
		in := consolidatedOf(all[:n]...)
		for _, limit := range []int{1, 5, 10} {
			top, _ := sel.SelectTop(context.Background(), in, RunContext{}, limit)
			want := limit
			if n < limit {
				want = n
			}
			assert.Len(t, top.Issues, want, `n=%d limit=%d`, n, limit)

			ranks := make([]int, 0, len(top.Issues))
			for _, c := range top.Issues {
				ranks = append(ranks, c.Issue.Severity.Rank())
			}
			assert.True(t, sort.SliceIsSorted(ranks, func(a, b int) bool { return ranks[a] > ranks[b] }))
		}
	}
}
