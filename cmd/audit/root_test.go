package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/service"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	record *models.AnalysisRecord
	err    error

	gotURL  string
	gotBiz  models.BusinessContext
	gotOpts models.Options
}

func (f *fakeAnalyzer) Analyze(_ context.Context, rawURL string, biz models.BusinessContext, opts models.Options) (*models.AnalysisRecord, error) {
	f.gotURL, f.gotBiz, f.gotOpts = rawURL, biz, opts
	return f.record, f.err
}

func (f *fakeAnalyzer) Record(_ context.Context, id string) (*models.AnalysisRecord, error) {
	if f.record == nil || f.record.ID != id {
		return nil, adaptors.ErrNotFound
	}
	return f.record, nil
}

func backendFor(a service.SiteAnalyzer) backend {
	return func(context.Context, *log.Logger) (service.SiteAnalyzer, models.Options, func(), error) {
		return a, models.DefaultOptions(), func() {}, nil
	}
}

func sampleRecord() *models.AnalysisRecord {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	issue := models.ConsolidatedIssue{Issue: models.Issue{ID: "seo-1", Title: "Missing meta description", Severity: models.SeverityHigh, QuickWin: true}}
	return &models.AnalysisRecord{
		ID:        "run-1",
		URL:       "https://example.com/",
		Scores:    map[models.Dimension]int{models.DimensionDesign: 50, models.DimensionSEO: 72},
		Results:   map[models.Module]*models.AnalyzerResult{models.ModuleVisual: models.DegradedResult(models.ModuleVisual, "timeout")},
		Grade:     models.GradeResult{Score: 72, Letter: "B", Strategy: models.GradingDeterministicWeighted},
		Lead:      models.LeadScore{Tier: models.LeadWarm, Priority: 64},
		TopIssues: models.TopIssueSelection{Issues: []models.ConsolidatedIssue{issue}},
		Critique:  models.Critique{Summary: "Acme scores 72/100 (grade B)."},
		Phases: []models.Phase{
			{Name: "grading", Status: models.PhaseOK},
			{Name: "analysis", Status: models.PhaseDegraded},
		},
		Persistence: models.PersistenceStatus{Saved: true},
		StartedAt:   start,
		CompletedAt: start.Add(42 * time.Second),
	}
}

func execute(t *testing.T, b backend, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	var out, errOut bytes.Buffer
	cmd := newRootCmd(b)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestAnalyzePrintsSummary(t *testing.T) {
	fake := &fakeAnalyzer{record: sampleRecord()}

	out, _, err := execute(t, backendFor(fake), "analyze", "example.com",
		"--company", "Acme", "--industry", "plumbing", "--years", "12", "--no-ai-grading", "--top", "3")
	require.NoError(t, err)

	assert.Equal(t, "example.com", fake.gotURL)
	assert.Equal(t, "Acme", fake.gotBiz.CompanyName)
	require.NotNil(t, fake.gotBiz.YearsInBusiness)
	assert.Equal(t, 12, *fake.gotBiz.YearsInBusiness)
	assert.False(t, fake.gotOpts.EnableAIGrading)
	assert.True(t, fake.gotOpts.EnableDeduplication)
	assert.Equal(t, 3, fake.gotOpts.TopIssueLimit)

	assert.Contains(t, out, "B (72/100)")
	assert.Contains(t, out, "WARM (priority 64)")
	assert.Contains(t, out, "[high] Missing meta description quick win")
	assert.Contains(t, out, "degraded: analysis")
	assert.Regexp(t, `design\s+50  degraded`, out)
	assert.Contains(t, out, "42s")
}

func TestAnalyzeWithoutYearsLeavesThemUnset(t *testing.T) {
	fake := &fakeAnalyzer{record: sampleRecord()}

	_, _, err := execute(t, backendFor(fake), "analyze", "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, fake.gotBiz.YearsInBusiness)
	assert.True(t, fake.gotOpts.EnableAIGrading)
}

func TestAnalyzeReportsPipelineError(t *testing.T) {
	fake := &fakeAnalyzer{err: errors.NewPipelineError(errors.ReasonNoPagesCrawled, nil)}

	out, errOut, err := execute(t, backendFor(fake), "analyze", "https://down.example")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "analysis stopped: no pages crawled")
}

func TestAnalyzeJSONStillPrintsUnsavedRecord(t *testing.T) {
	rec := sampleRecord()
	rec.Persistence = models.PersistenceStatus{Saved: false, Error: "db down"}
	fake := &fakeAnalyzer{record: rec, err: errors.New("db down")}

	out, errOut, err := execute(t, backendFor(fake), "analyze", "https://example.com", "--json")
	require.Error(t, err)
	assert.Contains(t, errOut, "db down")

	var got models.AnalysisRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "run-1", got.ID)
	assert.False(t, got.Persistence.Saved)
}

func TestShowCommand(t *testing.T) {
	fake := &fakeAnalyzer{record: sampleRecord()}

	out, _, err := execute(t, backendFor(fake), "show", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/")

	_, errOut, err := execute(t, backendFor(fake), "show", "nope")
	require.ErrorIs(t, err, adaptors.ErrNotFound)
	assert.Contains(t, errOut, "not found")
}

func TestRejectsBadLogLevel(t *testing.T) {
	_, _, err := execute(t, backendFor(&fakeAnalyzer{}), "--log-level", "loud", "show", "x")
	require.Error(t, err)
}
