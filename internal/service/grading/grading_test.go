package grading

import (
	"context"
	"io"
	"testing"
	"time"

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

func sampleScores() map[models.Dimension]int {
	return map[models.Dimension]int{
		models.DimensionDesign:        80,
		models.DimensionSEO:           70,
		models.DimensionPerformance:   60,
		models.DimensionContent:       50,
		models.DimensionAccessibility: 40,
		models.DimensionSocial:        40,
	}
}

func sumWeights(w map[models.Dimension]float64) float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

func TestDimensionScores(t *testing.T) {
	results := map[models.Module]*models.AnalyzerResult{
		models.ModuleVisual:      {Module: models.ModuleVisual, Score: 81.6},
		models.ModuleSEO:         models.DegradedResult(models.ModuleSEO, `timeout`),
		models.ModulePerformance: {Module: models.ModulePerformance, Score: 140},
	}
	scores := DimensionScores(results)

	assert.Equal(t, 82, scores[models.DimensionDesign])
	assert.Equal(t, 50, scores[models.DimensionSEO])
	assert.Equal(t, 100, scores[models.DimensionPerformance])
	assert.Equal(t, 50, scores[models.DimensionSocial])
	assert.Len(t, scores, len(models.AllDimensions))
}

func TestDeterministic(t *testing.T) {
	t.Run("bonuses", func(t *testing.T) {
		res := Deterministic(Input{
			Scores:  sampleScores(),
			Signals: models.BusinessSignals{HTTPS: true, MobileFriendly: true},
		})
		assert.Equal(t, 71, res.Score)
		assert.Equal(t, `B`, res.Letter)
		assert.Equal(t, models.GradingDeterministicWeighted, res.Strategy)
		assert.InDelta(t, 1.0, sumWeights(res.Weights), 1e-9)
		assert.Len(t, res.Bonuses, 2)
		assert.Empty(t, res.Penalties)
	})

	t.Run("penalties are capped", func(t *testing.T) {
		scores := map[models.Dimension]int{}
		for _, d := range models.AllDimensions {
			scores[d] = 50
		}
		res := Deterministic(Input{Scores: scores, QuickWins: 10})
		require.Len(t, res.Penalties, 3)
		assert.Equal(t, -5.0, res.Penalties[2].Points)
		assert.Equal(t, 37, res.Score)
		assert.Equal(t, `F`, res.Letter)
	})

	t.Run("score stays in range", func(t *testing.T) {
		scores := map[models.Dimension]int{}
		for _, d := range models.AllDimensions {
			scores[d] = 100
		}
		res := Deterministic(Input{Scores: scores, Signals: models.BusinessSignals{HTTPS: true, MobileFriendly: true}})
		assert.Equal(t, 100, res.Score)
		assert.Equal(t, `A`, res.Letter)
	})
}

func TestGraderAIComparative(t *testing.T) {
	stub := judgmenttest.NewStub().On(judgment.TaskGrading, judgmenttest.Reply(
		`{"weights": {"design": 3, "seo": 3, "performance": 2, "content": 1, "accessibility": 0.5, "social": 0.5}, "score": 77, "rationale": "above average for plumbers"}`))
	g := NewGrader(testLogger(), stub)

	res, err := g.Grade(context.Background(), Input{
		Business: models.BusinessContext{Industry: `Plumbing`},
		Scores:   sampleScores(),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, models.GradingAIComparative, res.Strategy)
	assert.Equal(t, 77, res.Score)
	assert.Equal(t, `B`, res.Letter)
	assert.Equal(t, `home services`, res.Benchmark)
	assert.InDelta(t, 0.3, res.Weights[models.DimensionDesign], 1e-9)
	assert.InDelta(t, 1.0, sumWeights(res.Weights), 1e-9)
	assert.Equal(t, `stub`, res.Usage.Model)
}

func TestGraderFallsBackOnTimeout(t *testing.T) {
	stub := judgmenttest.NewStub().On(judgment.TaskGrading, judgmenttest.Fail(errors.JudgmentTimeout))
	g := NewGrader(testLogger(), stub)

	in := Input{Scores: sampleScores(), Signals: models.BusinessSignals{HTTPS: true, MobileFriendly: true}}
	res, err := g.Grade(context.Background(), in, true)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindGrading))

	var je *errors.JudgmentError
	require.True(t, errors.As(err, &je))
	assert.Equal(t, errors.JudgmentTimeout, je.Kind)

	require.NotNil(t, res)
	assert.Equal(t, models.GradingDeterministicWeighted, res.Strategy)
	assert.InDelta(t, 1.0, sumWeights(res.Weights), 1e-9)
	assert.Equal(t, Deterministic(in).Score, res.Score)
	assert.GreaterOrEqual(t, res.Score, 0)
	assert.LessOrEqual(t, res.Score, 100)
}

func TestGraderRejectsUnusableAnswers(t *testing.T) {
	answers := []string{
		`{"weights": {"design": 1}, "rationale": "no score"}`,
		`{"weights": {"design": 1}, "score": 140}`,
		`{"weights": {"design": -1, "seo": 2}, "score": 60}`,
		`{"weights": {"colour": 1}, "score": 60}`,
		`{"weights": {}, "score": 60}`,
		`not json`,
	}
	for _, raw := range answers {
		stub := judgmenttest.NewStub().On(judgment.TaskGrading, judgmenttest.Reply(raw))
		res, err := NewGrader(testLogger(), stub).Grade(context.Background(), Input{Scores: sampleScores()}, true)
		require.Error(t, err, raw)
		assert.Equal(t, models.GradingDeterministicWeighted, res.Strategy, raw)
	}
}

func TestGraderDisabled(t *testing.T) {
	stub := judgmenttest.NewStub()
	res, err := NewGrader(testLogger(), stub).Grade(context.Background(), Input{Scores: sampleScores()}, false)
	require.NoError(t, err)
	assert.Equal(t, models.GradingDeterministicWeighted, res.Strategy)
	assert.Zero(t, stub.Calls(judgment.TaskGrading))
}

func TestMatchBenchmark(t *testing.T) {
	assert.Equal(t, `home services`, MatchBenchmark(`HVAC repair`).Name)
	assert.Equal(t, genericBenchmark.Name, MatchBenchmark(``).Name)
	assert.Equal(t, genericBenchmark.Name, MatchBenchmark(`underwater basket weaving`).Name)
}

const signalsPage = `<html><head><meta name="viewport" content="width=device-width"></head><body>
<nav><a href="/pricing">Pricing</a></nav>
<h1>Ace Plumbing</h1>
<p>Family owned since 2016. Drain cleaning from $99.</p>
<a href="tel:+15551234567">Call us</a>
<iframe src="https://www.youtube.com/embed/abc"></iframe>
</body></html>`

func TestExtractSignals(t *testing.T) {
	defer func(orig func() time.Time) { now = orig }(now)
	now = func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }

	crawl := &models.CrawlResult{Pages: []models.CrawledPage{
		{
			Path:     `/`,
			Success:  true,
			HTML:     signalsPage,
			Metadata: models.CaptureMetadata{HasViewportMeta: true, FinalURL: `https://ace.example/`},
		},
		{Path: `/gone`, Success: false},
	}}
	sig := ExtractSignals(`https://ace.example/`, crawl, models.BusinessContext{})

	require.NotNil(t, sig.YearsInBusiness)
	assert.Equal(t, 10, *sig.YearsInBusiness)
	assert.True(t, sig.PricingVisible)
	assert.True(t, sig.DecisionMakerReachable)
	assert.True(t, sig.HTTPS)
	assert.True(t, sig.MobileFriendly)
	assert.Equal(t, 1, sig.PageCount)
	assert.Equal(t, []string{`video`}, sig.PremiumFeatures)
}

func TestExtractSignalsPrefersBusinessContext(t *testing.T) {
	years := 3
	crawl := &models.CrawlResult{Pages: []models.CrawledPage{
		{Path: `/`, Success: true, HTML: `<body>Established 1990. <a href="mailto:info@x.example">mail</a></body>`},
	}}
	sig := ExtractSignals(`http://x.example/`, crawl, models.BusinessContext{YearsInBusiness: &years})

	assert.Equal(t, 3, *sig.YearsInBusiness)
	assert.False(t, sig.DecisionMakerReachable)
	assert.False(t, sig.HTTPS)
	assert.False(t, sig.MobileFriendly)
	assert.False(t, sig.PricingVisible)
}

func leadInput() LeadInput {
	years := 10
	return LeadInput{
		Business: models.BusinessContext{CompanyName: `Ace`, Industry: `plumbing`},
		Signals: models.BusinessSignals{
			YearsInBusiness:        &years,
			PricingVisible:         true,
			DecisionMakerReachable: true,
			PremiumFeatures:        []string{`video`},
			HTTPS:                  true,
			PageCount:              5,
		},
		Grade: models.GradeResult{Score: 40, Letter: `D`},
		TopIssues: []models.ConsolidatedIssue{
			{Issue: models.Issue{Title: `Broken contact form`, Severity: models.SeverityCritical}},
			{Issue: models.Issue{Title: `Missing meta descriptions`, Severity: models.SeverityHigh}},
		},
	}
}

func TestDeterministicLead(t *testing.T) {
	lead := DeterministicLead(leadInput())

	require.NotNil(t, lead.Dimensions)
	assert.Equal(t, models.LeadDimensions{Pain: 60, Budget: 60, Urgency: 50, Fit: 70, Size: 80, Engagement: 80}, *lead.Dimensions)
	assert.Equal(t, 64, lead.Priority)
	assert.Equal(t, models.LeadWarm, lead.Tier)
	assert.Equal(t, LeadStrategyDeterministic, lead.Strategy)
	assert.Contains(t, lead.Reasoning, `10 years in business`)
}

func TestLeadScorer(t *testing.T) {
	t.Run("ai", func(t *testing.T) {
		stub := judgmenttest.NewStub().On(judgment.TaskLeadScoring, judgmenttest.Reply(
			`{"pain": 90, "budget": 70, "urgency": 80, "fit": 80, "size": 60, "engagement": 70, "reasoning": "weak site, healthy business"}`))
		lead, err := NewLeadScorer(testLogger(), stub).Score(context.Background(), leadInput(), true)
		require.NoError(t, err)
		assert.Equal(t, LeadStrategyAI, lead.Strategy)
		assert.Equal(t, 78, lead.Priority)
		assert.Equal(t, models.LeadHot, lead.Tier)
	})

	t.Run("invalid answer falls back", func(t *testing.T) {
		stub := judgmenttest.NewStub().On(judgment.TaskLeadScoring, judgmenttest.Reply(`{"pain": 190}`))
		lead, err := NewLeadScorer(testLogger(), stub).Score(context.Background(), leadInput(), true)
		require.Error(t, err)
		assert.Equal(t, LeadStrategyDeterministic, lead.Strategy)
		assert.Equal(t, 64, lead.Priority)
	})
}

func TestCritic(t *testing.T) {
	in := CritiqueInput{
		Business:  models.BusinessContext{CompanyName: `Ace`},
		Grade:     models.GradeResult{Score: 62, Letter: `C`, Scores: sampleScores()},
		TopIssues: leadInput().TopIssues,
		Results: map[models.Module]*models.AnalyzerResult{
			models.ModuleSocial: models.DegradedResult(models.ModuleSocial, `timeout`),
		},
	}

	t.Run("ai", func(t *testing.T) {
		stub := judgmenttest.NewStub().On(judgment.TaskCritique, judgmenttest.Reply(
			"```json\n{\"summary\": \"Solid base, weak SEO.\", \"dimensions\": {\"seo\": \"Add descriptions.\", \"mood\": \"ignored\"}}\n```"))
		c, err := NewCritic(testLogger(), stub).Critique(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, CritiqueStrategyAI, c.Strategy)
		assert.Equal(t, `Solid base, weak SEO.`, c.Summary)
		assert.Equal(t, map[models.Dimension]string{models.DimensionSEO: `Add descriptions.`}, c.Dimensions)
	})

	t.Run("template fallback", func(t *testing.T) {
		stub := judgmenttest.NewStub().On(judgment.TaskCritique, judgmenttest.Reply(`{"summary": "  "}`))
		c, err := NewCritic(testLogger(), stub).Critique(context.Background(), in)
		require.Error(t, err)
		assert.Equal(t, CritiqueStrategyTemplate, c.Strategy)
		assert.Contains(t, c.Summary, `Ace scores 62/100 (grade C).`)
		assert.Contains(t, c.Summary, `broken contact form`)
		assert.Contains(t, c.Dimensions[models.DimensionSocial], `could not be assessed`)
		assert.Contains(t, c.Dimensions[models.DimensionDesign], `strong`)
	})
}
