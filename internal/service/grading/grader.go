package grading

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"

	log "github.com/sirupsen/logrus"
)

// Input is everything the grading stages look at.
type Input struct {
	Business  models.BusinessContext
	Scores    map[models.Dimension]int
	Signals   models.BusinessSignals
	QuickWins int
	TopIssues []models.ConsolidatedIssue
}

const gradingSystemPrompt = `You grade small business websites against their industry. ` +
	`Propose dimension weights that reflect what matters most in this industry and a composite score. Answer with JSON only.`

const gradingSchema = `{"weights": {"design": 0.3, "seo": 0.3, "performance": 0.2, "content": 0.1, "accessibility": 0.05, "social": 0.05}, ` +
	`"score": 0-100, "rationale": "string"}`

type gradingAnswer struct {
	Weights   map[string]float64 `json:"weights"`
	Score     *float64           `json:"score"`
	Rationale string             `json:"rationale"`
}

// normalizedWeights validates the proposed weights and scales them to sum to 1.
func (a *gradingAnswer) normalizedWeights() (map[models.Dimension]float64, error) {
	known := map[models.Dimension]struct{}{}
	for _, d := range models.AllDimensions {
		known[d] = struct{}{}
	}
	weights := map[models.Dimension]float64{}
	var sum float64
	for k, w := range a.Weights {
		d := models.Dimension(strings.ToLower(strings.TrimSpace(k)))
		if _, ok := known[d]; !ok {
			return nil, errors.Errorf(`unknown dimension %q`, k)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.Errorf(`invalid weight %v for %s`, w, k)
		}
		weights[d] += w
		sum += w
	}
	if sum <= 0 {
		return nil, errors.New(`weights sum to zero`)
	}
	for _, d := range models.AllDimensions {
		weights[d] /= sum
	}
	return weights, nil
}

func validateGrading(a *gradingAnswer) error {
	if a.Score == nil || math.IsNaN(*a.Score) || *a.Score < 0 || *a.Score > 100 {
		return errors.New(`composite score missing or out of range`)
	}
	_, err := a.normalizedWeights()
	return err
}

type Grader struct {
	log   *log.Logger
	judge adaptors.JudgmentService
}

func NewGrader(log *log.Logger, judge adaptors.JudgmentService) *Grader {
	return &Grader{log: log, judge: judge}
}

// Grade uses the AI comparative strategy when aiEnabled and falls back to the
// deterministic weighted formula whenever that call fails or its answer is
// unusable. The fallback is reported as a GradingError next to a valid result.
func (g *Grader) Grade(ctx context.Context, in Input, aiEnabled bool) (*models.GradeResult, error) {
	if !aiEnabled {
		return Deterministic(in), nil
	}

	bench := MatchBenchmark(in.Business.Industry)
	req := adaptors.JudgmentRequest{
		Task:      judgment.TaskGrading,
		System:    gradingSystemPrompt,
		Prompt:    gradingPrompt(in, bench),
		Schema:    gradingSchema,
		MaxTokens: 1024,
	}
	res := judgment.Decode[gradingAnswer](ctx, g.judge, req, validateGrading)
	if !res.Ok() {
		err := errors.NewStageError(errors.KindGrading, res.Error(req.Task))
		g.log.WithContext(ctx).WithError(err).Warn(`ai grading failed, using deterministic weights`)
		out := Deterministic(in)
		out.Usage = res.Usage
		return out, err
	}

	weights, _ := res.Value.normalizedWeights()
	score := clamp(int(math.Round(*res.Value.Score)))
	out := &models.GradeResult{
		Score:     score,
		Letter:    models.LetterGrade(score),
		Weights:   weights,
		Scores:    in.Scores,
		Strategy:  models.GradingAIComparative,
		Benchmark: bench.Name,
		Rationale: res.Value.Rationale,
		Usage:     res.Usage,
	}
	g.log.WithContext(ctx).WithFields(log.Fields{
		`score`:     out.Score,
		`letter`:    out.Letter,
		`benchmark`: bench.Name,
	}).Info(`site graded`)
	return out, nil
}

func gradingPrompt(in Input, bench Benchmark) string {
	var b strings.Builder
	if in.Business.CompanyName != `` {
		fmt.Fprintf(&b, "Company: %s\n", in.Business.CompanyName)
	}
	fmt.Fprintf(&b, "Industry: %s (benchmark: %s)\n\n", in.Business.Industry, bench.Name)
	b.WriteString("Dimension scores (site / industry average):\n")
	dims := make([]string, 0, len(models.AllDimensions))
	for _, d := range models.AllDimensions {
		dims = append(dims, string(d))
	}
	sort.Strings(dims)
	for _, d := range dims {
		fmt.Fprintf(&b, "- %s: %d / %d\n", d, in.Scores[models.Dimension(d)], bench.Averages[models.Dimension(d)])
	}
	fmt.Fprintf(&b, "Top quartile composite in this industry: %d\n", bench.TopQuartile)
	fmt.Fprintf(&b, "HTTPS: %t, mobile friendly: %t, quick wins available: %d\n", in.Signals.HTTPS, in.Signals.MobileFriendly, in.QuickWins)
	if len(in.TopIssues) > 0 {
		b.WriteString("Most important issues:\n")
		for _, c := range in.TopIssues {
			fmt.Fprintf(&b, "- (%s) %s\n", c.Issue.Severity, c.Issue.Title)
		}
	}
	return b.String()
}
