package grading

import (
	"context"
	"fmt"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"

	log "github.com/sirupsen/logrus"
)

const (
	CritiqueStrategyAI       = `ai`
	CritiqueStrategyTemplate = `template`
)

const critiqueSystemPrompt = `You write short website critiques for small business owners. ` +
	`Be specific and constructive. Answer with JSON only.`

const critiqueSchema = `{"summary": "2-4 sentences", "dimensions": {"design": "one sentence", "seo": "...", "performance": "...", "content": "...", "accessibility": "...", "social": "..."}}`

type CritiqueInput struct {
	Business  models.BusinessContext
	Grade     models.GradeResult
	TopIssues []models.ConsolidatedIssue
	Results   map[models.Module]*models.AnalyzerResult
}

type critiqueAnswer struct {
	Summary    string            `json:"summary"`
	Dimensions map[string]string `json:"dimensions"`
}

type Critic struct {
	log   *log.Logger
	judge adaptors.JudgmentService
}

func NewCritic(log *log.Logger, judge adaptors.JudgmentService) *Critic {
	return &Critic{log: log, judge: judge}
}

// Critique writes the report summary. A failed AI call falls back to a template
// built from the grade and the top issues.
func (c *Critic) Critique(ctx context.Context, in CritiqueInput) (*models.Critique, error) {
	req := adaptors.JudgmentRequest{
		Task:      judgment.TaskCritique,
		System:    critiqueSystemPrompt,
		Prompt:    critiquePrompt(in),
		Schema:    critiqueSchema,
		MaxTokens: 1024,
	}
	res := judgment.Decode[critiqueAnswer](ctx, c.judge, req, func(a *critiqueAnswer) error {
		a.Summary = strings.TrimSpace(a.Summary)
		if a.Summary == `` {
			return errors.New(`critique summary is empty`)
		}
		return nil
	})
	if !res.Ok() {
		err := errors.NewStageError(errors.KindGrading, res.Error(req.Task))
		c.log.WithContext(ctx).WithError(err).Warn(`ai critique failed, using template`)
		out := TemplateCritique(in)
		out.Usage = res.Usage
		return out, err
	}

	dims := map[models.Dimension]string{}
	for _, d := range models.AllDimensions {
		if note := strings.TrimSpace(res.Value.Dimensions[string(d)]); note != `` {
			dims[d] = note
		}
	}
	return &models.Critique{
		Summary:    res.Value.Summary,
		Dimensions: dims,
		Strategy:   CritiqueStrategyAI,
		Usage:      res.Usage,
	}, nil
}

func TemplateCritique(in CritiqueInput) *models.Critique {
	var b strings.Builder
	name := in.Business.CompanyName
	if name == `` {
		name = `This site`
	}
	fmt.Fprintf(&b, `%s scores %d/100 (grade %s).`, name, in.Grade.Score, in.Grade.Letter)
	if len(in.TopIssues) > 0 {
		titles := make([]string, 0, len(in.TopIssues))
		for _, t := range in.TopIssues {
			titles = append(titles, strings.ToLower(t.Issue.Title))
		}
		fmt.Fprintf(&b, ` The most important fixes are: %s.`, strings.Join(titles, `; `))
	}

	dims := map[models.Dimension]string{}
	for _, d := range models.AllDimensions {
		score, ok := in.Grade.Scores[d]
		if !ok {
			continue
		}
		dims[d] = fmt.Sprintf(`%s scores %d/100 (%s).`, d, score, band(score))
	}
	for m, r := range in.Results {
		if r != nil && r.Degraded {
			dims[models.DimensionOf(m)] = fmt.Sprintf(`%s could not be assessed and was scored neutrally.`, models.DimensionOf(m))
		}
	}
	return &models.Critique{
		Summary:    b.String(),
		Dimensions: dims,
		Strategy:   CritiqueStrategyTemplate,
	}
}

func band(score int) string {
	switch {
	case score >= 80:
		return `strong`
	case score >= 60:
		return `adequate`
	case score >= 40:
		return `needs work`
	default:
		return `poor`
	}
}

func critiquePrompt(in CritiqueInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nIndustry: %s\nGrade: %s (%d/100)\n\nDimension scores:\n",
		in.Business.CompanyName, in.Business.Industry, in.Grade.Letter, in.Grade.Score)
	for _, d := range models.AllDimensions {
		fmt.Fprintf(&b, "- %s: %d\n", d, in.Grade.Scores[d])
	}
	for _, m := range models.AllModules {
		if r := in.Results[m]; r != nil && r.Summary != `` {
			fmt.Fprintf(&b, "\n%s notes: %s\n", m, r.Summary)
		}
	}
	if len(in.TopIssues) > 0 {
		b.WriteString("\nTop issues:\n")
		for _, c := range in.TopIssues {
			fmt.Fprintf(&b, "- (%s) %s: %s\n", c.Issue.Severity, c.Issue.Title, c.Issue.Description)
		}
	}
	return b.String()
}
