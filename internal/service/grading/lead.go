package grading

import (
	"context"
	"fmt"
	"math"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"

	log "github.com/sirupsen/logrus"
)

const (
	LeadStrategyAI            = `ai`
	LeadStrategyDeterministic = `deterministic`
)

// Lead dimension weights. They sum to 1.
const (
	painWeight       = 0.30
	budgetWeight     = 0.20
	urgencyWeight    = 0.15
	fitWeight        = 0.15
	sizeWeight       = 0.10
	engagementWeight = 0.10
)

const leadSystemPrompt = `You qualify sales leads for a web design agency. ` +
	`Rate how promising this business is as a client on each dimension from 0 to 100 and answer with JSON only.`

const leadSchema = `{"pain": 0-100, "budget": 0-100, "urgency": 0-100, "fit": 0-100, "size": 0-100, "engagement": 0-100, "reasoning": "string"}`

// LeadInput is what lead scoring looks at.
type LeadInput struct {
	Business  models.BusinessContext
	Signals   models.BusinessSignals
	Grade     models.GradeResult
	TopIssues []models.ConsolidatedIssue
}

type leadAnswer struct {
	Pain       *int   `json:"pain"`
	Budget     *int   `json:"budget"`
	Urgency    *int   `json:"urgency"`
	Fit        *int   `json:"fit"`
	Size       *int   `json:"size"`
	Engagement *int   `json:"engagement"`
	Reasoning  string `json:"reasoning"`
}

func validateLead(a *leadAnswer) error {
	fields := map[string]*int{
		`pain`: a.Pain, `budget`: a.Budget, `urgency`: a.Urgency,
		`fit`: a.Fit, `size`: a.Size, `engagement`: a.Engagement,
	}
	for name, v := range fields {
		if v == nil || *v < 0 || *v > 100 {
			return errors.Errorf(`lead dimension %s missing or out of range`, name)
		}
	}
	return nil
}

type LeadScorer struct {
	log   *log.Logger
	judge adaptors.JudgmentService
}

func NewLeadScorer(log *log.Logger, judge adaptors.JudgmentService) *LeadScorer {
	return &LeadScorer{log: log, judge: judge}
}

// Score rates the business as a sales lead. Without AI, or when the AI answer is
// unusable, the deterministic formula is used; in the latter case a GradingError
// is returned next to the result.
func (l *LeadScorer) Score(ctx context.Context, in LeadInput, aiEnabled bool) (*models.LeadScore, error) {
	if !aiEnabled {
		return DeterministicLead(in), nil
	}

	req := adaptors.JudgmentRequest{
		Task:      judgment.TaskLeadScoring,
		System:    leadSystemPrompt,
		Prompt:    leadPrompt(in),
		Schema:    leadSchema,
		MaxTokens: 768,
	}
	res := judgment.Decode[leadAnswer](ctx, l.judge, req, validateLead)
	if !res.Ok() {
		err := errors.NewStageError(errors.KindGrading, res.Error(req.Task))
		l.log.WithContext(ctx).WithError(err).Warn(`ai lead scoring failed, using deterministic formula`)
		out := DeterministicLead(in)
		out.Usage = res.Usage
		return out, err
	}

	a := res.Value
	dims := models.LeadDimensions{
		Pain: *a.Pain, Budget: *a.Budget, Urgency: *a.Urgency,
		Fit: *a.Fit, Size: *a.Size, Engagement: *a.Engagement,
	}
	priority := leadPriority(dims)
	return &models.LeadScore{
		Tier:       models.TierFor(priority),
		Priority:   priority,
		Dimensions: &dims,
		Reasoning:  a.Reasoning,
		Strategy:   LeadStrategyAI,
		Usage:      res.Usage,
	}, nil
}

// DeterministicLead scores the lead from the grade, the top issues and the page
// signals alone.
func DeterministicLead(in LeadInput) *models.LeadScore {
	dims := models.LeadDimensions{
		Pain:       clamp(100 - in.Grade.Score),
		Budget:     budgetScore(in.Signals),
		Urgency:    urgencyScore(in.TopIssues),
		Fit:        fitScore(in.Business, in.Grade),
		Size:       sizeScore(in.Signals),
		Engagement: 40,
	}
	if in.Signals.DecisionMakerReachable {
		dims.Engagement = 80
	}
	priority := leadPriority(dims)
	return &models.LeadScore{
		Tier:       models.TierFor(priority),
		Priority:   priority,
		Dimensions: &dims,
		Reasoning:  leadReasoning(dims, in),
		Strategy:   LeadStrategyDeterministic,
	}
}

func leadPriority(d models.LeadDimensions) int {
	v := painWeight*float64(d.Pain) +
		budgetWeight*float64(d.Budget) +
		urgencyWeight*float64(d.Urgency) +
		fitWeight*float64(d.Fit) +
		sizeWeight*float64(d.Size) +
		engagementWeight*float64(d.Engagement)
	return clamp(int(math.Round(v)))
}

func budgetScore(s models.BusinessSignals) int {
	v := 30 + 15*len(s.PremiumFeatures)
	if s.PricingVisible {
		v += 10
	}
	if s.HTTPS {
		v += 5
	}
	return clamp(v)
}

func urgencyScore(top []models.ConsolidatedIssue) int {
	v := 20
	for _, c := range top {
		switch c.Issue.Severity {
		case models.SeverityCritical:
			v += 20
		case models.SeverityHigh:
			v += 10
		}
	}
	return clamp(v)
}

// fitScore favors businesses in a benchmarked industry whose site is not already
// strong.
func fitScore(biz models.BusinessContext, grade models.GradeResult) int {
	v := 50
	if MatchBenchmark(biz.Industry).Name != genericBenchmark.Name {
		v += 20
	}
	if grade.Score >= 85 {
		v -= 30
	}
	return clamp(v)
}

func sizeScore(s models.BusinessSignals) int {
	v := 20 + 8*s.PageCount
	if s.YearsInBusiness != nil {
		v += min(*s.YearsInBusiness, 20) * 2
	}
	return clamp(v)
}

func leadReasoning(d models.LeadDimensions, in LeadInput) string {
	var parts []string
	parts = append(parts, fmt.Sprintf(`site grade %s (%d)`, in.Grade.Letter, in.Grade.Score))
	if d.Urgency >= 60 {
		parts = append(parts, `several severe issues`)
	}
	if len(in.Signals.PremiumFeatures) > 0 {
		parts = append(parts, `invests in `+strings.Join(in.Signals.PremiumFeatures, `, `))
	}
	if in.Signals.DecisionMakerReachable {
		parts = append(parts, `decision maker reachable`)
	}
	if in.Signals.YearsInBusiness != nil {
		parts = append(parts, fmt.Sprintf(`%d years in business`, *in.Signals.YearsInBusiness))
	}
	return strings.Join(parts, `; `)
}

func leadPrompt(in LeadInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nIndustry: %s\n", in.Business.CompanyName, in.Business.Industry)
	if in.Business.Location != `` {
		fmt.Fprintf(&b, "Location: %s\n", in.Business.Location)
	}
	fmt.Fprintf(&b, "Website grade: %s (%d/100)\n", in.Grade.Letter, in.Grade.Score)
	s := in.Signals
	if s.YearsInBusiness != nil {
		fmt.Fprintf(&b, "Years in business: %d\n", *s.YearsInBusiness)
	}
	fmt.Fprintf(&b, "Pricing visible: %t\nDecision maker reachable: %t\nPages: %d\n", s.PricingVisible, s.DecisionMakerReachable, s.PageCount)
	if len(s.PremiumFeatures) > 0 {
		fmt.Fprintf(&b, "Premium features: %s\n", strings.Join(s.PremiumFeatures, `, `))
	}
	if len(in.TopIssues) > 0 {
		b.WriteString("Top issues:\n")
		for _, c := range in.TopIssues {
			fmt.Fprintf(&b, "- (%s) %s\n", c.Issue.Severity, c.Issue.Title)
		}
	}
	return b.String()
}
