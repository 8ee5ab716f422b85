package selection

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const systemPrompt = `You choose which pages of a small business website should be audited. ` +
	`Pick the pages that best represent the site for each analysis module and answer with JSON only.`

const answerSchema = `{"visual": ["/path"], "content": ["/path"], "seo": ["/path"], "social": ["/path"], "rationale": "string"}`

type answer struct {
	Visual    []string `json:"visual"`
	Content   []string `json:"content"`
	SEO       []string `json:"seo"`
	Social    []string `json:"social"`
	Rationale string   `json:"rationale"`
}

type Selector struct {
	log   *log.Logger
	judge adaptors.JudgmentService
}

func NewSelector(log *log.Logger, judge adaptors.JudgmentService) *Selector {
	return &Selector{log: log, judge: judge}
}

// Select asks the judgment service for per-module page lists and enforces the
// limits locally: every list is reduced to known candidates and cut to
// maxPerModule. When the service fails or its answer is unusable the homepage is
// selected for every module and a SelectionError is returned with the result.
func (s *Selector) Select(ctx context.Context, disc *models.DiscoveryResult, biz models.BusinessContext, maxPerModule int) (*models.PageSelection, error) {
	if disc == nil || len(disc.Paths) == 0 {
		return nil, errors.NewPipelineError(errors.ReasonNoCandidates, nil)
	}
	if maxPerModule < 1 {
		maxPerModule = 1
	}

	candidates := lo.SliceToMap(disc.Paths, func(p string) (string, struct{}) { return p, struct{}{} })
	restrict := func(paths []string) []string {
		kept := lo.Uniq(lo.FilterMap(paths, func(p string, _ int) (string, bool) {
			p = canonical(p)
			_, ok := candidates[p]
			return p, ok
		}))
		if len(kept) > maxPerModule {
			kept = kept[:maxPerModule]
		}
		return kept
	}

	req := adaptors.JudgmentRequest{
		Task:      judgment.TaskPageSelection,
		System:    systemPrompt,
		Prompt:    buildPrompt(disc, biz, maxPerModule),
		Schema:    answerSchema,
		MaxTokens: 1024,
	}
	res := judgment.Decode[answer](ctx, s.judge, req, func(a *answer) error {
		a.Visual, a.Content, a.SEO, a.Social = restrict(a.Visual), restrict(a.Content), restrict(a.SEO), restrict(a.Social)
		if len(a.Visual)+len(a.Content)+len(a.SEO)+len(a.Social) == 0 {
			return errors.New(`selection contains no known candidate pages`)
		}
		return nil
	})

	if !res.Ok() {
		err := errors.NewStageError(errors.KindSelection, res.Error(req.Task))
		s.log.WithContext(ctx).WithError(err).Warn(`page selection failed, selecting homepage only`)
		return homepageOnly(disc), err
	}

	sel := &models.PageSelection{
		Visual:    res.Value.Visual,
		Content:   res.Value.Content,
		SEO:       res.Value.SEO,
		Social:    res.Value.Social,
		Rationale: res.Value.Rationale,
		Strategy:  models.SelectionAI,
	}
	sel.UniquePages = lo.Uniq(lo.Flatten([][]string{sel.Visual, sel.Content, sel.SEO, sel.Social}))

	s.log.WithContext(ctx).WithFields(log.Fields{
		`unique_pages`: len(sel.UniquePages),
		`cost_usd`:     res.Usage.CostUSD,
	}).Info(`pages selected`)
	return sel, nil
}

// homepageOnly selects "/" for every module, or the first candidate when the
// root path was not discovered.
func homepageOnly(disc *models.DiscoveryResult) *models.PageSelection {
	home := `/`
	if !disc.Contains(home) {
		home = disc.Paths[0]
	}
	only := []string{home}
	return &models.PageSelection{
		Visual:      only,
		Content:     only,
		SEO:         only,
		Social:      only,
		Rationale:   `page selection unavailable; analysing the homepage only`,
		UniquePages: only,
		Strategy:    models.SelectionHomepageFallback,
	}
}

// canonical reduces an answer entry, path or absolute URL, to the form
// discovery uses.
func canonical(p string) string {
	p = strings.TrimSpace(p)
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	if p == `` {
		return `/`
	}
	if !strings.HasPrefix(p, `/`) {
		p = `/` + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, `/`)
	}
	if p == `` {
		return `/`
	}
	return p
}

func buildPrompt(disc *models.DiscoveryResult, biz models.BusinessContext, maxPerModule int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Website: %s\n", disc.RootURL)
	if biz.CompanyName != `` {
		fmt.Fprintf(&b, "Company: %s\n", biz.CompanyName)
	}
	if biz.Industry != `` {
		fmt.Fprintf(&b, "Industry: %s\n", biz.Industry)
	}
	if biz.Location != `` {
		fmt.Fprintf(&b, "Location: %s\n", biz.Location)
	}
	fmt.Fprintf(&b, "\nSelect at most %d pages for each module from these candidates:\n", maxPerModule)
	for _, p := range disc.Paths {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\nModules: visual (design and layout), content (copy and messaging), ")
	b.WriteString("seo (technical search optimisation), social (social proof and profiles).\n")
	b.WriteString("Only use paths from the candidate list. Always consider the homepage.")
	return b.String()
}
