package analysis

import (
	"context"
	"fmt"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"
)

const answerSchema = `{"score": 0-100, "summary": "string", "issues": [{"title": "string", "description": "string", ` +
	`"severity": "low|medium|high|critical", "page": "/path", "viewport": "desktop|mobile", "region": "string", ` +
	`"remediation": "string", "quick_win": true}]}`

// moduleProfile describes one judgment-backed module: what it asks and which page
// digest it sends.
type moduleProfile struct {
	module    models.Module
	system    string
	focus     string
	digest    func(models.CrawledPage) string
	images    bool
	maxTokens int
}

var (
	visualProfile = moduleProfile{
		module: models.ModuleVisual,
		system: `You are a senior web designer reviewing screenshots of a small business website.`,
		focus: `Judge visual hierarchy, layout consistency, typography, colour contrast, imagery quality, ` +
			`call-to-action prominence and how well the mobile layout adapts.`,
		digest:    visualDigest,
		images:    true,
		maxTokens: 2048,
	}
	seoProfile = moduleProfile{
		module: models.ModuleSEO,
		system: `You are a technical SEO auditor.`,
		focus: `Judge titles, meta descriptions, heading structure, canonicalisation, indexability, ` +
			`structured data, image alt text and page speed signals.`,
		digest:    seoDigest,
		maxTokens: 2048,
	}
	contentProfile = moduleProfile{
		module: models.ModuleContent,
		system: `You are a conversion copywriter reviewing website content.`,
		focus: `Judge clarity of the value proposition, audience fit, calls to action, trust signals, ` +
			`readability and freshness of the copy.`,
		digest:    contentDigest,
		maxTokens: 2048,
	}
	socialProfile = moduleProfile{
		module: models.ModuleSocial,
		system: `You are a social media marketing specialist.`,
		focus: `Judge social sharing metadata, links to active social profiles, reviews and testimonials ` +
			`and other social proof.`,
		digest:    socialDigest,
		maxTokens: 1536,
	}
	accessibilityProfile = moduleProfile{
		module: models.ModuleAccessibility,
		system: `You are a WCAG 2.1 accessibility auditor.`,
		focus: `Judge text alternatives, form labelling, keyboard and skip navigation, heading order, ` +
			`link purpose and document language.`,
		digest:    accessibilityDigest,
		maxTokens: 2048,
	}
)

type issueAnswer struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Page        string `json:"page"`
	Viewport    string `json:"viewport"`
	Region      string `json:"region"`
	Remediation string `json:"remediation"`
	QuickWin    bool   `json:"quick_win"`
}

type moduleAnswer struct {
	Score   *float64      `json:"score"`
	Summary string        `json:"summary"`
	Issues  []issueAnswer `json:"issues"`
}

func validateAnswer(a *moduleAnswer) error {
	if a.Score == nil {
		return errors.New(`score is missing`)
	}
	if *a.Score < 0 || *a.Score > 100 {
		return errors.Errorf(`score %v out of range`, *a.Score)
	}
	for i, issue := range a.Issues {
		if strings.TrimSpace(issue.Title) == `` {
			return errors.Errorf(`issue %d has no title`, i)
		}
		if _, ok := models.ParseSeverity(issue.Severity); !ok {
			return errors.Errorf(`issue %d has invalid severity %q`, i, issue.Severity)
		}
	}
	return nil
}

type judgedModule struct {
	judge   adaptors.JudgmentService
	profile moduleProfile
}

func newJudgedModule(judge adaptors.JudgmentService, profile moduleProfile) *judgedModule {
	return &judgedModule{judge: judge, profile: profile}
}

func (m *judgedModule) Name() models.Module {
	return m.profile.module
}

func (m *judgedModule) Analyze(ctx context.Context, in Input) (*models.AnalyzerResult, error) {
	req := adaptors.JudgmentRequest{
		Task:      judgment.AnalyzerTask(string(m.profile.module)),
		System:    m.profile.system,
		Prompt:    m.prompt(in),
		Schema:    answerSchema,
		MaxTokens: m.profile.maxTokens,
	}
	if m.profile.images {
		req.Images = screenshots(in.Pages)
	}

	res := judgment.Decode[moduleAnswer](ctx, m.judge, req, validateAnswer)
	if !res.Ok() {
		return nil, res.Error(req.Task)
	}

	paths := map[string]struct{}{}
	for _, p := range in.Pages {
		paths[p.Path] = struct{}{}
	}
	issues := make([]models.Issue, 0, len(res.Value.Issues))
	for _, a := range res.Value.Issues {
		sev, _ := models.ParseSeverity(a.Severity)
		issue := models.Issue{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Severity:    sev,
			QuickWin:    a.QuickWin,
			Remediation: strings.TrimSpace(a.Remediation),
		}
		if _, ok := paths[canonicalPath(a.Page)]; ok {
			issue.Evidence = &models.Evidence{Page: canonicalPath(a.Page), Region: a.Region}
			switch models.ViewportKind(strings.ToLower(a.Viewport)) {
			case models.ViewportDesktop:
				issue.Evidence.Viewport = models.ViewportDesktop
			case models.ViewportMobile:
				issue.Evidence.Viewport = models.ViewportMobile
			}
		}
		issues = append(issues, issue)
	}

	return &models.AnalyzerResult{
		Score:   *res.Value.Score,
		Issues:  issues,
		Summary: res.Value.Summary,
		Usage:   res.Usage,
	}, nil
}

func (m *judgedModule) prompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Website: %s\n", in.Run.RootURL)
	if in.Run.Business.CompanyName != `` {
		fmt.Fprintf(&b, "Company: %s\n", in.Run.Business.CompanyName)
	}
	if in.Run.Business.Industry != `` {
		fmt.Fprintf(&b, "Industry: %s\n", in.Run.Business.Industry)
	}
	fmt.Fprintf(&b, "\n%s\n", m.profile.focus)
	b.WriteString("Score the site from 0 to 100 and list concrete issues. Reference pages by path.\n")
	for _, p := range in.Pages {
		b.WriteString(m.profile.digest(p))
	}
	return b.String()
}

func screenshots(pages []models.CrawledPage) []adaptors.ImageAttachment {
	var images []adaptors.ImageAttachment
	for _, p := range pages {
		for _, shot := range []*models.Screenshot{p.Desktop, p.Mobile} {
			if shot == nil || len(shot.Data) == 0 {
				continue
			}
			images = append(images, adaptors.ImageAttachment{
				MediaType: `image/png`,
				Data:      shot.Data,
				Label:     fmt.Sprintf(`%s (%s)`, p.Path, shot.Viewport),
			})
		}
	}
	return images
}

func canonicalPath(p string) string {
	p = strings.TrimSpace(p)
	if p == `` {
		return ``
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
