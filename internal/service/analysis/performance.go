package analysis

import (
	"context"
	"fmt"
	"time"

	"site_auditor/internal/domain/models"
)

// Thresholds of the performance module.
const (
	slowLoad        = 2500 * time.Millisecond
	verySlowLoad    = 4 * time.Second
	heavyPage       = 500 * 1024
	veryHeavyPage   = 1024 * 1024
	manyScripts     = 20
	tooManyScripts  = 40
	manyImages      = 40
	manyStylesheets = 8
)

type performanceCheck struct {
	deduction float64
	title     string
	detail    string
	severity  models.Severity
	quickWin  bool
	fix       string
}

// PerformanceModule scores pages from their capture metadata without calling
// the judgment service.
type PerformanceModule struct{}

func NewPerformanceModule() *PerformanceModule {
	return &PerformanceModule{}
}

func (PerformanceModule) Name() models.Module {
	return models.ModulePerformance
}

// Analyze averages per-page scores. Each finding is reported once, with the
// first page that showed it as evidence.
func (PerformanceModule) Analyze(ctx context.Context, in Input) (*models.AnalyzerResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var total float64
	seen := map[string]struct{}{}
	issues := []models.Issue{}
	for _, page := range in.Pages {
		score := 100.0
		for _, c := range checkPage(page.Metadata) {
			score -= c.deduction
			if c.title == `` {
				continue
			}
			if _, ok := seen[c.title]; ok {
				continue
			}
			seen[c.title] = struct{}{}
			issues = append(issues, models.Issue{
				Title:       c.title,
				Description: c.detail,
				Severity:    c.severity,
				QuickWin:    c.quickWin,
				Remediation: c.fix,
				Evidence:    &models.Evidence{Page: page.Path},
			})
		}
		total += clampScore(score)
	}

	avg := total / float64(len(in.Pages))
	return &models.AnalyzerResult{
		Score:   avg,
		Issues:  issues,
		Summary: fmt.Sprintf(`%d pages measured, %d performance findings`, len(in.Pages), len(issues)),
	}, nil
}

func checkPage(m models.CaptureMetadata) []performanceCheck {
	var checks []performanceCheck

	switch {
	case m.LoadTime > verySlowLoad:
		checks = append(checks, performanceCheck{
			deduction: 40, title: `Very slow page load`, severity: models.SeverityHigh,
			detail: fmt.Sprintf(`The page took %s to reach network idle.`, m.LoadTime.Round(time.Millisecond)),
			fix:    `Compress images, defer non-critical scripts and enable caching.`,
		})
	case m.LoadTime > slowLoad:
		checks = append(checks, performanceCheck{
			deduction: 25, title: `Slow page load`, severity: models.SeverityMedium,
			detail: fmt.Sprintf(`The page took %s to reach network idle.`, m.LoadTime.Round(time.Millisecond)),
			fix:    `Compress images, defer non-critical scripts and enable caching.`,
		})
	case m.LoadTime > time.Second:
		// deduction only, not worth an issue
		checks = append(checks, performanceCheck{deduction: 10})
	}

	switch {
	case m.HTMLBytes > veryHeavyPage:
		checks = append(checks, performanceCheck{
			deduction: 20, title: `Very large HTML document`, severity: models.SeverityMedium,
			detail: fmt.Sprintf(`The rendered HTML is %d KB.`, m.HTMLBytes/1024),
			fix:    `Remove inlined assets and unused markup.`,
		})
	case m.HTMLBytes > heavyPage:
		checks = append(checks, performanceCheck{
			deduction: 10, title: `Large HTML document`, severity: models.SeverityLow,
			detail: fmt.Sprintf(`The rendered HTML is %d KB.`, m.HTMLBytes/1024),
			fix:    `Remove inlined assets and unused markup.`,
		})
	}

	switch {
	case m.ScriptCount > tooManyScripts:
		checks = append(checks, performanceCheck{
			deduction: 20, title: `Excessive JavaScript`, severity: models.SeverityMedium,
			detail: fmt.Sprintf(`%d script tags are loaded.`, m.ScriptCount),
			fix:    `Bundle scripts and drop unused third-party tags.`,
		})
	case m.ScriptCount > manyScripts:
		checks = append(checks, performanceCheck{
			deduction: 10, title: `Many script tags`, severity: models.SeverityLow,
			detail: fmt.Sprintf(`%d script tags are loaded.`, m.ScriptCount),
			fix:    `Bundle scripts and drop unused third-party tags.`,
		})
	}

	if m.ImageCount > manyImages {
		checks = append(checks, performanceCheck{
			deduction: 5, title: `Image heavy page`, severity: models.SeverityLow, quickWin: true,
			detail: fmt.Sprintf(`%d images are loaded.`, m.ImageCount),
			fix:    `Lazy-load images below the fold.`,
		})
	}
	if m.StylesheetCount > manyStylesheets {
		checks = append(checks, performanceCheck{
			deduction: 5, title: `Many stylesheets`, severity: models.SeverityLow, quickWin: true,
			detail: fmt.Sprintf(`%d stylesheets are loaded.`, m.StylesheetCount),
			fix:    `Combine stylesheets.`,
		})
	}
	if !m.HasViewportMeta {
		checks = append(checks, performanceCheck{
			deduction: 15, title: `Missing responsive viewport`, severity: models.SeverityHigh, quickWin: true,
			detail: `The page has no viewport meta tag, so mobile browsers render the desktop layout.`,
			fix:    `Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
		})
	}

	return checks
}
