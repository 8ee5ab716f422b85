package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Coordinator struct {
	log     *log.Logger
	modules []Module
}

// NewCoordinator wires the five judgment-backed modules and the local
// performance module.
func NewCoordinator(log *log.Logger, judge adaptors.JudgmentService) *Coordinator {
	return NewCoordinatorWithModules(log,
		newJudgedModule(judge, visualProfile),
		newJudgedModule(judge, seoProfile),
		newJudgedModule(judge, contentProfile),
		newJudgedModule(judge, socialProfile),
		newJudgedModule(judge, accessibilityProfile),
		NewPerformanceModule(),
	)
}

func NewCoordinatorWithModules(log *log.Logger, modules ...Module) *Coordinator {
	return &Coordinator{log: log, modules: modules}
}

// Run executes every module concurrently on its selected pages and waits for all
// of them. A module that errors, panics or returns nothing is replaced by a
// degraded result with the neutral score; the other modules are unaffected. The
// returned error, if any, is an AnalyzerModuleError listing degraded modules.
func (c *Coordinator) Run(ctx context.Context, crawl *models.CrawlResult, sel *models.PageSelection, rc RunContext) (map[models.Module]*models.AnalyzerResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[models.Module]*models.AnalyzerResult, len(c.modules))
	)

	g := errgroup.Group{}
	for _, m := range c.modules {
		m := m
		g.Go(func() error {
			res := c.runModule(ctx, m, Input{Run: rc, Pages: pagesFor(crawl, sel, m.Name())})
			mu.Lock()
			results[m.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var degraded []string
	for _, m := range c.modules {
		res := results[m.Name()]
		assignIDs(res)
		metrics.AnalyzerScore.WithLabelValues(string(m.Name())).Observe(res.Score)
		if res.Degraded {
			degraded = append(degraded, string(m.Name()))
		}
	}
	if len(degraded) > 0 {
		return results, errors.NewStageError(errors.KindAnalyzer, fmt.Errorf(`degraded modules: %v`, degraded))
	}
	return results, nil
}

func (c *Coordinator) runModule(ctx context.Context, m Module, in Input) (res *models.AnalyzerResult) {
	start := time.Now()
	name := m.Name()
	paths := lo.Map(in.Pages, func(p models.CrawledPage, _ int) string { return p.Path })
	logger := c.log.WithContext(ctx).WithField(`module`, name)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf(`analyzer module panicked: %v`, rec)
			res = models.DegradedResult(name, fmt.Sprintf(`module panicked: %v`, rec))
			res.Pages = paths
		}
	}()

	if len(in.Pages) == 0 {
		res = models.DegradedResult(name, `no crawled pages available`)
		return res
	}

	out, err := m.Analyze(ctx, in)
	if err == nil && out == nil {
		err = errors.New(`module returned no result`)
	}
	if err != nil {
		err = errors.NewStageError(errors.KindAnalyzer, err)
		logger.WithError(err).Warn(`analyzer module degraded`)
		res = models.DegradedResult(name, err.Error())
		res.Pages = paths
		res.Usage.Duration = time.Since(start)
		return res
	}

	out.Module = name
	out.Pages = paths
	out.Score = clampScore(out.Score)
	if out.Issues == nil {
		out.Issues = []models.Issue{}
	}
	if out.Usage.Duration == 0 {
		out.Usage.Duration = time.Since(start)
	}
	logger.WithFields(log.Fields{
		`score`:  out.Score,
		`issues`: len(out.Issues),
	}).Info(`analyzer module completed`)
	return out
}

// pagesFor returns the crawled pages assigned to module. When none of its
// selected pages were crawled it falls back to the homepage, or to every crawled
// page if the homepage failed too.
func pagesFor(crawl *models.CrawlResult, sel *models.PageSelection, module models.Module) []models.CrawledPage {
	if crawl == nil {
		return nil
	}
	var pages []models.CrawledPage
	if sel != nil {
		for _, p := range sel.PagesFor(module) {
			if page, ok := crawl.Page(p); ok {
				pages = append(pages, page)
			}
		}
	}
	if len(pages) > 0 {
		return pages
	}
	if home, ok := crawl.Page(`/`); ok {
		return []models.CrawledPage{home}
	}
	return crawl.Pages
}

// assignIDs numbers the issues of one module as "<module>-001", "<module>-002", ...
func assignIDs(res *models.AnalyzerResult) {
	for i := range res.Issues {
		res.Issues[i].ID = fmt.Sprintf(`%s-%03d`, res.Module, i+1)
		res.Issues[i].Module = res.Module
		res.Issues[i].SourceType = res.Module.SourceType()
	}
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}

// AllIssues flattens module results in module report order.
func AllIssues(results map[models.Module]*models.AnalyzerResult) []models.Issue {
	var all []models.Issue
	for _, m := range models.AllModules {
		if res, ok := results[m]; ok && res != nil {
			all = append(all, res.Issues...)
		}
	}
	return all
}
