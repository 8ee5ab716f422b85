package service

import (
	"context"
	"net/url"
	"time"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"
	"site_auditor/internal/pkg/stage"
	"site_auditor/internal/service/analysis"
	"site_auditor/internal/service/consolidation"
	"site_auditor/internal/service/crawler"
	"site_auditor/internal/service/discovery"
	"site_auditor/internal/service/grading"
	"site_auditor/internal/service/persistence"
	"site_auditor/internal/service/selection"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Phase names, in execution order.
const (
	PhaseDiscovery         = `discovery`
	PhaseSelection         = `selection`
	PhaseCrawl             = `crawl`
	PhaseAnalysis          = `analysis`
	PhaseScoring           = `scoring`
	PhaseDeduplication     = `deduplication`
	PhaseTopIssues         = `top-issue-selection`
	PhaseGrading           = `grading`
	PhaseLeadScoring       = `lead-scoring`
	PhaseCritique          = `critique`
	PhaseScreenshotPersist = `screenshot-persistence`
	PhaseRecordPersistence = `record-persistence`
)

// SiteAnalyzer is what the transport layers need from the pipeline.
type SiteAnalyzer interface {
	Analyze(ctx context.Context, rawURL string, biz models.BusinessContext, opts models.Options) (*models.AnalysisRecord, error)
	Record(ctx context.Context, id string) (*models.AnalysisRecord, error)
}

type Analyzer struct {
	log         *log.Logger
	discoverer  *discovery.Discoverer
	selector    *selection.Selector
	crawler     *crawler.Crawler
	coordinator *analysis.Coordinator
	dedup       *consolidation.Deduplicator
	top         *consolidation.TopSelector
	grader      *grading.Grader
	leads       *grading.LeadScorer
	critic      *grading.Critic
	persister   *persistence.Persister
}

type Option func(*Analyzer)

// WithModules replaces the default analyzer modules.
func WithModules(modules ...analysis.Module) Option {
	return func(a *Analyzer) {
		a.coordinator = analysis.NewCoordinatorWithModules(a.log, modules...)
	}
}

func NewAnalyzer(log *log.Logger, web adaptors.WebClient, browser adaptors.Browser, judge adaptors.JudgmentService, persister *persistence.Persister, opts ...Option) *Analyzer {
	a := &Analyzer{
		log:         log,
		discoverer:  discovery.NewDiscoverer(log, web),
		selector:    selection.NewSelector(log, judge),
		crawler:     crawler.NewCrawler(log, browser),
		coordinator: analysis.NewCoordinator(log, judge),
		dedup:       consolidation.NewDeduplicator(log, judge),
		top:         consolidation.NewTopSelector(log, judge),
		grader:      grading.NewGrader(log, judge),
		leads:       grading.NewLeadScorer(log, judge),
		critic:      grading.NewCritic(log, judge),
		persister:   persister,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the whole audit of rawURL. Only the two fatal conditions end the
// run early and return a *errors.PipelineError with no record. Every other failure
// degrades its stage and is visible in the record's phase log. A record that could
// not be saved is still returned, together with the save error.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, biz models.BusinessContext, opts models.Options) (*models.AnalysisRecord, error) {
	opts = opts.WithDefaults()
	root, err := discovery.ParseRoot(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, `invalid url`)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	rec := &models.AnalysisRecord{
		ID:        uuid.NewString(),
		URL:       root.String(),
		Business:  biz,
		StartedAt: time.Now().UTC(),
	}
	logger := a.log.WithContext(ctx).WithFields(log.Fields{`run_id`: rec.ID, `url`: rec.URL})
	logger.Info(`analysis started`)

	if err := a.run(ctx, logger, root, rec, opts); err != nil {
		metrics.AnalysesTotal.WithLabelValues(`failed`).Inc()
		logger.WithError(err).Error(`analysis failed`)
		return nil, err
	}
	rec.CompletedAt = time.Now().UTC()

	saved := stage.Run(ctx, logger, PhaseRecordPersistence, func(ctx context.Context) (models.PersistenceStatus, error) {
		return a.persister.SaveRecord(ctx, rec)
	})
	rec.Phases = append(rec.Phases, saved.Phase(PhaseRecordPersistence))
	rec.Persistence = saved.Value
	if saved.Err != nil {
		metrics.AnalysesTotal.WithLabelValues(`unsaved`).Inc()
		return rec, saved.Err
	}

	metrics.AnalysesTotal.WithLabelValues(`ok`).Inc()
	logger.WithFields(log.Fields{
		`grade`:    rec.Grade.Letter,
		`score`:    rec.Grade.Score,
		`lead`:     rec.Lead.Tier,
		`duration`: rec.CompletedAt.Sub(rec.StartedAt).String(),
	}).Info(`analysis completed`)
	return rec, nil
}

// Record returns a saved analysis.
func (a *Analyzer) Record(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	return a.persister.Load(ctx, id)
}

func (a *Analyzer) run(ctx context.Context, logger *log.Entry, root *url.URL, rec *models.AnalysisRecord, opts models.Options) error {
	phase := func(p models.Phase) {
		rec.Phases = append(rec.Phases, p)
	}

	disc := stage.Run(ctx, logger, PhaseDiscovery, func(ctx context.Context) (*models.DiscoveryResult, error) {
		return a.discoverer.Discover(ctx, root, opts.DiscoveryTimeout)
	})
	phase(disc.Phase(PhaseDiscovery))
	if disc.Fatal() || disc.Value == nil {
		return fatalOr(disc.Err, errors.ReasonNoCandidates)
	}
	rec.Discovery = *disc.Value

	sel := stage.Run(ctx, logger, PhaseSelection, func(ctx context.Context) (*models.PageSelection, error) {
		return a.selector.Select(ctx, disc.Value, rec.Business, opts.MaxPagesPerModule)
	})
	phase(sel.Phase(PhaseSelection))
	if sel.Fatal() || sel.Value == nil {
		return fatalOr(sel.Err, errors.ReasonNoCandidates)
	}
	rec.Selection = *sel.Value

	crawl := stage.Run(ctx, logger, PhaseCrawl, func(ctx context.Context) (*models.CrawlResult, error) {
		return a.crawler.Crawl(ctx, root, sel.Value.UniquePages, opts.CrawlConcurrency, opts.PageTimeout)
	})
	phase(crawl.Phase(PhaseCrawl))
	if crawl.Fatal() || crawl.Value == nil || len(crawl.Value.Pages) == 0 {
		return fatalOr(crawl.Err, errors.ReasonNoPagesCrawled)
	}

	results := stage.Run(ctx, logger, PhaseAnalysis, func(ctx context.Context) (map[models.Module]*models.AnalyzerResult, error) {
		return a.coordinator.Run(ctx, crawl.Value, sel.Value, analysis.RunContext{RootURL: rec.URL, Business: rec.Business})
	})
	phase(results.Phase(PhaseAnalysis))
	rec.Results = results.Value

	scores := stage.Run(ctx, logger, PhaseScoring, func(ctx context.Context) (map[models.Dimension]int, error) {
		return grading.DimensionScores(results.Value), nil
	})
	phase(scores.Phase(PhaseScoring))
	rec.Scores = scores.Value

	rc := consolidation.RunContext{
		CompanyName: rec.Business.CompanyName,
		Industry:    rec.Business.Industry,
		Score:       grading.Deterministic(grading.Input{Scores: rec.Scores}).Score,
	}
	dedup := stage.Run(ctx, logger, PhaseDeduplication, func(ctx context.Context) (*models.DedupResult, error) {
		return a.dedup.Deduplicate(ctx, analysis.AllIssues(results.Value), rc, opts.EnableDeduplication)
	})
	phase(dedup.Phase(PhaseDeduplication))
	rec.Dedup = *dedup.Value

	top := stage.Run(ctx, logger, PhaseTopIssues, func(ctx context.Context) (*models.TopIssueSelection, error) {
		return a.top.SelectTop(ctx, dedup.Value.Consolidated, rc, opts.TopIssueLimit)
	})
	phase(top.Phase(PhaseTopIssues))
	rec.TopIssues = *top.Value

	rec.Signals = grading.ExtractSignals(rec.URL, crawl.Value, rec.Business)
	quickWins := lo.CountBy(dedup.Value.Consolidated, func(c models.ConsolidatedIssue) bool { return c.Issue.QuickWin })

	grade := stage.Run(ctx, logger, PhaseGrading, func(ctx context.Context) (*models.GradeResult, error) {
		return a.grader.Grade(ctx, grading.Input{
			Business:  rec.Business,
			Scores:    rec.Scores,
			Signals:   rec.Signals,
			QuickWins: quickWins,
			TopIssues: top.Value.Issues,
		}, opts.EnableAIGrading)
	})
	phase(grade.Phase(PhaseGrading))
	rec.Grade = *grade.Value

	lead := stage.Run(ctx, logger, PhaseLeadScoring, func(ctx context.Context) (*models.LeadScore, error) {
		return a.leads.Score(ctx, grading.LeadInput{
			Business:  rec.Business,
			Signals:   rec.Signals,
			Grade:     rec.Grade,
			TopIssues: top.Value.Issues,
		}, opts.EnableAILeadScoring)
	})
	phase(lead.Phase(PhaseLeadScoring))
	rec.Lead = *lead.Value

	critique := stage.Run(ctx, logger, PhaseCritique, func(ctx context.Context) (*models.Critique, error) {
		return a.critic.Critique(ctx, grading.CritiqueInput{
			Business:  rec.Business,
			Grade:     rec.Grade,
			TopIssues: top.Value.Issues,
			Results:   rec.Results,
		})
	})
	phase(critique.Phase(PhaseCritique))
	rec.Critique = *critique.Value

	shots := stage.Run(ctx, logger, PhaseScreenshotPersist, func(ctx context.Context) (models.CrawlResult, error) {
		return a.persister.SaveScreenshots(ctx, rec.ID, *crawl.Value)
	})
	phase(shots.Phase(PhaseScreenshotPersist))
	rec.Crawl = shots.Value
	return nil
}

// fatalOr returns err when it is already a PipelineError, or a new one with reason.
func fatalOr(err error, reason string) error {
	var pe *errors.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return errors.NewPipelineError(reason, err)
}
