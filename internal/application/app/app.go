package app

import (
	"context"

	"site_auditor/internal/adaptors"
	"site_auditor/internal/application/config"
	domain "site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/queue"
	"site_auditor/internal/service"
	"site_auditor/internal/service/persistence"

	log "github.com/sirupsen/logrus"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	Analyzer *service.Analyzer
	Options  models.Options
	closers  []func() error
	log      *log.Logger
}

// Deps lets callers swap the heavyweight adaptors. Nil fields are built from
// the config.
type Deps struct {
	Browser domain.Browser
	Judge   domain.JudgmentService
	Store   domain.ObjectStore
	Repo    domain.RecordRepository
}

// New builds every adaptor the config asks for and wires them into an Analyzer.
// Optional backends fall back to local implementations: no DATABASE_URL keeps
// records in memory, no MinIO endpoint writes screenshots to disk, and no Redis
// address disables the judgment cache.
func New(ctx context.Context, cfg *config.PipelineConfig, deps Deps, log *log.Logger) (*App, error) {
	a := &App{log: log, Options: cfg.Options()}

	if deps.Judge == nil {
		judge, err := a.judge(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Judge = judge
	}

	if deps.Store == nil {
		store, err := a.store(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Store = store
	}

	if deps.Repo == nil {
		repo, err := a.repository(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Repo = repo
	}

	if deps.Browser == nil {
		browser, err := adaptors.NewPlaywrightBrowser(cfg.Headless, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, browser.Close)
		deps.Browser = browser
	}

	q := queue.New(cfg.Queue(), log)
	log.WithField(`in_flight_limit`, q.InFlightLimit()).Info(`persistence queue ready`)
	persister := persistence.NewPersister(log, q, deps.Store, deps.Repo)
	a.Analyzer = service.NewAnalyzer(log, adaptors.NewWebClient(cfg.FetchTimeout, log), deps.Browser, deps.Judge, persister)
	return a, nil
}

func (a *App) judge(ctx context.Context, cfg *config.PipelineConfig) (domain.JudgmentService, error) {
	if cfg.AnthropicAPIKey == `` {
		a.log.Warn(`no anthropic api key configured, judgment stages will use deterministic fallbacks`)
		return adaptors.OfflineJudge{}, nil
	}

	var cache domain.ResponseCache
	if cfg.RedisAddr != `` {
		rc := adaptors.NewRedisCache(cfg.RedisAddr, cfg.JudgmentCacheTTL)
		if err := rc.Ping(ctx); err != nil {
			a.log.WithError(err).Warn(`judgment cache unavailable, continuing without it`)
			_ = rc.Close()
		} else {
			a.closers = append(a.closers, rc.Close)
			cache = rc
		}
	}

	return adaptors.NewClaudeClient(cfg.Claude(), cache, a.log)
}

func (a *App) store(ctx context.Context, cfg *config.PipelineConfig) (domain.ObjectStore, error) {
	if cfg.MinioEndpoint == `` {
		return adaptors.NewFileStore(cfg.ScreenshotDir)
	}
	store, err := adaptors.NewMinioStore(cfg.Minio())
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) repository(ctx context.Context, cfg *config.PipelineConfig) (domain.RecordRepository, error) {
	if cfg.DatabaseURL == `` {
		a.log.Info(`no database configured, analysis records are kept in memory`)
		return adaptors.NewMemoryRepository(), nil
	}
	pool, err := adaptors.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	repo := adaptors.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn(`failed to release resource`)
		}
	}
	a.closers = nil
}
