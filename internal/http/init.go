package http

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"site_auditor/internal/application/app"
	"site_auditor/internal/application/config"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/service"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type Router struct {
	httpRouter *chi.Mux
	log        *log.Logger
}

func NewRouter(ctx context.Context, log *log.Logger, analyzer service.SiteAnalyzer, defaults models.Options) *chi.Mux {
	router := &Router{
		httpRouter: chi.NewRouter(),
		log:        log,
	}
	initRoutes(ctx, router, analyzer, defaults)
	return router.httpRouter
}

func Init(ctx context.Context, log *log.Logger, appCfg *config.AppConfig) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := NewHTTPServerConfig()
	if err != nil {
		log.Fatalf(`Failed to load config: %v`, err)
	}

	pipelineCfg, err := config.NewPipelineConfig()
	if err != nil {
		log.Fatalf(`Failed to load pipeline config: %v`, err)
	}

	a, err := app.New(ctx, pipelineCfg, app.Deps{}, log)
	if err != nil {
		log.Fatalf(`Failed to build analyzer: %v`, err)
	}
	defer a.Close()

	// Create metrics server
	metricsServer := NewMetricsServer(appCfg.MetricsHost, cfg.Timeouts.ShutdownWait, log)
	go serve(log, `metrics`, metricsServer.Start)

	// Create HTTP server
	httpServer := NewHttpServer(ctx, cfg, NewRouter(ctx, log, a.Analyzer, a.Options), log)
	go serve(log, `http`, httpServer.Start)

	// Create pprof server in debug mode
	var pprofServer *AuxServer
	if appCfg.DebugMode {
		pprofServer = NewPprofServer(appCfg.PprofHost, cfg.Timeouts.ShutdownWait, log)
		go serve(log, `pprof`, pprofServer.Start)
	}

	<-sigs
	if err := httpServer.Stop(); err != nil {
		log.WithError(err).Error(`failed to stop http server`)
	}

	if pprofServer != nil {
		if err := pprofServer.Stop(); err != nil {
			log.WithError(err).Error(`failed to stop pprof server`)
		}
	}

	if err := metricsServer.Stop(); err != nil {
		log.WithError(err).Error(`failed to stop metrics server`)
	}
}

func serve(log *log.Logger, name string, start func() error) {
	if err := start(); err != nil {
		log.WithError(err).Fatalf(`%s server failed`, name)
	}
}
