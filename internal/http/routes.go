package http

import (
	"context"

	"site_auditor/internal/domain/models"
	"site_auditor/internal/http/handlers"
	"site_auditor/internal/http/middleware"
	"site_auditor/internal/service"
)

func initRoutes(_ context.Context, r *Router, analyzer service.SiteAnalyzer, defaults models.Options) {
	r.httpRouter.Use(middleware.MetricsMiddleware)
	r.httpRouter.Use(middleware.RequestIDLoggerMiddleware(r.log))
	// Routes
	r.httpRouter.Get("/ready", handlers.NewReadyHandler().Handle)
	r.httpRouter.Post("/analyze", handlers.NewAnalysisHandler(analyzer, defaults, r.log).Handle)
	r.httpRouter.Get("/analyses/{id}", handlers.NewRecordHandler(analyzer, r.log).Handle)
}
