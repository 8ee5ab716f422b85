package analysis

import (
	"context"

	"site_auditor/internal/domain/models"
)

// RunContext is the run-wide information every module receives.
type RunContext struct {
	RootURL  string
	Business models.BusinessContext
}

// Input is one module's share of the crawl.
type Input struct {
	Run   RunContext
	Pages []models.CrawledPage
}

// Module scores one dimension of the site. Implementations leave issue ids empty;
// the coordinator numbers them.
type Module interface {
	Name() models.Module
	Analyze(ctx context.Context, in Input) (*models.AnalyzerResult, error)
}
