package handlers

import (
	"net/http"
	"time"

	"site_auditor/internal/domain/models"
	"site_auditor/internal/http/middleware"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/service"
	"site_auditor/internal/service/discovery"

	json "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

const maxRequestBytes = 1 << 20

type AnalysisHandler struct {
	service  service.SiteAnalyzer
	defaults models.Options
	log      *log.Logger
}

type AnalysisRequest struct {
	URL      string                 `json:"url"`
	Business models.BusinessContext `json:"business"`
	Options  *AnalysisOptions       `json:"options,omitempty"`
}

// AnalysisOptions overrides the server defaults for one run. Unset fields keep
// the default.
type AnalysisOptions struct {
	MaxPagesPerModule   *int  `json:"max_pages_per_module,omitempty"`
	CrawlConcurrency    *int  `json:"crawl_concurrency,omitempty"`
	TopIssueLimit       *int  `json:"top_issue_limit,omitempty"`
	DeadlineSeconds     *int  `json:"deadline_seconds,omitempty"`
	EnableAIGrading     *bool `json:"enable_ai_grading,omitempty"`
	EnableDeduplication *bool `json:"enable_deduplication,omitempty"`
	EnableAILeadScoring *bool `json:"enable_ai_lead_scoring,omitempty"`
}

func (r *AnalysisRequest) Validate() error {
	if r.URL == "" {
		return errors.New("url is empty")
	}
	if _, err := discovery.ParseRoot(r.URL); err != nil {
		return err
	}
	if y := r.Business.YearsInBusiness; y != nil && *y < 0 {
		return errors.New("years_in_business is negative")
	}
	return nil
}

// Apply returns base with the request's overrides.
func (o *AnalysisOptions) Apply(base models.Options) models.Options {
	if o == nil {
		return base
	}
	if o.MaxPagesPerModule != nil {
		base.MaxPagesPerModule = *o.MaxPagesPerModule
	}
	if o.CrawlConcurrency != nil {
		base.CrawlConcurrency = *o.CrawlConcurrency
	}
	if o.TopIssueLimit != nil {
		base.TopIssueLimit = *o.TopIssueLimit
	}
	if o.DeadlineSeconds != nil {
		base.Deadline = time.Duration(*o.DeadlineSeconds) * time.Second
	}
	if o.EnableAIGrading != nil {
		base.EnableAIGrading = *o.EnableAIGrading
	}
	if o.EnableDeduplication != nil {
		base.EnableDeduplication = *o.EnableDeduplication
	}
	if o.EnableAILeadScoring != nil {
		base.EnableAILeadScoring = *o.EnableAILeadScoring
	}
	return base
}

func NewAnalysisHandler(service service.SiteAnalyzer, defaults models.Options, log *log.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:  service,
		defaults: defaults,
		log:      log,
	}
}

func (h *AnalysisHandler) Handle(w http.ResponseWriter, r *http.Request) {
	logger := h.log.WithField(`request_id`, middleware.RequestID(r.Context()))
	logger.Debug(`analyze site handler called`)

	var request AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&request); err != nil {
		sendError(w, `failed to decode request body`, err, http.StatusBadRequest)
		return
	}

	if err := request.Validate(); err != nil {
		sendError(w, `failed to validate request body`, err, http.StatusBadRequest)
		return
	}

	opts := request.Options.Apply(h.defaults)
	record, err := h.service.Analyze(r.Context(), request.URL, request.Business, opts)
	if err != nil {
		var pe *errors.PipelineError
		switch {
		case errors.As(err, &pe):
			sendError(w, `analysis could not complete`, pe, http.StatusUnprocessableEntity)
			return
		case record != nil && errors.IsKind(err, errors.KindPersistence):
			// The record is complete but was not saved; record.Persistence says so.
			logger.WithError(err).WithField(`run_id`, record.ID).Warn(`returning unsaved analysis`)
		default:
			sendError(w, `failed to analyze site`, err, http.StatusInternalServerError)
			return
		}
	}

	if err := sendJSON(w, http.StatusOK, record); err != nil {
		logger.WithError(err).Error(`failed to encode response`)
	}
}
