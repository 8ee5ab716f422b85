package models

import "time"

type BusinessContext struct {
	CompanyName     string `json:"company_name"`
	Industry        string `json:"industry"`
	Location        string `json:"location,omitempty"`
	YearsInBusiness *int   `json:"years_in_business,omitempty"`
}

// BusinessSignals are lead-scoring inputs observed on the crawled pages.
type BusinessSignals struct {
	YearsInBusiness        *int     `json:"years_in_business,omitempty"`
	PricingVisible         bool     `json:"pricing_visible"`
	DecisionMakerReachable bool     `json:"decision_maker_reachable"`
	PremiumFeatures        []string `json:"premium_features,omitempty"`
	HTTPS                  bool     `json:"https"`
	MobileFriendly         bool     `json:"mobile_friendly"`
	PageCount              int      `json:"page_count"`
}

type PhaseStatus string

const (
	PhaseOK       PhaseStatus = "ok"
	PhaseDegraded PhaseStatus = "degraded"
	PhaseSkipped  PhaseStatus = "skipped"
	PhaseFatal    PhaseStatus = "fatal"
)

type Phase struct {
	Name     string        `json:"name"`
	Status   PhaseStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

type Critique struct {
	Summary    string               `json:"summary"`
	Dimensions map[Dimension]string `json:"dimensions,omitempty"`
	Strategy   string               `json:"strategy"`
	Usage      JudgmentUsage        `json:"usage"`
}

type PersistenceStatus struct {
	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"`
}

// AnalysisRecord is the output of one pipeline run. It is not modified after
// Analyze returns.
type AnalysisRecord struct {
	ID          string                     `json:"id"`
	URL         string                     `json:"url"`
	Business    BusinessContext            `json:"business"`
	Discovery   DiscoveryResult            `json:"discovery"`
	Selection   PageSelection              `json:"selection"`
	Crawl       CrawlResult                `json:"crawl"`
	Results     map[Module]*AnalyzerResult `json:"results"`
	Scores      map[Dimension]int          `json:"scores"`
	Dedup       DedupResult                `json:"dedup"`
	TopIssues   TopIssueSelection          `json:"top_issues"`
	Grade       GradeResult                `json:"grade"`
	Signals     BusinessSignals            `json:"signals"`
	Lead        LeadScore                  `json:"lead"`
	Critique    Critique                   `json:"critique"`
	Phases      []Phase                    `json:"phases"`
	Persistence PersistenceStatus          `json:"persistence"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt time.Time                  `json:"completed_at"`
}

// Options tune a single pipeline run.
type Options struct {
	MaxPagesPerModule   int           `json:"max_pages_per_module"`
	CrawlConcurrency    int           `json:"crawl_concurrency"`
	PageTimeout         time.Duration `json:"page_timeout"`
	DiscoveryTimeout    time.Duration `json:"discovery_timeout"`
	EnableAIGrading     bool          `json:"enable_ai_grading"`
	EnableDeduplication bool          `json:"enable_deduplication"`
	EnableAILeadScoring bool          `json:"enable_ai_lead_scoring"`
	TopIssueLimit       int           `json:"top_issue_limit"`
	Deadline            time.Duration `json:"deadline"`
}

func DefaultOptions() Options {
	return Options{
		MaxPagesPerModule:   5,
		CrawlConcurrency:    3,
		PageTimeout:         30 * time.Second,
		DiscoveryTimeout:    20 * time.Second,
		EnableAIGrading:     true,
		EnableDeduplication: true,
		EnableAILeadScoring: true,
		TopIssueLimit:       5,
		Deadline:            5 * time.Minute,
	}
}

// WithDefaults fills zero numeric fields from DefaultOptions. Feature toggles are
// left as given.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.MaxPagesPerModule <= 0 {
		o.MaxPagesPerModule = d.MaxPagesPerModule
	}
	if o.CrawlConcurrency <= 0 {
		o.CrawlConcurrency = d.CrawlConcurrency
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = d.PageTimeout
	}
	if o.DiscoveryTimeout <= 0 {
		o.DiscoveryTimeout = d.DiscoveryTimeout
	}
	if o.TopIssueLimit <= 0 {
		o.TopIssueLimit = d.TopIssueLimit
	}
	if o.Deadline <= 0 {
		o.Deadline = d.Deadline
	}
	return o
}
