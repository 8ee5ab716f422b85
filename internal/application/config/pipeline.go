package config

import (
	"time"

	"site_auditor/internal/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/queue"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = `AUDIT`

// PipelineConfig is read from AUDIT_* variables. Fields with a bare tag, such as
// DATABASE_URL, also accept the unprefixed name.
type PipelineConfig struct {
	// Judgment service
	AnthropicAPIKey  string        `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel   string        `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`
	AnthropicBaseURL string        `envconfig:"ANTHROPIC_BASE_URL" default:"https://api.anthropic.com"`
	AnthropicTimeout time.Duration `envconfig:"ANTHROPIC_TIMEOUT" default:"120s"`
	AnthropicRPM     int           `envconfig:"ANTHROPIC_RPM" default:"50"`

	// Crawl
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	CrawlConcurrency int           `envconfig:"CRAWL_CONCURRENCY" default:"3"`
	PageTimeout      time.Duration `envconfig:"PAGE_TIMEOUT" default:"30s"`
	DiscoveryTimeout time.Duration `envconfig:"DISCOVERY_TIMEOUT" default:"20s"`
	MaxPages         int           `envconfig:"MAX_PAGES_PER_MODULE" default:"5"`
	RunDeadline      time.Duration `envconfig:"RUN_DEADLINE" default:"5m"`
	Headless         bool          `envconfig:"HEADLESS" default:"true"`

	// Feature toggles
	EnableAIGrading     bool `envconfig:"ENABLE_AI_GRADING" default:"true"`
	EnableDeduplication bool `envconfig:"ENABLE_DEDUPLICATION" default:"true"`
	EnableAILeadScoring bool `envconfig:"ENABLE_AI_LEAD_SCORING" default:"true"`
	TopIssueLimit       int  `envconfig:"TOP_ISSUE_LIMIT" default:"5"`

	// Persistence
	QueueCeiling     int           `envconfig:"QUEUE_CEILING" default:"20"`
	QueueRetries     uint64        `envconfig:"QUEUE_RETRIES" default:"3"`
	QueueBackoff     time.Duration `envconfig:"QUEUE_BACKOFF" default:"1s"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	ScreenshotDir    string        `envconfig:"SCREENSHOT_DIR" default:"./screenshots"`
	MinioEndpoint    string        `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey   string        `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey   string        `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket      string        `envconfig:"MINIO_BUCKET" default:"site-audits"`
	MinioUseSSL      bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	JudgmentCacheTTL time.Duration `envconfig:"JUDGMENT_CACHE_TTL" default:"24h"`
}

func NewPipelineConfig() (*PipelineConfig, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}

	var cfg PipelineConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, `failed to parse pipeline config`)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *PipelineConfig) Validate() error {
	switch {
	case c.CrawlConcurrency <= 0:
		return errors.New(`crawl concurrency must be positive`)
	case c.QueueCeiling <= 0:
		return errors.New(`queue ceiling must be positive`)
	case c.MinioEndpoint != `` && (c.MinioAccessKey == `` || c.MinioSecretKey == ``):
		return errors.New(`minio endpoint set without credentials`)
	}
	return nil
}

// Options are the per-run defaults derived from the environment.
func (c *PipelineConfig) Options() models.Options {
	return models.Options{
		MaxPagesPerModule:   c.MaxPages,
		CrawlConcurrency:    c.CrawlConcurrency,
		PageTimeout:         c.PageTimeout,
		DiscoveryTimeout:    c.DiscoveryTimeout,
		EnableAIGrading:     c.EnableAIGrading,
		EnableDeduplication: c.EnableDeduplication,
		EnableAILeadScoring: c.EnableAILeadScoring,
		TopIssueLimit:       c.TopIssueLimit,
		Deadline:            c.RunDeadline,
	}.WithDefaults()
}

func (c *PipelineConfig) Claude() adaptors.ClaudeConfig {
	return adaptors.ClaudeConfig{
		APIKey:       c.AnthropicAPIKey,
		BaseURL:      c.AnthropicBaseURL,
		Model:        c.AnthropicModel,
		Timeout:      c.AnthropicTimeout,
		RateLimitRPM: c.AnthropicRPM,
	}
}

func (c *PipelineConfig) Minio() adaptors.MinioConfig {
	return adaptors.MinioConfig{
		Endpoint:        c.MinioEndpoint,
		AccessKeyID:     c.MinioAccessKey,
		SecretAccessKey: c.MinioSecretKey,
		UseSSL:          c.MinioUseSSL,
		Bucket:          c.MinioBucket,
	}
}

func (c *PipelineConfig) Queue() queue.Config {
	return queue.Config{
		Ceiling:         c.QueueCeiling,
		MaxRetries:      c.QueueRetries,
		InitialInterval: c.QueueBackoff,
	}
}
