package main

import (
	"context"
	"io"
	"time"

	"site_auditor/internal/application/app"
	"site_auditor/internal/application/config"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/service"

	json "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// backend builds the pipeline the commands run against. The returned func
// releases its resources.
type backend func(ctx context.Context, log *log.Logger) (service.SiteAnalyzer, models.Options, func(), error)

func defaultBackend(ctx context.Context, log *log.Logger) (service.SiteAnalyzer, models.Options, func(), error) {
	cfg, err := config.NewPipelineConfig()
	if err != nil {
		return nil, models.Options{}, nil, err
	}
	a, err := app.New(ctx, cfg, app.Deps{}, log)
	if err != nil {
		return nil, models.Options{}, nil, err
	}
	return a.Analyzer, a.Options, a.Close, nil
}

type analyzeFlags struct {
	company     string
	industry    string
	location    string
	years       int
	maxPages    int
	concurrency int
	topIssues   int
	deadline    time.Duration
	noAIGrading bool
	noDedup     bool
	noAILeads   bool
	asJSON      bool
	allIssues   bool
}

func newRootCmd(build backend) *cobra.Command {
	var logLevel string
	logger := log.New()

	root := &cobra.Command{
		Use:           "audit",
		Short:         "Audit a business website and grade it as a sales lead",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(); err != nil {
				return err
			}
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return errors.Wrap(err, `failed to parse log level`)
			}
			logger.SetLevel(level)
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetFormatter(&log.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newAnalyzeCmd(build, logger), newShowCmd(build, logger))
	return root
}

func newAnalyzeCmd(build backend, logger *log.Logger) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Run a full audit of one site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			analyzer, defaults, release, err := build(ctx, logger)
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			defer release()

			biz := models.BusinessContext{
				CompanyName: f.company,
				Industry:    f.industry,
				Location:    f.location,
			}
			if cmd.Flags().Changed("years") {
				years := f.years
				biz.YearsInBusiness = &years
			}

			record, err := analyzer.Analyze(ctx, args[0], biz, f.apply(cmd, defaults))
			if record == nil {
				return report(cmd.ErrOrStderr(), err)
			}
			if f.asJSON {
				if jerr := writeJSON(cmd.OutOrStdout(), record); jerr != nil {
					return jerr
				}
			} else {
				printSummary(cmd.OutOrStdout(), record, f.allIssues)
			}
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.company, "company", "", "company name")
	fl.StringVar(&f.industry, "industry", "", "industry, used to pick the grading benchmark")
	fl.StringVar(&f.location, "location", "", "business location")
	fl.IntVar(&f.years, "years", 0, "years in business")
	fl.IntVar(&f.maxPages, "max-pages", 0, "pages per analyzer module (default from AUDIT_MAX_PAGES_PER_MODULE)")
	fl.IntVar(&f.concurrency, "concurrency", 0, "concurrent browser sessions")
	fl.IntVar(&f.topIssues, "top", 0, "number of top issues to select")
	fl.DurationVar(&f.deadline, "deadline", 0, "overall run deadline")
	fl.BoolVar(&f.noAIGrading, "no-ai-grading", false, "use deterministic grading only")
	fl.BoolVar(&f.noDedup, "no-dedup", false, "skip AI issue deduplication")
	fl.BoolVar(&f.noAILeads, "no-ai-leads", false, "use deterministic lead scoring only")
	fl.BoolVar(&f.asJSON, "json", false, "print the full analysis record as JSON")
	fl.BoolVar(&f.allIssues, "all-issues", false, "list every consolidated issue")
	return cmd
}

func (f *analyzeFlags) apply(cmd *cobra.Command, opts models.Options) models.Options {
	if f.maxPages > 0 {
		opts.MaxPagesPerModule = f.maxPages
	}
	if f.concurrency > 0 {
		opts.CrawlConcurrency = f.concurrency
	}
	if f.topIssues > 0 {
		opts.TopIssueLimit = f.topIssues
	}
	if f.deadline > 0 {
		opts.Deadline = f.deadline
	}
	if cmd.Flags().Changed("no-ai-grading") {
		opts.EnableAIGrading = !f.noAIGrading
	}
	if cmd.Flags().Changed("no-dedup") {
		opts.EnableDeduplication = !f.noDedup
	}
	if cmd.Flags().Changed("no-ai-leads") {
		opts.EnableAILeadScoring = !f.noAILeads
	}
	return opts
}

func newShowCmd(build backend, logger *log.Logger) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			analyzer, _, release, err := build(ctx, logger)
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			defer release()

			record, err := analyzer.Record(ctx, args[0])
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), record)
			}
			printSummary(cmd.OutOrStdout(), record, false)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full analysis record as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
