package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func gradeColor(letter string) *color.Color {
	switch letter {
	case "A", "B":
		return green
	case "C":
		return yellow
	default:
		return red
	}
}

func tierColor(tier models.LeadTier) *color.Color {
	switch tier {
	case models.LeadHot:
		return red
	case models.LeadWarm:
		return yellow
	default:
		return cyan
	}
}

func severityColor(s models.Severity) *color.Color {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return red
	case models.SeverityMedium:
		return yellow
	default:
		return dim
	}
}

func printSummary(w io.Writer, rec *models.AnalysisRecord, allIssues bool) {
	fmt.Fprintln(w)
	bold.Fprintf(w, "%s\n", rec.URL)
	dim.Fprintf(w, "run %s, %d pages crawled, %s\n", rec.ID, len(rec.Crawl.Pages), rec.CompletedAt.Sub(rec.StartedAt).Round(time.Millisecond))

	fmt.Fprintln(w)
	fmt.Fprint(w, "Grade  ")
	gradeColor(rec.Grade.Letter).Fprintf(w, "%s (%d/100)", rec.Grade.Letter, rec.Grade.Score)
	dim.Fprintf(w, "  %s", rec.Grade.Strategy)
	if rec.Grade.Benchmark != "" {
		dim.Fprintf(w, ", %s benchmark", rec.Grade.Benchmark)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, "Lead   ")
	tierColor(rec.Lead.Tier).Fprintf(w, "%s (priority %d)", strings.ToUpper(string(rec.Lead.Tier)), rec.Lead.Priority)
	fmt.Fprintln(w)

	fmt.Fprintln(w)
	bold.Fprintln(w, "Scores")
	for _, d := range models.AllDimensions {
		score, ok := rec.Scores[d]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-14s %3d", d, score)
		if r := rec.Results[moduleFor(d)]; r != nil && r.Degraded {
			yellow.Fprintf(w, "%s  degraded\n", line)
			continue
		}
		fmt.Fprintln(w, line)
	}

	issues := rec.TopIssues.Issues
	title := "Top issues"
	if allIssues {
		issues = rec.Dedup.Consolidated
		title = "All issues"
	}
	if len(issues) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, title)
		for i, ci := range issues {
			fmt.Fprintf(w, "  %d. ", i+1)
			severityColor(ci.Issue.Severity).Fprintf(w, "[%s]", ci.Issue.Severity)
			fmt.Fprintf(w, " %s", ci.Issue.Title)
			if ci.Issue.QuickWin {
				green.Fprint(w, " quick win")
			}
			fmt.Fprintln(w)
		}
	}

	if rec.Critique.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, rec.Critique.Summary)
	}

	if degraded := degradedPhases(rec.Phases); len(degraded) > 0 {
		fmt.Fprintln(w)
		yellow.Fprintf(w, "degraded: %s\n", strings.Join(degraded, ", "))
	}
	if !rec.Persistence.Saved && rec.Persistence.Error != "" {
		red.Fprintf(w, "not saved: %s\n", rec.Persistence.Error)
	}
}

func moduleFor(d models.Dimension) models.Module {
	for _, m := range models.AllModules {
		if models.DimensionOf(m) == d {
			return m
		}
	}
	return models.Module(d)
}

func degradedPhases(phases []models.Phase) []string {
	var out []string
	for _, p := range phases {
		if p.Status == models.PhaseDegraded {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}

// report prints err for a terminal reader and returns it.
func report(w io.Writer, err error) error {
	var pe *errors.PipelineError
	if errors.As(err, &pe) {
		red.Fprintf(w, "analysis stopped: %s\n", pe.Reason)
		return err
	}
	red.Fprintf(w, "error: %v\n", err)
	return err
}
