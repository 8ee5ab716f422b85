package consolidation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"

	log "github.com/sirupsen/logrus"
)

const dedupSystemPrompt = `You consolidate website audit findings. Group issues that describe the same ` +
	`underlying problem, even when reported by different analysers. Answer with JSON only.`

const dedupSchema = `{"groups": [{"keep": "issue id", "merge": ["issue id"], "rationale": "string"}]}`

// RunContext is the run information consolidation prompts include.
type RunContext struct {
	CompanyName string
	Industry    string
	Score       int
}

type mergeGroup struct {
	Keep      string   `json:"keep"`
	Merge     []string `json:"merge"`
	Rationale string   `json:"rationale"`
}

type dedupAnswer struct {
	Groups []mergeGroup `json:"groups"`
}

type Deduplicator struct {
	log   *log.Logger
	judge adaptors.JudgmentService
}

func NewDeduplicator(log *log.Logger, judge adaptors.JudgmentService) *Deduplicator {
	return &Deduplicator{log: log, judge: judge}
}

// Deduplicate consolidates issues. With enabled set it asks the judgment service
// for merge groups and repairs the plan into a partition of the input; if the
// service fails the local heuristic is used and a ConsolidationError is returned
// alongside the result. Every input id ends up in exactly one SourceIDs list.
func (d *Deduplicator) Deduplicate(ctx context.Context, issues []models.Issue, rc RunContext, enabled bool) (*models.DedupResult, error) {
	if !enabled || len(issues) < 2 {
		strategy := models.DedupDisabled
		if enabled {
			strategy = models.DedupHeuristic
		}
		groups := make([]group, len(issues))
		for i := range issues {
			groups[i] = group{members: []int{i}, keep: i}
		}
		return build(issues, groups, strategy, 0, models.JudgmentUsage{}), nil
	}

	req := adaptors.JudgmentRequest{
		Task:      judgment.TaskDeduplication,
		System:    dedupSystemPrompt,
		Prompt:    dedupPrompt(issues, rc),
		Schema:    dedupSchema,
		MaxTokens: 4096,
	}
	res := judgment.Decode[dedupAnswer](ctx, d.judge, req, nil)
	if !res.Ok() {
		err := errors.NewStageError(errors.KindConsolidation, res.Error(req.Task))
		d.log.WithContext(ctx).WithError(err).Warn(`ai deduplication failed, using heuristic merge`)
		return HeuristicDeduplicate(issues, res.Usage), err
	}

	groups, corrections := repairPlan(issues, res.Value.Groups)
	if corrections > 0 {
		d.log.WithContext(ctx).WithField(`corrections`, corrections).Warn(`merge plan was not a partition, corrected`)
	}
	out := build(issues, groups, models.DedupAI, corrections, res.Usage)
	d.log.WithContext(ctx).WithFields(log.Fields{
		`original`:     out.Stats.OriginalCount,
		`consolidated`: out.Stats.ConsolidatedCount,
		`reduction`:    out.Stats.ReductionPercentage,
	}).Info(`issues deduplicated`)
	return out, nil
}

// HeuristicDeduplicate merges issues with equal normalized titles, or the same
// module and severity with similar titles.
func HeuristicDeduplicate(issues []models.Issue, usage models.JudgmentUsage) *models.DedupResult {
	var groups []group
	for _, members := range heuristicGroups(issues) {
		g := group{members: members, keep: representative(issues, members)}
		if len(members) > 1 {
			g.rationale = fmt.Sprintf(`similar titles: %q`, issues[g.keep].Title)
		}
		groups = append(groups, g)
	}
	return build(issues, groups, models.DedupHeuristic, 0, usage)
}

type group struct {
	members   []int
	keep      int
	rationale string
}

// repairPlan turns the service's merge groups into a partition of issues. Unknown
// ids are dropped, ids claimed by more than one group are left unmerged, and a
// keep that is not a member is replaced by the highest-severity member. Each fix
// counts as one correction. Issues no group mentions stay on their own.
func repairPlan(issues []models.Issue, plan []mergeGroup) ([]group, int) {
	index := make(map[string]int, len(issues))
	for i, issue := range issues {
		index[issue.ID] = i
	}

	corrections := 0
	claims := map[int]int{}
	members := make([][]int, len(plan))
	for g, mg := range plan {
		seen := map[int]struct{}{}
		for n, id := range append([]string{mg.Keep}, mg.Merge...) {
			id = strings.TrimSpace(id)
			if id == `` {
				continue
			}
			i, ok := index[id]
			if !ok {
				// an unknown keep is counted when it is replaced
				if n > 0 {
					corrections++
				}
				continue
			}
			if _, dup := seen[i]; dup {
				continue
			}
			seen[i] = struct{}{}
			members[g] = append(members[g], i)
			claims[i]++
		}
	}
	for _, n := range claims {
		if n > 1 {
			corrections++
		}
	}

	assigned := map[int]struct{}{}
	var groups []group
	for g, mg := range plan {
		var kept []int
		for _, i := range members[g] {
			if claims[i] == 1 {
				kept = append(kept, i)
			}
		}
		if len(kept) == 0 {
			continue
		}
		sort.Ints(kept)

		keep, ok := index[strings.TrimSpace(mg.Keep)]
		if !ok || claims[keep] != 1 {
			keep = representative(issues, kept)
			corrections++
		}
		for _, i := range kept {
			assigned[i] = struct{}{}
		}
		groups = append(groups, group{members: kept, keep: keep, rationale: mg.Rationale})
	}

	for i := range issues {
		if _, ok := assigned[i]; !ok {
			groups = append(groups, group{members: []int{i}, keep: i})
		}
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].members[0] < groups[b].members[0]
	})
	return groups, corrections
}

func build(issues []models.Issue, groups []group, strategy models.DedupStrategy, corrections int, usage models.JudgmentUsage) *models.DedupResult {
	out := &models.DedupResult{
		Consolidated: make([]models.ConsolidatedIssue, 0, len(groups)),
		MergeLog:     []models.MergeEntry{},
		Usage:        usage,
	}
	for _, g := range groups {
		ids := make([]string, 0, len(g.members))
		var merged []string
		for _, i := range g.members {
			ids = append(ids, issues[i].ID)
			if i != g.keep {
				merged = append(merged, issues[i].ID)
			}
		}
		out.Consolidated = append(out.Consolidated, models.ConsolidatedIssue{
			Issue:     issues[g.keep],
			SourceIDs: ids,
			Rationale: g.rationale,
		})
		if len(merged) > 0 {
			out.MergeLog = append(out.MergeLog, models.MergeEntry{
				KeptID:    issues[g.keep].ID,
				MergedIDs: merged,
				Rationale: g.rationale,
			})
		}
	}

	out.Stats = models.DedupStats{
		OriginalCount:     len(issues),
		ConsolidatedCount: len(out.Consolidated),
		Strategy:          strategy,
		Corrections:       corrections,
	}
	if len(issues) > 0 {
		reduction := float64(len(issues)-len(out.Consolidated)) / float64(len(issues)) * 100
		out.Stats.ReductionPercentage = math.Round(reduction*10) / 10
	}
	return out
}

func dedupPrompt(issues []models.Issue, rc RunContext) string {
	var b strings.Builder
	if rc.CompanyName != `` {
		fmt.Fprintf(&b, "Company: %s\n", rc.CompanyName)
	}
	if rc.Industry != `` {
		fmt.Fprintf(&b, "Industry: %s\n", rc.Industry)
	}
	fmt.Fprintf(&b, "Current overall score: %d/100\n\n", rc.Score)
	b.WriteString("Issues:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- [%s] (%s, %s) %s: %s\n", issue.ID, issue.Module, issue.Severity, issue.Title, truncate(issue.Description, 240))
	}
	b.WriteString("\nReturn one group per set of duplicates. Issues without duplicates may be omitted.")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + `…`
}
