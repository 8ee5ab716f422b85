package consolidation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"

	log "github.com/sirupsen/logrus"
)

const (
	TopStrategyAI       = `ai-ranked`
	TopStrategySeverity = `severity-diversity`
)

const topSystemPrompt = `You rank website problems by their business impact for a sales outreach email. ` +
	`Answer with JSON only.`

const topSchema = `{"ranking": ["issue id, most impactful first"]}`

type rankingAnswer struct {
	Ranking []string `json:"ranking"`
}

type TopSelector struct {
	log   *log.Logger
	judge adaptors.JudgmentService
}

func NewTopSelector(log *log.Logger, judge adaptors.JudgmentService) *TopSelector {
	return &TopSelector{log: log, judge: judge}
}

// SelectTop returns at most limit issues ranked by severity tier. Inside a tier
// modules take turns, fewest picks first, so one analyser cannot fill the list
// while other modules have issues of the same severity. The judgment service
// only orders issues within a tier; without it the input order is used and a
// ConsolidationError is returned alongside the result.
func (s *TopSelector) SelectTop(ctx context.Context, consolidated []models.ConsolidatedIssue, rc RunContext, limit int) (*models.TopIssueSelection, error) {
	out := &models.TopIssueSelection{Issues: []models.ConsolidatedIssue{}, Strategy: TopStrategySeverity}
	if limit <= 0 || len(consolidated) == 0 {
		return out, nil
	}

	priority := make(map[string]int, len(consolidated))
	for i, c := range consolidated {
		priority[c.Issue.ID] = len(consolidated) + i
	}

	var stageErr error
	if len(consolidated) > 1 {
		known := make(map[string]struct{}, len(consolidated))
		for _, c := range consolidated {
			known[c.Issue.ID] = struct{}{}
		}
		req := adaptors.JudgmentRequest{
			Task:      judgment.TaskTopIssues,
			System:    topSystemPrompt,
			Prompt:    topPrompt(consolidated, rc),
			Schema:    topSchema,
			MaxTokens: 1024,
		}
		res := judgment.Decode[rankingAnswer](ctx, s.judge, req, func(a *rankingAnswer) error {
			for _, id := range a.Ranking {
				if _, ok := known[strings.TrimSpace(id)]; ok {
					return nil
				}
			}
			return errors.New(`ranking contains no known issue id`)
		})
		out.Usage = res.Usage
		if res.Ok() {
			out.Strategy = TopStrategyAI
			for i, id := range res.Value.Ranking {
				id = strings.TrimSpace(id)
				if p, ok := priority[id]; ok && p >= len(consolidated) {
					priority[id] = i
				}
			}
		} else {
			stageErr = errors.NewStageError(errors.KindConsolidation, res.Error(req.Task))
			s.log.WithContext(ctx).WithError(stageErr).Warn(`ai issue ranking failed, using severity order`)
		}
	}

	out.Issues = rank(consolidated, priority, limit)
	return out, stageErr
}

// rank applies the severity tiers and module round-robin.
func rank(consolidated []models.ConsolidatedIssue, priority map[string]int, limit int) []models.ConsolidatedIssue {
	tiers := map[int][]models.ConsolidatedIssue{}
	for _, c := range consolidated {
		r := c.Issue.Severity.Rank()
		tiers[r] = append(tiers[r], c)
	}
	var ranks []int
	for r := range tiers {
		ranks = append(ranks, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	picks := map[models.Module]int{}
	out := make([]models.ConsolidatedIssue, 0, limit)
	for _, r := range ranks {
		remaining := tiers[r]
		sort.SliceStable(remaining, func(a, b int) bool {
			return priority[remaining[a].Issue.ID] < priority[remaining[b].Issue.ID]
		})
		for len(remaining) > 0 && len(out) < limit {
			best := 0
			for i := 1; i < len(remaining); i++ {
				if picks[remaining[i].Issue.Module] < picks[remaining[best].Issue.Module] {
					best = i
				}
			}
			chosen := remaining[best]
			picks[chosen.Issue.Module]++
			out = append(out, chosen)
			remaining = append(remaining[:best:best], remaining[best+1:]...)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

func topPrompt(consolidated []models.ConsolidatedIssue, rc RunContext) string {
	var b strings.Builder
	if rc.CompanyName != `` {
		fmt.Fprintf(&b, "Company: %s\n", rc.CompanyName)
	}
	if rc.Industry != `` {
		fmt.Fprintf(&b, "Industry: %s\n", rc.Industry)
	}
	b.WriteString("Rank these issues from most to least business impact:\n")
	for _, c := range consolidated {
		fmt.Fprintf(&b, "- [%s] (%s, %s) %s: %s\n", c.Issue.ID, c.Issue.Module, c.Issue.Severity, c.Issue.Title, truncate(c.Issue.Description, 200))
	}
	return b.String()
}
