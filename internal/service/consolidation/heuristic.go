package consolidation

import (
	"strings"
	"unicode"

	"site_auditor/internal/domain/models"
)

// similarityThreshold is the title token Jaccard index above which two issues of
// the same module and severity are considered duplicates.
const similarityThreshold = 0.6

var stopwords = map[string]struct{}{
	`a`: {}, `an`: {}, `the`: {}, `of`: {}, `on`: {}, `in`: {}, `to`: {}, `for`: {},
	`and`: {}, `or`: {}, `is`: {}, `are`: {}, `with`: {}, `page`: {}, `pages`: {},
}

func normalizeTitle(title string) string {
	return strings.Join(tokens(title), ` `)
}

func tokens(title string) []string {
	return strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(title string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range tokens(title) {
		if _, stop := stopwords[t]; !stop {
			set[t] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// duplicates reports whether two issues describe the same problem.
func duplicates(a, b models.Issue) bool {
	if normalizeTitle(a.Title) == normalizeTitle(b.Title) {
		return true
	}
	if a.Module != b.Module || a.Severity != b.Severity {
		return false
	}
	return jaccard(tokenSet(a.Title), tokenSet(b.Title)) >= similarityThreshold
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// heuristicGroups clusters issues by transitive pairwise duplication. Groups are
// returned as index lists in input order.
func heuristicGroups(issues []models.Issue) [][]int {
	uf := newUnionFind(len(issues))
	for i := 0; i < len(issues); i++ {
		for j := i + 1; j < len(issues); j++ {
			if duplicates(issues[i], issues[j]) {
				uf.union(i, j)
			}
		}
	}

	index := map[int]int{}
	var groups [][]int
	for i := range issues {
		root := uf.find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// representative picks the issue a group keeps: highest severity, then longest
// description, then earliest.
func representative(issues []models.Issue, members []int) int {
	best := members[0]
	for _, m := range members[1:] {
		a, b := issues[m], issues[best]
		switch {
		case a.Severity.Rank() > b.Severity.Rank():
			best = m
		case a.Severity.Rank() == b.Severity.Rank() && len(a.Description) > len(b.Description):
			best = m
		}
	}
	return best
}
