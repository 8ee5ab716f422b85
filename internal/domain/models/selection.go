package models

type SelectionStrategy string

const (
	SelectionAI               SelectionStrategy = "ai"
	SelectionHomepageFallback SelectionStrategy = "homepage-fallback"
)

type PageSelection struct {
	Visual      []string          `json:"visual"`
	Content     []string          `json:"content"`
	SEO         []string          `json:"seo"`
	Social      []string          `json:"social"`
	Rationale   string            `json:"rationale"`
	UniquePages []string          `json:"unique_pages"`
	Strategy    SelectionStrategy `json:"strategy"`
}

// PagesFor returns the paths assigned to a module. Accessibility and performance
// have no list of their own and reuse the visual/content and seo/visual lists.
func (s *PageSelection) PagesFor(module Module) []string {
	switch module {
	case ModuleVisual:
		return s.Visual
	case ModuleContent:
		return s.Content
	case ModuleSEO:
		return s.SEO
	case ModuleSocial:
		return s.Social
	case ModuleAccessibility:
		return union(s.Visual, s.Content)
	case ModulePerformance:
		return union(s.SEO, s.Visual)
	}
	return nil
}

func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, p := range l {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
