package models

import "time"

type DiscoverySource string

const (
	SourceSitemap    DiscoverySource = "sitemap"
	SourceRobots     DiscoverySource = "robots"
	SourceNavigation DiscoverySource = "navigation"
	SourceFallback   DiscoverySource = "fallback"
)

// FallbackPaths is used when no source yields a candidate.
var FallbackPaths = []string{"/", "/about", "/services", "/contact", "/blog"}

type DiscoveryResult struct {
	RootURL    string                       `json:"root_url"`
	Paths      []string                     `json:"paths"`
	Provenance map[string][]DiscoverySource `json:"provenance"`
	Errors     map[DiscoverySource]string   `json:"errors,omitempty"`
	Duration   time.Duration                `json:"duration"`
}

// Contains reports whether path is one of the discovered candidates.
func (d *DiscoveryResult) Contains(path string) bool {
	for _, p := range d.Paths {
		if p == path {
			return true
		}
	}
	return false
}

// IsFallback reports whether the candidates came from the fixed fallback list.
func (d *DiscoveryResult) IsFallback() bool {
	for _, sources := range d.Provenance {
		for _, s := range sources {
			if s != SourceFallback {
				return false
			}
		}
	}
	return len(d.Paths) > 0
}
