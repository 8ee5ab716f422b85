package models

import "time"

type ViewportKind string

const (
	ViewportDesktop ViewportKind = "desktop"
	ViewportMobile  ViewportKind = "mobile"
)

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Kind   ViewportKind `json:"kind"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
}

var (
	DesktopViewport = Viewport{Kind: ViewportDesktop, Width: 1440, Height: 900}
	MobileViewport  = Viewport{Kind: ViewportMobile, Width: 390, Height: 844}
)

// Screenshot holds image bytes until persisted; afterwards only Ref is set.
type Screenshot struct {
	Viewport ViewportKind `json:"viewport"`
	Data     []byte       `json:"-"`
	Ref      string       `json:"ref,omitempty"`
}

type CaptureMetadata struct {
	LoadTime        time.Duration `json:"load_time"`
	StatusCode      int           `json:"status_code"`
	FinalURL        string        `json:"final_url"`
	HTMLBytes       int           `json:"html_bytes"`
	ScriptCount     int           `json:"script_count"`
	ImageCount      int           `json:"image_count"`
	StylesheetCount int           `json:"stylesheet_count"`
	HasViewportMeta bool          `json:"has_viewport_meta"`
	TechStack       []string      `json:"tech_stack,omitempty"`
}

type CrawledPage struct {
	Path      string          `json:"path"`
	URL       string          `json:"url"`
	Success   bool            `json:"success"`
	HTML      string          `json:"-"`
	Desktop   *Screenshot     `json:"desktop,omitempty"`
	Mobile    *Screenshot     `json:"mobile,omitempty"`
	Metadata  CaptureMetadata `json:"metadata"`
	Error     string          `json:"error,omitempty"`
	CrawledAt time.Time       `json:"crawled_at"`
}

// FailedPage records a path the crawler could not capture.
type FailedPage struct {
	Path  string `json:"path"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

type CrawlResult struct {
	Pages       []CrawledPage `json:"pages"`
	FailedPages []FailedPage  `json:"failed_pages"`
	Duration    time.Duration `json:"duration"`
}

// Page returns the crawled page for path, if it was captured.
func (c *CrawlResult) Page(path string) (CrawledPage, bool) {
	for _, p := range c.Pages {
		if p.Path == path {
			return p, true
		}
	}
	return CrawledPage{}, false
}
