package adaptors

import (
	"context"
	"time"

	"site_auditor/internal/domain/models"
)

// NavigationResult describes the document a session landed on.
type NavigationResult struct {
	StatusCode int
	FinalURL   string
	LoadTime   time.Duration
}

// BrowserSession is one isolated browsing context. Close tears it down and aborts
// any call still running in it.
type BrowserSession interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigationResult, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, viewport models.Viewport) ([]byte, error)
	Close() error
}

type Browser interface {
	NewSession(ctx context.Context) (BrowserSession, error)
}
