package adaptors

import (
	"context"
	"time"

	domain "site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
)

// PlaywrightBrowser runs one headless Chromium; every session is a fresh browser
// context.
type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	log     *log.Logger
}

func NewPlaywrightBrowser(headless bool, log *log.Logger) (*PlaywrightBrowser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.Wrap(err, `failed to start playwright`)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errors.Wrap(err, `failed to launch chromium`)
	}
	return &PlaywrightBrowser{pw: pw, browser: browser, log: log}, nil
}

func (b *PlaywrightBrowser) NewSession(ctx context.Context) (domain.BrowserSession, error) {
	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  models.DesktopViewport.Width,
			Height: models.DesktopViewport.Height,
		},
		UserAgent: playwright.String(userAgent),
	})
	if err != nil {
		return nil, errors.Wrap(err, `failed to create browser context`)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, errors.Wrap(err, `failed to open page`)
	}
	return &playwrightSession{bctx: bctx, page: page}, nil
}

func (b *PlaywrightBrowser) Close() error {
	if err := b.browser.Close(); err != nil {
		b.log.WithError(err).Warn(`failed to close browser`)
	}
	return b.pw.Stop()
}

type playwrightSession struct {
	bctx playwright.BrowserContext
	page playwright.Page
}

// Navigate waits for network idle. Playwright calls are not context aware, so the
// call is bounded by the smaller of timeout and the context deadline.
func (s *playwrightSession) Navigate(ctx context.Context, url string, timeout time.Duration) (*domain.NavigationResult, error) {
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	start := time.Now()
	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, errors.Wrap(err, `navigation failed`)
	}
	if resp == nil {
		return nil, errors.New(`navigation returned no response`)
	}
	return &domain.NavigationResult{
		StatusCode: resp.Status(),
		FinalURL:   s.page.URL(),
		LoadTime:   time.Since(start),
	}, nil
}

func (s *playwrightSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return ``, errors.Wrap(err, `failed to read page content`)
	}
	return html, nil
}

func (s *playwrightSession) Screenshot(ctx context.Context, vp models.Viewport) ([]byte, error) {
	if err := s.page.SetViewportSize(vp.Width, vp.Height); err != nil {
		return nil, errors.Wrap(err, `failed to resize viewport`)
	}
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, errors.Wrap(err, `failed to take screenshot`)
	}
	return data, nil
}

func (s *playwrightSession) Close() error {
	return s.bctx.Close()
}
