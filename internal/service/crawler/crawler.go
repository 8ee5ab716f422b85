package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"
	"site_auditor/internal/pkg/worker_pool"

	log "github.com/sirupsen/logrus"
)

type Crawler struct {
	log     *log.Logger
	browser adaptors.Browser
}

func NewCrawler(log *log.Logger, browser adaptors.Browser) *Crawler {
	return &Crawler{log: log, browser: browser}
}

// Crawl captures every path on a bounded worker pool. Pages fail independently;
// a failed page is listed in FailedPages and never in Pages. If no page could be
// captured the result is returned with a "no pages crawled" PipelineError; if
// only some failed, with a CrawlPageError.
func (c *Crawler) Crawl(ctx context.Context, root *url.URL, paths []string, concurrency int, perPageTimeout time.Duration) (*models.CrawlResult, error) {
	start := time.Now()
	pool := worker_pool.NewWorkerPool(ctx, concurrency, false, c.log)

	go func() {
		for _, p := range paths {
			target := root.ResolveReference(&url.URL{Path: p}).String()
			path := p
			err := pool.Submit(path, func(ctx context.Context) (any, error) {
				return c.capture(ctx, path, target, perPageTimeout)
			})
			if err != nil {
				c.log.WithContext(ctx).WithError(err).WithField(`path`, path).Error(`failed to submit crawl task`)
			}
		}
		pool.Wait()
	}()

	captured := map[string]*models.CrawledPage{}
	failed := map[string]error{}
	for res := range pool.ResultsCh {
		if res.Err != nil {
			failed[res.ID] = res.Err
			continue
		}
		captured[res.ID] = res.Result.(*models.CrawledPage)
	}

	result := &models.CrawlResult{Pages: []models.CrawledPage{}, FailedPages: []models.FailedPage{}}
	for _, p := range paths {
		if page, ok := captured[p]; ok {
			result.Pages = append(result.Pages, *page)
			metrics.CrawledPagesTotal.WithLabelValues(`ok`).Inc()
			continue
		}
		err, ok := failed[p]
		if !ok {
			err = errors.New(`page was not crawled`)
		}
		result.FailedPages = append(result.FailedPages, models.FailedPage{
			Path:  p,
			URL:   root.ResolveReference(&url.URL{Path: p}).String(),
			Error: err.Error(),
		})
		metrics.CrawledPagesTotal.WithLabelValues(`failed`).Inc()
		c.log.WithContext(ctx).WithError(err).WithField(`path`, p).Warn(`page crawl failed`)
	}
	result.Duration = time.Since(start)

	c.log.WithContext(ctx).WithFields(log.Fields{
		`pages`:    len(result.Pages),
		`failed`:   len(result.FailedPages),
		`duration`: result.Duration.String(),
	}).Info(`crawl completed`)

	switch {
	case len(result.Pages) == 0:
		return result, errors.NewPipelineError(errors.ReasonNoPagesCrawled, fmt.Errorf(`%d of %d pages failed`, len(result.FailedPages), len(paths)))
	case len(result.FailedPages) > 0:
		return result, errors.NewStageError(errors.KindCrawlPage, fmt.Errorf(`%d of %d pages failed`, len(result.FailedPages), len(paths)))
	}
	return result, nil
}

type captureResult struct {
	page *models.CrawledPage
	err  error
}

// capture visits one page in its own browser session. When the per-page timeout
// or the run context ends first, the session is closed and the page abandoned.
func (c *Crawler) capture(ctx context.Context, path, target string, timeout time.Duration) (*models.CrawledPage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := c.browser.NewSession(ctx)
	if err != nil {
		return nil, errors.NewStageError(errors.KindCrawlPage, errors.Wrap(err, `failed to open browser session`))
	}
	defer func() {
		if err := session.Close(); err != nil {
			c.log.WithError(err).WithField(`path`, path).Debug(`failed to close browser session`)
		}
	}()

	done := make(chan captureResult, 1)
	go func() {
		page, err := c.visit(ctx, session, path, target, timeout)
		done <- captureResult{page: page, err: err}
	}()

	select {
	case r := <-done:
		return r.page, r.err
	case <-ctx.Done():
		return nil, errors.NewStageError(errors.KindCrawlPage, fmt.Errorf(`capture of %s abandoned: %w`, path, ctx.Err()))
	}
}

func (c *Crawler) visit(ctx context.Context, session adaptors.BrowserSession, path, target string, timeout time.Duration) (*models.CrawledPage, error) {
	nav, err := session.Navigate(ctx, target, timeout)
	if err != nil {
		return nil, errors.NewStageError(errors.KindCrawlPage, fmt.Errorf(`navigate %s: %w`, target, err))
	}
	if nav.StatusCode >= 400 {
		return nil, errors.NewStageError(errors.KindCrawlPage, fmt.Errorf(`navigate %s: status %d`, target, nav.StatusCode))
	}

	doc, err := session.HTML(ctx)
	if err != nil {
		return nil, errors.NewStageError(errors.KindCrawlPage, fmt.Errorf(`read html of %s: %w`, target, err))
	}

	shots := make(map[models.ViewportKind]*models.Screenshot, 2)
	for _, vp := range []models.Viewport{models.DesktopViewport, models.MobileViewport} {
		data, err := session.Screenshot(ctx, vp)
		if err != nil {
			return nil, errors.NewStageError(errors.KindCrawlPage, fmt.Errorf(`%s screenshot of %s: %w`, vp.Kind, target, err))
		}
		shots[vp.Kind] = &models.Screenshot{Viewport: vp.Kind, Data: data}
	}

	meta := extractMetadata(doc)
	meta.LoadTime = nav.LoadTime
	meta.StatusCode = nav.StatusCode
	meta.FinalURL = nav.FinalURL

	c.log.WithContext(ctx).WithFields(log.Fields{
		`path`:      path,
		`status`:    nav.StatusCode,
		`load_time`: nav.LoadTime.String(),
	}).Debug(`page captured`)

	return &models.CrawledPage{
		Path:      path,
		URL:       target,
		Success:   true,
		HTML:      doc,
		Desktop:   shots[models.ViewportDesktop],
		Mobile:    shots[models.ViewportMobile],
		Metadata:  meta,
		CrawledAt: time.Now().UTC(),
	}, nil
}
