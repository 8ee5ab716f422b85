package crawler

import (
	"context"
	"io"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

type fakePage struct {
	html   string
	status int
	err    error
	hang   bool
}

type fakeBrowser struct {
	pages  map[string]fakePage
	active int32
	peak   int32
	opened int32
	closed int32
}

func (b *fakeBrowser) NewSession(ctx context.Context) (adaptors.BrowserSession, error) {
	atomic.AddInt32(&b.opened, 1)
	n := atomic.AddInt32(&b.active, 1)
	for {
		p := atomic.LoadInt32(&b.peak)
		if n <= p || atomic.CompareAndSwapInt32(&b.peak, p, n) {
			break
		}
	}
	return &fakeSession{browser: b}, nil
}

type fakeSession struct {
	browser *fakeBrowser
	page    fakePage
	once    sync.Once
}

func (s *fakeSession) Navigate(ctx context.Context, target string, _ time.Duration) (*adaptors.NavigationResult, error) {
	u, _ := url.Parse(target)
	page, ok := s.browser.pages[u.Path]
	if !ok {
		page = fakePage{status: 404}
	}
	s.page = page
	if page.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if page.err != nil {
		return nil, page.err
	}
	time.Sleep(5 * time.Millisecond)
	return &adaptors.NavigationResult{StatusCode: page.status, FinalURL: target, LoadTime: 120 * time.Millisecond}, nil
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	return s.page.html, nil
}

func (s *fakeSession) Screenshot(ctx context.Context, vp models.Viewport) ([]byte, error) {
	return []byte(string(vp.Kind)), nil
}

func (s *fakeSession) Close() error {
	s.once.Do(func() {
		atomic.AddInt32(&s.browser.active, -1)
		atomic.AddInt32(&s.browser.closed, 1)
	})
	return nil
}

var root = &url.URL{Scheme: `https`, Host: `example.com`, Path: `/`}

const wordpressPage = `<!DOCTYPE html><html><head>
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="WordPress 6.4">
<link rel="stylesheet" href="/wp-content/themes/x/style.css">
<script src="https://www.googletagmanager.com/gtag/js?id=G-1"></script>
<script>window.dataLayer = [];</script>
</head><body><img src="/a.png"><img src="/b.png"></body></html>`

func TestCrawlIsolatesFailures(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{
		`/`:        {html: wordpressPage, status: 200},
		`/about`:   {html: `<html></html>`, status: 200},
		`/broken`:  {status: 500},
		`/slow`:    {hang: true},
		`/contact`: {html: `<html></html>`, status: 200},
	}}

	res, err := NewCrawler(testLogger(), browser).Crawl(context.Background(), root,
		[]string{`/`, `/about`, `/broken`, `/slow`, `/contact`, `/missing`}, 2, 50*time.Millisecond)

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindCrawlPage))

	var ok []string
	for _, p := range res.Pages {
		ok = append(ok, p.Path)
		assert.True(t, p.Success)
		assert.NotEmpty(t, p.HTML)
		require.NotNil(t, p.Desktop)
		require.NotNil(t, p.Mobile)
		assert.Equal(t, []byte(`desktop`), p.Desktop.Data)
		assert.Equal(t, []byte(`mobile`), p.Mobile.Data)
	}
	assert.Equal(t, []string{`/`, `/about`, `/contact`}, ok)

	var failed []string
	for _, f := range res.FailedPages {
		failed = append(failed, f.Path)
		assert.NotEmpty(t, f.Error)
	}
	assert.Equal(t, []string{`/broken`, `/slow`, `/missing`}, failed)

	assert.LessOrEqual(t, atomic.LoadInt32(&browser.peak), int32(2))
	assert.Equal(t, atomic.LoadInt32(&browser.opened), atomic.LoadInt32(&browser.closed))

	home, found := res.Page(`/`)
	require.True(t, found)
	assert.Equal(t, []string{`Google Analytics`, `Google Tag Manager`, `WordPress`}, home.Metadata.TechStack)
	assert.True(t, home.Metadata.HasViewportMeta)
	assert.Equal(t, 2, home.Metadata.ScriptCount)
	assert.Equal(t, 2, home.Metadata.ImageCount)
	assert.Equal(t, 1, home.Metadata.StylesheetCount)
	assert.Equal(t, 200, home.Metadata.StatusCode)
	assert.Equal(t, 120*time.Millisecond, home.Metadata.LoadTime)
}

func TestCrawlUnreachableSiteIsFatal(t *testing.T) {
	dnsErr := &net.DNSError{Err: `no such host`, Name: `example.com`, IsNotFound: true}
	pages := map[string]fakePage{}
	paths := []string{`/`, `/about`, `/services`, `/contact`, `/blog`}
	for _, p := range paths {
		pages[p] = fakePage{err: dnsErr}
	}

	res, err := NewCrawler(testLogger(), &fakeBrowser{pages: pages}).Crawl(context.Background(), root, paths, 3, time.Second)

	var pe *errors.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, `no pages crawled`, pe.Error())
	assert.Empty(t, res.Pages)
	assert.Len(t, res.FailedPages, len(paths))
}

func TestCrawlStopsOnRunCancellation(t *testing.T) {
	pages := map[string]fakePage{}
	paths := []string{`/a`, `/b`, `/c`, `/d`}
	for _, p := range paths {
		pages[p] = fakePage{hang: true}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := NewCrawler(testLogger(), &fakeBrowser{pages: pages}).Crawl(ctx, root, paths, 2, time.Minute)

	assert.Error(t, err)
	assert.Empty(t, res.Pages)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExtractMetadataNextApp(t *testing.T) {
	meta := extractMetadata(`<html><head><script src="/_next/static/chunks/main.js"></script></head><body><div id="__next"></div></body></html>`)

	assert.Equal(t, []string{`Next.js`}, meta.TechStack)
	assert.False(t, meta.HasViewportMeta)
	assert.Equal(t, 1, meta.ScriptCount)
}
