package discovery

import (
	"context"
	"net/url"
	"sync"
	"time"

	"site_auditor/internal/domain/adaptors"
	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Discoverer struct {
	log *log.Logger
	web adaptors.WebClient
}

func NewDiscoverer(log *log.Logger, web adaptors.WebClient) *Discoverer {
	return &Discoverer{log: log, web: web}
}

// sourceResult is what one discovery source found.
type sourceResult struct {
	paths []string
	err   error
}

// Discover collects candidate paths for root from its navigation, sitemaps and
// robots.txt. Sources fail independently and their errors are recorded in the
// result. When nothing is found the fixed fallback list is returned together with
// a DiscoveryError.
func (d *Discoverer) Discover(ctx context.Context, root *url.URL, timeout time.Duration) (*models.DiscoveryResult, error) {
	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sc := newScope(root)
	var (
		mu      sync.Mutex
		results = map[models.DiscoverySource]sourceResult{}
		rules   robotsRules
	)
	record := func(src models.DiscoverySource, paths []string, err error) {
		mu.Lock()
		defer mu.Unlock()
		results[src] = sourceResult{paths: paths, err: err}
	}

	g := errgroup.Group{}
	g.Go(func() error {
		body, err := d.get(ctx, root.String())
		if err != nil {
			record(models.SourceNavigation, nil, err)
			return nil
		}
		links, err := navigationLinks(sc, body)
		record(models.SourceNavigation, append([]string{`/`}, links...), err)
		return nil
	})
	g.Go(func() error {
		sitemaps := []string{root.ResolveReference(&url.URL{Path: `/sitemap.xml`}).String()}

		body, err := d.get(ctx, root.ResolveReference(&url.URL{Path: `/robots.txt`}).String())
		if err != nil {
			record(models.SourceRobots, nil, err)
		} else {
			parsed := parseRobots(string(body))
			var allowed []string
			for _, a := range parsed.pageHints() {
				if p, ok := sc.normalize(a); ok {
					allowed = append(allowed, p)
				}
			}
			mu.Lock()
			rules = parsed
			mu.Unlock()
			record(models.SourceRobots, allowed, nil)
			sitemaps = append(sitemaps, parsed.sitemaps...)
		}

		paths, err := d.collectSitemaps(ctx, sc, sitemaps)
		record(models.SourceSitemap, paths, err)
		return nil
	})
	_ = g.Wait()

	res := &models.DiscoveryResult{
		RootURL:    root.String(),
		Provenance: map[string][]models.DiscoverySource{},
		Errors:     map[models.DiscoverySource]string{},
	}
	add := func(p string, src models.DiscoverySource) {
		if !rules.allowed(p) {
			return
		}
		if _, ok := res.Provenance[p]; !ok {
			if len(res.Paths) >= maxCandidates {
				return
			}
			res.Paths = append(res.Paths, p)
		}
		for _, s := range res.Provenance[p] {
			if s == src {
				return
			}
		}
		res.Provenance[p] = append(res.Provenance[p], src)
	}

	order := []models.DiscoverySource{models.SourceNavigation, models.SourceSitemap, models.SourceRobots}
	for _, src := range order {
		r := results[src]
		if r.err != nil {
			res.Errors[src] = r.err.Error()
			d.log.WithContext(ctx).WithError(r.err).WithField(`source`, src).Warn(`discovery source failed`)
		}
		for _, p := range r.paths {
			if p == `/` {
				add(p, src)
			}
		}
	}
	for _, src := range order {
		for _, p := range results[src].paths {
			add(p, src)
		}
	}
	res.Duration = time.Since(start)

	if len(res.Paths) == 0 {
		for _, p := range models.FallbackPaths {
			res.Paths = append(res.Paths, p)
			res.Provenance[p] = []models.DiscoverySource{models.SourceFallback}
		}
		d.log.WithContext(ctx).WithField(`root`, res.RootURL).Warn(`no pages discovered, using fallback paths`)
		return res, errors.NewStageError(errors.KindDiscovery, errors.New(`no candidate pages found; using fallback paths`))
	}

	d.log.WithContext(ctx).WithFields(log.Fields{
		`root`:       res.RootURL,
		`candidates`: len(res.Paths),
		`duration`:   res.Duration.String(),
	}).Info(`discovery completed`)
	return res, nil
}

// collectSitemaps reads every listed sitemap. It fails only when none of them
// could be read.
func (d *Discoverer) collectSitemaps(ctx context.Context, sc *scope, sitemaps []string) ([]string, error) {
	seen := map[string]struct{}{}
	var (
		paths []string
		errs  []error
		read  bool
	)
	for _, sm := range lo.Uniq(lo.Compact(sitemaps)) {
		locs, err := d.fetchSitemap(ctx, sc, sm, 0, seen)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		read = true
		for _, loc := range locs {
			if p, ok := sc.normalize(loc); ok {
				paths = append(paths, p)
			}
		}
	}
	if !read && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return paths, nil
}
