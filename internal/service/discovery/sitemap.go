package discovery

import (
	"context"
	"encoding/xml"
	"net/http"

	"site_auditor/internal/pkg/errors"
)

// maxSitemapDepth is how many levels of sitemap indexes are followed.
const maxSitemapDepth = 2

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// fetchSitemap returns the page locations listed by sitemapURL, following
// nested indexes up to maxSitemapDepth.
func (d *Discoverer) fetchSitemap(ctx context.Context, sc *scope, sitemapURL string, depth int, seen map[string]struct{}) ([]string, error) {
	if _, ok := seen[sitemapURL]; ok {
		return nil, nil
	}
	seen[sitemapURL] = struct{}{}

	body, err := d.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && index.XMLName.Local == `sitemapindex` {
		if depth >= maxSitemapDepth {
			d.log.WithContext(ctx).WithField(`url`, sitemapURL).Debug(`sitemap index depth exceeded`)
			return nil, nil
		}
		var locs []string
		var errs []error
		for _, ref := range index.Sitemaps {
			u, err := sc.base.Parse(ref.Loc)
			if err != nil || !sc.related(u) {
				continue
			}
			nested, err := d.fetchSitemap(ctx, sc, u.String(), depth+1, seen)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			locs = append(locs, nested...)
		}
		if len(locs) == 0 && len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return locs, nil
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil || set.XMLName.Local != `urlset` {
		return nil, errors.Errorf(`%s is not a sitemap`, sitemapURL)
	}
	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if u.Loc != `` {
			locs = append(locs, u.Loc)
		}
	}
	return locs, nil
}

func (d *Discoverer) get(ctx context.Context, target string) ([]byte, error) {
	body, status, err := d.web.Do(ctx, target, http.MethodGet)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errors.Errorf(`GET %s returned status %d`, target, status)
	}
	return body, nil
}
