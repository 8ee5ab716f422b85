package discovery

import (
	"net/url"
	"path"
	"strings"

	"site_auditor/internal/pkg/errors"

	"golang.org/x/net/publicsuffix"
)

// maxCandidates bounds the candidate set handed to page selection.
const maxCandidates = 200

var assetExtensions = map[string]struct{}{
	`.jpg`: {}, `.jpeg`: {}, `.png`: {}, `.gif`: {}, `.svg`: {}, `.webp`: {}, `.ico`: {},
	`.css`: {}, `.js`: {}, `.json`: {}, `.xml`: {}, `.txt`: {}, `.pdf`: {}, `.zip`: {},
	`.mp3`: {}, `.mp4`: {}, `.webm`: {}, `.woff`: {}, `.woff2`: {}, `.ttf`: {}, `.eot`: {},
}

// scope decides whether a URL belongs to the audited site.
type scope struct {
	base       *url.URL
	host       string
	registered string
}

// ParseRoot validates a user supplied site URL. A missing scheme defaults to https.
func ParseRoot(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == `` {
		return nil, errors.New(`url is empty`)
	}
	if !strings.Contains(raw, `://`) {
		raw = `https://` + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, `failed to parse url`)
	}
	if u.Scheme != `http` && u.Scheme != `https` {
		return nil, errors.Errorf(`unsupported scheme %q`, u.Scheme)
	}
	if u.Hostname() == `` {
		return nil, errors.New(`url has no host`)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: `/`}, nil
}

func newScope(base *url.URL) *scope {
	host := stripWWW(strings.ToLower(base.Hostname()))
	registered, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registered = host
	}
	return &scope{base: base, host: host, registered: registered}
}

// contains reports whether u is served by the audited host. Candidates are
// paths on that host, so sibling subdomains are out of scope.
func (s *scope) contains(u *url.URL) bool {
	return stripWWW(strings.ToLower(u.Hostname())) == s.host
}

// related reports whether u shares the site's registrable domain. Sitemap
// indexes often list child sitemaps on a sibling host.
func (s *scope) related(u *url.URL) bool {
	if s.contains(u) {
		return true
	}
	registered, err := publicsuffix.EffectiveTLDPlusOne(stripWWW(strings.ToLower(u.Hostname())))
	return err == nil && registered == s.registered
}

// normalize turns an href or absolute URL into an in-site path: query and
// fragment dropped, duplicate slashes collapsed, no trailing slash except root.
func (s *scope) normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == `` || strings.HasPrefix(raw, `#`) {
		return ``, false
	}
	lower := strings.ToLower(raw)
	for _, prefix := range []string{`mailto:`, `tel:`, `javascript:`, `data:`} {
		if strings.HasPrefix(lower, prefix) {
			return ``, false
		}
	}

	u, err := s.base.Parse(raw)
	if err != nil {
		return ``, false
	}
	if u.Scheme != `http` && u.Scheme != `https` {
		return ``, false
	}
	if !s.contains(u) {
		return ``, false
	}

	p := u.Path
	for strings.Contains(p, `//`) {
		p = strings.ReplaceAll(p, `//`, `/`)
	}
	if p == `` {
		p = `/`
	}
	if !strings.HasPrefix(p, `/`) {
		p = `/` + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, `/`)
		if p == `` {
			p = `/`
		}
	}
	if _, ok := assetExtensions[strings.ToLower(path.Ext(p))]; ok {
		return ``, false
	}
	return p, true
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, `www.`)
}
