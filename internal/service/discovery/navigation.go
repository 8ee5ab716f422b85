package discovery

import (
	"bytes"

	"site_auditor/internal/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// navigationSelector matches links inside the page landmarks that usually hold
// the site's main navigation.
const navigationSelector = `nav a[href], header a[href], footer a[href], [role="navigation"] a[href]`

// navigationLinks extracts in-site paths from the homepage. Landmark links are
// preferred; every anchor is used when the page has none.
func navigationLinks(sc *scope, body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, `failed to parse homepage`)
	}

	collect := func(sel *goquery.Selection) []string {
		var paths []string
		sel.Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr(`href`)
			if p, ok := sc.normalize(href); ok {
				paths = append(paths, p)
			}
		})
		return paths
	}

	paths := collect(doc.Find(navigationSelector))
	if len(paths) == 0 {
		paths = collect(doc.Find(`a[href]`))
	}
	return paths, nil
}
