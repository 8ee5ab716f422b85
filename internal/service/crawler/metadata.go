package crawler

import (
	"sort"
	"strings"

	"site_auditor/internal/domain/models"

	"golang.org/x/net/html"
)

// fingerprints maps a lowercase substring of a script src, link href or
// generator tag to the technology it indicates.
var fingerprints = []struct {
	needle string
	tech   string
}{
	{`wp-content`, `WordPress`},
	{`wp-includes`, `WordPress`},
	{`wordpress`, `WordPress`},
	{`cdn.shopify.com`, `Shopify`},
	{`squarespace`, `Squarespace`},
	{`wix.com`, `Wix`},
	{`wixstatic`, `Wix`},
	{`webflow`, `Webflow`},
	{`/_next/`, `Next.js`},
	{`jquery`, `jQuery`},
	{`bootstrap`, `Bootstrap`},
	{`googletagmanager.com`, `Google Tag Manager`},
	{`google-analytics.com`, `Google Analytics`},
	{`gtag/js`, `Google Analytics`},
	{`connect.facebook.net`, `Meta Pixel`},
	{`hotjar`, `Hotjar`},
	{`drupal`, `Drupal`},
	{`joomla`, `Joomla`},
}

// extractMetadata walks the rendered document once and records resource counts,
// viewport meta presence and detected technologies.
func extractMetadata(doc string) models.CaptureMetadata {
	meta := models.CaptureMetadata{HTMLBytes: len(doc)}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return meta
	}

	tech := map[string]struct{}{}
	detect := func(v string) {
		v = strings.ToLower(v)
		for _, f := range fingerprints {
			if strings.Contains(v, f.needle) {
				tech[f.tech] = struct{}{}
			}
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case `script`:
				meta.ScriptCount++
				if src := attr(n, `src`); src != `` {
					detect(src)
				}
			case `img`:
				meta.ImageCount++
			case `link`:
				if strings.EqualFold(attr(n, `rel`), `stylesheet`) {
					meta.StylesheetCount++
					detect(attr(n, `href`))
				}
			case `meta`:
				switch strings.ToLower(attr(n, `name`)) {
				case `viewport`:
					meta.HasViewportMeta = strings.Contains(attr(n, `content`), `width`)
				case `generator`:
					detect(attr(n, `content`))
				}
			case `div`:
				if attr(n, `id`) == `__next` {
					tech[`Next.js`] = struct{}{}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for t := range tech {
		meta.TechStack = append(meta.TechStack, t)
	}
	sort.Strings(meta.TechStack)
	return meta
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ``
}
