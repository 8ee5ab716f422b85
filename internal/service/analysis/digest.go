package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"site_auditor/internal/domain/models"

	"github.com/PuerkitoBio/goquery"
)

const maxTextChars = 4000

var (
	spaceRe       = regexp.MustCompile(`\s+`)
	socialDomains = []string{`facebook.com`, `instagram.com`, `linkedin.com`, `twitter.com`, `x.com`, `youtube.com`, `tiktok.com`, `pinterest.com`}
	vagueLinkText = map[string]struct{}{`click here`: {}, `here`: {}, `read more`: {}, `more`: {}, `learn more`: {}}
)

func parse(page models.CrawledPage) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(``))
	}
	return doc
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, ` `))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + `…`
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr(`content`)
	return clean(v)
}

func headings(doc *goquery.Document) []string {
	var out []string
	doc.Find(`h1, h2, h3`).Each(func(_ int, s *goquery.Selection) {
		if t := clean(s.Text()); t != `` {
			out = append(out, fmt.Sprintf(`%s: %s`, goquery.NodeName(s), truncate(t, 120)))
		}
	})
	return out
}

func visibleText(doc *goquery.Document) string {
	body := doc.Find(`body`).Clone()
	body.Find(`script, style, noscript, svg, template`).Remove()
	return truncate(clean(body.Text()), maxTextChars)
}

func pageHeader(b *strings.Builder, page models.CrawledPage) {
	fmt.Fprintf(b, "\n## Page %s (%s)\n", page.Path, page.URL)
}

// visualDigest describes layout signals; the screenshots carry the rest.
func visualDigest(page models.CrawledPage) string {
	doc := parse(page)
	var b strings.Builder
	pageHeader(&b, page)
	fmt.Fprintf(&b, "Title: %s\n", clean(doc.Find(`title`).First().Text()))
	fmt.Fprintf(&b, "Images: %d, stylesheets: %d, responsive viewport meta: %t\n",
		page.Metadata.ImageCount, page.Metadata.StylesheetCount, page.Metadata.HasViewportMeta)
	if len(page.Metadata.TechStack) > 0 {
		fmt.Fprintf(&b, "Built with: %s\n", strings.Join(page.Metadata.TechStack, `, `))
	}
	for _, h := range headings(doc) {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	return b.String()
}

func seoDigest(page models.CrawledPage) string {
	doc := parse(page)
	var b strings.Builder
	pageHeader(&b, page)
	title := clean(doc.Find(`title`).First().Text())
	desc := metaContent(doc, `meta[name="description"]`)
	canonical, _ := doc.Find(`link[rel="canonical"]`).First().Attr(`href`)
	lang, _ := doc.Find(`html`).First().Attr(`lang`)

	fmt.Fprintf(&b, "HTTP status: %d, final URL: %s, load time: %s\n", page.Metadata.StatusCode, page.Metadata.FinalURL, page.Metadata.LoadTime)
	fmt.Fprintf(&b, "Title (%d chars): %s\n", len(title), title)
	fmt.Fprintf(&b, "Meta description (%d chars): %s\n", len(desc), desc)
	fmt.Fprintf(&b, "Canonical: %s\nRobots meta: %s\nLang: %s\n", canonical, metaContent(doc, `meta[name="robots"]`), lang)
	fmt.Fprintf(&b, "H1 count: %d, H2 count: %d\n", doc.Find(`h1`).Length(), doc.Find(`h2`).Length())
	fmt.Fprintf(&b, "Images without alt: %d of %d\n", doc.Find(`img:not([alt])`).Length(), doc.Find(`img`).Length())
	fmt.Fprintf(&b, "Structured data blocks: %d\n", doc.Find(`script[type="application/ld+json"]`).Length())
	fmt.Fprintf(&b, "Open Graph tags: %d, viewport meta: %t\n", doc.Find(`meta[property^="og:"]`).Length(), page.Metadata.HasViewportMeta)
	for _, h := range headings(doc) {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	return b.String()
}

func contentDigest(page models.CrawledPage) string {
	doc := parse(page)
	var b strings.Builder
	pageHeader(&b, page)
	fmt.Fprintf(&b, "Title: %s\n", clean(doc.Find(`title`).First().Text()))
	for _, h := range headings(doc) {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	fmt.Fprintf(&b, "Text:\n%s\n", visibleText(doc))
	return b.String()
}

func socialDigest(page models.CrawledPage) string {
	doc := parse(page)
	var b strings.Builder
	pageHeader(&b, page)
	doc.Find(`meta[property^="og:"], meta[name^="twitter:"]`).Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr(`property`)
		if !ok {
			key, _ = s.Attr(`name`)
		}
		v, _ := s.Attr(`content`)
		fmt.Fprintf(&b, "%s = %s\n", key, truncate(clean(v), 200))
	})

	profiles := map[string]struct{}{}
	doc.Find(`a[href]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr(`href`)
		for _, d := range socialDomains {
			if strings.Contains(strings.ToLower(href), d) {
				profiles[href] = struct{}{}
			}
		}
	})
	fmt.Fprintf(&b, "Social profile links: %d\n", len(profiles))
	for href := range profiles {
		fmt.Fprintf(&b, "- %s\n", href)
	}

	text := strings.ToLower(visibleText(doc))
	fmt.Fprintf(&b, "Mentions of reviews/testimonials: %d\n", strings.Count(text, `review`)+strings.Count(text, `testimonial`))
	return b.String()
}

func accessibilityDigest(page models.CrawledPage) string {
	doc := parse(page)
	var b strings.Builder
	pageHeader(&b, page)
	lang, _ := doc.Find(`html`).First().Attr(`lang`)
	fmt.Fprintf(&b, "Lang attribute: %q\n", lang)
	fmt.Fprintf(&b, "Images without alt: %d of %d\n", doc.Find(`img:not([alt])`).Length(), doc.Find(`img`).Length())

	unlabeled := 0
	doc.Find(`input:not([type="hidden"]):not([type="submit"]), select, textarea`).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr(`id`)
		_, aria := s.Attr(`aria-label`)
		labelled := aria || s.ParentsFiltered(`label`).Length() > 0
		if !labelled && id != `` {
			labelled = doc.Find(fmt.Sprintf(`label[for=%q]`, id)).Length() > 0
		}
		if !labelled {
			unlabeled++
		}
	})
	fmt.Fprintf(&b, "Form fields without label: %d\n", unlabeled)

	emptyButtons := 0
	doc.Find(`button`).Each(func(_ int, s *goquery.Selection) {
		if _, aria := s.Attr(`aria-label`); !aria && clean(s.Text()) == `` {
			emptyButtons++
		}
	})
	fmt.Fprintf(&b, "Buttons without accessible name: %d\n", emptyButtons)

	vague := 0
	doc.Find(`a`).Each(func(_ int, s *goquery.Selection) {
		if _, ok := vagueLinkText[strings.ToLower(clean(s.Text()))]; ok {
			vague++
		}
	})
	fmt.Fprintf(&b, "Links with vague text: %d\n", vague)

	var order []string
	doc.Find(`h1, h2, h3, h4, h5, h6`).Each(func(_ int, s *goquery.Selection) {
		order = append(order, goquery.NodeName(s))
	})
	fmt.Fprintf(&b, "Heading order: %s\n", strings.Join(order, ` `))
	fmt.Fprintf(&b, "Skip link: %t\n", doc.Find(`a[href^="#main"], a[href^="#content"]`).Length() > 0)
	fmt.Fprintf(&b, "Text sample:\n%s\n", truncate(visibleText(doc), 1500))
	return b.String()
}
