package grading

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"site_auditor/internal/domain/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

var now = time.Now

var (
	foundedRe   = regexp.MustCompile(`(?i)\b(?:since|established|est\.|founded(?: in)?)\s+(19\d{2}|20\d{2})\b`)
	copyrightRe = regexp.MustCompile(`(?i)(?:©|&copy;|copyright)\s*(19\d{2}|20\d{2})\s*[-–]\s*(?:19|20)\d{2}`)
	priceRe     = regexp.MustCompile(`[$€£]\s?\d{2,}`)
	pricingWord = regexp.MustCompile(`(?i)\b(pricing|price list|rates|packages|plans)\b`)
	ownerRe     = regexp.MustCompile(`(?i)\b(owner|founder|ceo|president|principal|managing director)\b`)
)

// premiumMarkers are page features that indicate an existing marketing budget.
var premiumMarkers = map[string]string{
	`online booking`: `a[href*="calendly.com"], a[href*="booking"], iframe[src*="calendly"], [class*="booking"]`,
	`live chat`:      `script[src*="intercom"], script[src*="drift"], script[src*="tawk"], script[src*="livechat"]`,
	`e-commerce`:     `[class*="add-to-cart"], a[href*="/cart"], script[src*="shopify"]`,
	`video`:          `video, iframe[src*="youtube.com"], iframe[src*="vimeo.com"]`,
	`newsletter`:     `form[action*="mailchimp"], form[action*="list-manage"], input[name*="newsletter"]`,
}

// ExtractSignals derives lead-scoring signals from the crawled pages and the
// submitted business context. Years in business from the context win over
// what the pages claim.
func ExtractSignals(root string, crawl *models.CrawlResult, biz models.BusinessContext) models.BusinessSignals {
	sig := models.BusinessSignals{
		YearsInBusiness: biz.YearsInBusiness,
		HTTPS:           strings.HasPrefix(strings.ToLower(root), `https://`),
	}
	if crawl == nil {
		return sig
	}

	premium := map[string]struct{}{}
	mobilePages := 0
	for _, page := range crawl.Pages {
		if !page.Success {
			continue
		}
		sig.PageCount++
		if page.Metadata.HasViewportMeta {
			mobilePages++
		}
		if strings.HasPrefix(strings.ToLower(page.Metadata.FinalURL), `http://`) {
			sig.HTTPS = false
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err != nil {
			continue
		}
		text := doc.Find(`body`).Text()

		if sig.YearsInBusiness == nil {
			if founded, ok := foundedYear(text); ok {
				years := max(now().Year()-founded, 0)
				sig.YearsInBusiness = &years
			}
		}
		if !sig.PricingVisible {
			sig.PricingVisible = priceRe.MatchString(text) || pricingWord.MatchString(doc.Find(`nav, header, h1, h2`).Text())
		}
		if !sig.DecisionMakerReachable {
			sig.DecisionMakerReachable = reachable(doc, text)
		}
		for name, selector := range premiumMarkers {
			if doc.Find(selector).Length() > 0 {
				premium[name] = struct{}{}
			}
		}
	}

	sig.MobileFriendly = sig.PageCount > 0 && mobilePages == sig.PageCount
	sig.PremiumFeatures = lo.Keys(premium)
	sort.Strings(sig.PremiumFeatures)
	return sig
}

func foundedYear(text string) (int, bool) {
	if m := foundedRe.FindStringSubmatch(text); m != nil {
		y, err := strconv.Atoi(m[1])
		return y, err == nil && y <= now().Year()
	}
	if m := copyrightRe.FindStringSubmatch(text); m != nil {
		y, err := strconv.Atoi(m[1])
		return y, err == nil && y <= now().Year()
	}
	return 0, false
}

// reachable reports a direct contact route: a personal mailto, a phone link, or
// a named owner role.
func reachable(doc *goquery.Document, text string) bool {
	direct := false
	doc.Find(`a[href^="mailto:"], a[href^="tel:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr(`href`)
		href = strings.ToLower(href)
		if strings.HasPrefix(href, `tel:`) {
			direct = true
			return false
		}
		local := strings.TrimPrefix(href, `mailto:`)
		if at := strings.IndexByte(local, '@'); at > 0 {
			local = local[:at]
		}
		switch local {
		case `info`, `noreply`, `no-reply`, `support`, `hello`, `contact`, `office`, `admin`, `sales`:
		default:
			direct = true
			return false
		}
		return true
	})
	return direct || ownerRe.MatchString(text)
}
