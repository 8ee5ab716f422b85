package discovery

import (
	"bufio"
	"strings"
)

type robotsRules struct {
	allow    []string
	disallow []string
	sitemaps []string
}

// parseRobots reads the rules of the "*" user-agent groups and every Sitemap line.
func parseRobots(body string) robotsRules {
	var rules robotsRules
	applies := false
	inAgentLine := false

	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, `:`)
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case `user-agent`:
			if !inAgentLine {
				applies = false
			}
			inAgentLine = true
			if value == `*` {
				applies = true
			}
			continue
		case `sitemap`:
			if value != `` {
				rules.sitemaps = append(rules.sitemaps, value)
			}
		case `allow`:
			if applies {
				if p := rulePath(value); p != `` {
					rules.allow = append(rules.allow, p)
				}
			}
		case `disallow`:
			if applies {
				if p := rulePath(value); p != `` {
					rules.disallow = append(rules.disallow, p)
				}
			}
		}
		inAgentLine = false
	}
	return rules
}

// rulePath cuts a robots pattern down to its literal prefix.
func rulePath(v string) string {
	if !strings.HasPrefix(v, `/`) {
		return ``
	}
	if i := strings.IndexAny(v, `*$?`); i >= 0 {
		v = v[:i]
	}
	return v
}

// allowed applies longest-match precedence between Allow and Disallow prefixes.
// The root path is always allowed.
func (r robotsRules) allowed(path string) bool {
	if path == `/` {
		return true
	}
	allowLen := longestPrefix(r.allow, path)
	disallowLen := longestPrefix(r.disallow, path)
	return disallowLen == 0 || allowLen >= disallowLen
}

// pageHints returns the Allow prefixes worth offering as pages. An Allow nested
// under a narrower Disallow, like WordPress's admin-ajax.php, is an exception
// for crawlers rather than a page.
func (r robotsRules) pageHints() []string {
	var hints []string
	for _, a := range r.allow {
		nested := false
		for _, d := range r.disallow {
			if d != `/` && strings.HasPrefix(a, d) {
				nested = true
				break
			}
		}
		if !nested {
			hints = append(hints, a)
		}
	}
	return hints
}

func longestPrefix(prefixes []string, path string) int {
	longest := 0
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) && len(p) > longest {
			longest = len(p)
		}
	}
	return longest
}
