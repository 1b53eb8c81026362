package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is an anchor found in a document
type Link struct {
	URL  string // Absolute URL
	Text string
}

// ResolveLink resolves href against base.
// Anchors, javascript: and mailto: links and non-HTTP schemes resolve to "".
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

// FirstLink returns the first resolvable anchor inside a selection
func FirstLink(sel *goquery.Selection, base *url.URL) (Link, bool) {
	var link Link
	found := false

	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		resolved := ResolveLink(base, href)
		if resolved == "" {
			return true
		}
		link = Link{URL: resolved, Text: strings.TrimSpace(a.Text())}
		found = true
		return false
	})

	return link, found
}
