package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/edgarseg/internal/segment"
)

var backgroundStyleRe = regexp.MustCompile(`(?i)background(?:-color)?\s*:\s*([^;]+)`)

// Background values that do not mark a table as financial data
var neutralBackgrounds = map[string]bool{
	"":                    true,
	"white":               true,
	"#fff":                true,
	"#ffffff":             true,
	"rgb(255,255,255)":    true,
	"rgba(255,255,255,1)": true,
	"transparent":         true,
	"none":                true,
	"inherit":             true,
	"initial":             true,
}

// FilterTables removes tables that look like financial or numeric data from doc and
// returns how many were removed. A table whose text contains an item header for any of
// labels is always kept. Otherwise a table is removed when it, or one of its rows or
// cells, declares a non-white background.
func FilterTables(doc *Document, labels []segment.Label) int {
	var keep *regexp.Regexp
	if pattern := segment.AnyHeaderPattern(labels); pattern != "" {
		keep = regexp.MustCompile(pattern)
	}

	removed := 0
	for _, table := range doc.Tables() {
		// Nested inside a table removed earlier
		if !attached(table, doc.root) {
			continue
		}
		if keep != nil && keep.MatchString(nodeText(table)) {
			continue
		}
		if hasColoredBackground(table) {
			table.Parent.RemoveChild(table)
			removed++
		}
	}
	return removed
}

func hasColoredBackground(table *html.Node) bool {
	colored := findAll(table, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		switch n.Data {
		case "table", "tr", "td", "th":
			return isColored(n)
		}
		return false
	})
	return len(colored) > 0
}

func isColored(n *html.Node) bool {
	if !isNeutralBackground(getAttribute(n, "bgcolor")) {
		return true
	}
	for _, m := range backgroundStyleRe.FindAllStringSubmatch(getAttribute(n, "style"), -1) {
		if !isNeutralBackground(m[1]) {
			return true
		}
	}
	return false
}

func isNeutralBackground(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
	if neutralBackgrounds[strings.ReplaceAll(value, " ", "")] {
		return true
	}

	// Shorthand such as "background: white url(x.png) no-repeat" leads with the color
	fields := strings.Fields(value)
	return len(fields) > 0 && neutralBackgrounds[fields[0]]
}
