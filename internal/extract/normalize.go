package extract

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// paragraphBreak is emitted after block elements and line breaks
const paragraphBreak = "\n\n"

var blockElements = map[string]bool{
	"p": true, "div": true, "tr": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true, "blockquote": true,
	"section": true, "article": true, "center": true,
	"dl": true, "dt": true, "dd": true, "title": true, "pre": true,
}

// Elements whose content never reaches the text, including iXBRL metadata containers
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true,
	"link": true, "template": true,
	"ix:header": true, "ix:hidden": true, "ix:references": true, "ix:resources": true,
}

var (
	displayNoneRe = regexp.MustCompile(`(?i)display\s*:\s*none`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
	blockCloseRe  = regexp.MustCompile(`(?i)<\s*/\s*(?:p|div|tr|li|h[1-6]|table)\s*>|<br\s*/?>`)
	hspaceRe      = regexp.MustCompile(`[^\S\n]+`)
	brokenItemRe  = regexp.MustCompile(`(?i)\bI[^\S\n]*T[^\S\n]*E[^\S\n]*M([^\S\n]+\d)`)
	tocLineRe     = regexp.MustCompile(`(?im)^[^\S\n]*(?:TABLE[^\S\n]+OF[^\S\n]+CONTENTS|INDEX[^\S\n]+TO[^\S\n]+(?:CONSOLIDATED[^\S\n]+)?FINANCIAL[^\S\n]+STATEMENTS|BACK[^\S\n]+TO[^\S\n]+(?:TABLE[^\S\n]+OF[^\S\n]+)?CONTENTS)[^\S\n]*[.:]?[^\S\n]*$`)
	pageNumberRe  = regexp.MustCompile(`(?m)^[^\S\n]*-*[^\S\n]*\d{1,3}[^\S\n]*-*[^\S\n]*$`)
	pageLabelRe   = regexp.MustCompile(`(?im)^[^\S\n]*Page[^\S\n]+\d+(?:[^\S\n]+of[^\S\n]+\d+)?[^\S\n]*$`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// charReplacer maps what NFKC leaves typographic to ASCII. The C1 control range covers
// Windows-1252 quotes and dashes that leaked through as code points.
var charReplacer = strings.NewReplacer(
	"\u00a0", " ", "\u2009", " ", "\u202f", " ",
	"\u200b", "", "\ufeff", "",
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'", "\u0091", "'", "\u0092", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`, "\u0093", `"`, "\u0094", `"`,
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2015", "-",
	"\u2212", "-", "\u0096", "-", "\u0097", "-",
	"\r\n", "\n", "\r", "\n",
)

// Normalize converts raw HTML into cleaned plain text. It never fails: input the parser
// rejects is reduced by stripping tags. Normalizing already normalized text is a no-op.
func Normalize(raw string) string {
	doc, err := Parse(raw)
	if err != nil {
		return NormalizeText(stripTags(raw))
	}
	return doc.Text()
}

// NormalizeNode extracts and cleans the visible text under an HTML node
func NormalizeNode(n *nethtml.Node) string {
	var buf strings.Builder
	writeText(&buf, n)
	return NormalizeText(buf.String())
}

// NormalizeText applies the plain-text cleaning steps to extracted text
func NormalizeText(text string) string {
	text = normalizeChars(text)
	text = tidyLines(text)
	text = repairItemHeaders(text)
	text = tocLineRe.ReplaceAllString(text, "")
	text = pageNumberRe.ReplaceAllString(text, "")
	text = pageLabelRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, paragraphBreak)
	return strings.TrimSpace(text)
}

func writeText(buf *strings.Builder, n *nethtml.Node) {
	switch n.Type {
	case nethtml.CommentNode, nethtml.DoctypeNode:
		return
	case nethtml.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(n.Data)
		return
	case nethtml.ElementNode:
		if skippedElements[n.Data] || displayNoneRe.MatchString(getAttribute(n, "style")) {
			return
		}
		if n.Data == "br" {
			buf.WriteString(paragraphBreak)
			return
		}
	}

	block := n.Type == nethtml.ElementNode && blockElements[n.Data]
	if block && buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
		buf.WriteString(paragraphBreak)
	}
	cell := n.Type == nethtml.ElementNode && (n.Data == "td" || n.Data == "th")
	if cell {
		buf.WriteByte(' ')
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(buf, c)
	}

	if cell {
		buf.WriteByte(' ')
	}
	if block {
		buf.WriteString(paragraphBreak)
	}
}

// normalizeChars folds compatibility forms, then maps what NFKC leaves typographic
func normalizeChars(text string) string {
	return charReplacer.Replace(norm.NFKC.String(text))
}

// tidyLines collapses horizontal whitespace and trims every line
func tidyLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(hspaceRe.ReplaceAllString(line, " "))
	}
	return strings.Join(lines, "\n")
}

// repairItemHeaders rewrites letter-spaced headers such as "I T E M 5.02" to "ITEM 5.02".
// Headers that were never broken keep their original case.
func repairItemHeaders(text string) string {
	return brokenItemRe.ReplaceAllStringFunc(text, func(match string) string {
		sub := brokenItemRe.FindStringSubmatch(match)
		letters := match[:len(match)-len(sub[1])]
		if !strings.ContainsAny(letters, " \t") {
			return match
		}
		return "ITEM" + sub[1]
	})
}

// stripTags is the fallback extraction for input the HTML parser cannot handle
func stripTags(raw string) string {
	raw = blockCloseRe.ReplaceAllStringFunc(raw, func(tag string) string {
		return tag + paragraphBreak
	})
	return html.UnescapeString(tagRe.ReplaceAllString(raw, " "))
}
