package segment

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// lineStart anchors a header at the beginning of a line, allowing indentation
	lineStart = `^[^\S\r\n]*`
	// headerDelimiter is what may follow a label: punctuation, whitespace, an open paren, or end of text
	headerDelimiter = `(?:[.*~\-:\s(]|$)`
	// itemPrefix is the case-insensitive, optionally plural ITEM token
	itemPrefix = `ITEMS?\s*`
	// signatureBody matches one or more SIGNATURE tokens (SIGNATURE, SIGNATURES, SIGNATURE(S))
	signatureBody = `(?:SIGNATURE(?:S|\(S\))?)+`
)

// LabelPattern returns the regular expression fragment that matches a label's number:
// dots are literal and a letter suffix may be separated from its number by spaces
// ("9A" matches "9A" and "9 A"). The signature label has no number and yields its token pattern.
func LabelPattern(label Label) string {
	if label == SignatureLabel {
		return signatureBody
	}

	raw := string(label)
	split := strings.IndexFunc(raw, unicode.IsLetter)
	if split <= 0 {
		return regexp.QuoteMeta(raw)
	}
	return regexp.QuoteMeta(raw[:split]) + `[^\S\r\n]*` + regexp.QuoteMeta(raw[split:])
}

// HeaderPattern returns the full line-anchored, case-insensitive header expression for a label
func HeaderPattern(label Label) string {
	return `(?im)` + lineStart + headerBody(label) + headerDelimiter
}

// InlineHeaderPattern matches a header anywhere in text, without the line anchor.
// Used to recognize item headers inside table cells.
func InlineHeaderPattern(label Label) string {
	return `(?i)\b` + headerBody(label) + headerDelimiter
}

func headerBody(label Label) string {
	if label == SignatureLabel {
		return signatureBody
	}
	return itemPrefix + LabelPattern(label)
}

// AnyHeaderPattern combines the inline header patterns of several labels into one alternation.
// An empty label list yields an empty string.
func AnyHeaderPattern(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	bodies := make([]string, 0, len(labels))
	for _, l := range labels {
		bodies = append(bodies, headerBody(l))
	}
	return `(?i)\b(?:` + strings.Join(bodies, "|") + `)` + headerDelimiter
}
