package segment

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/edgarseg/internal/model"
)

// TruncationMarker is appended to item content cut at Options.MaxItemChars
const TruncationMarker = "\n... [truncated]"

var (
	multiSpaceRe   = regexp.MustCompile(`[ ]{2,}`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Options configures a Segmenter
type Options struct {
	MaxItemChars int // 0 = unlimited
}

// Segmenter partitions normalized filing text into labeled items.
// It holds only precompiled patterns and is safe for concurrent use.
type Segmenter struct {
	opts     Options
	patterns map[Label]*regexp.Regexp
}

// New builds a Segmenter with every known header pattern compiled once
func New(opts Options) *Segmenter {
	labels := allLabels()
	patterns := make(map[Label]*regexp.Regexp, len(labels))
	for _, l := range labels {
		patterns[l] = regexp.MustCompile(HeaderPattern(l))
	}
	return &Segmenter{opts: opts, patterns: patterns}
}

// span is a header occurrence or an accepted item range in the document
type span struct {
	start, end int
}

// Segment splits text into items using the catalog for the filing type and date.
// An unknown filing type or a document without recognizable headers yields an empty map.
func (s *Segmenter) Segment(text string, filingType model.FilingType, filedAt time.Time) map[string]model.ExtractedItem {
	catalog := Catalog(filingType, filedAt)
	items := make(map[string]model.ExtractedItem)
	if len(catalog) == 0 || text == "" {
		return items
	}

	headers := make([][]span, len(catalog))
	for i, label := range catalog {
		headers[i] = s.find(label, text)
	}

	pos := 0
	for i, label := range catalog {
		accepted, ok := bestSpan(headers, i, pos, len(text))
		if !ok {
			continue
		}

		content := s.clean(text[accepted.start:accepted.end])
		if content == "" {
			continue
		}

		items[label.Key()] = model.ExtractedItem{
			Key:     label.Key(),
			Label:   label.String(),
			Content: content,
			Start:   accepted.start,
			End:     accepted.end,
		}
		pos = accepted.end
	}

	return items
}

// SegmentFiling segments text for a filing and attaches the filing back-link to each item
func (s *Segmenter) SegmentFiling(text string, filing *model.Filing) map[string]model.ExtractedItem {
	items := s.Segment(text, filing.Type, filing.FiledAt)
	for key, item := range items {
		item.Filing = filing
		items[key] = item
	}
	return items
}

func (s *Segmenter) find(label Label, text string) []span {
	re, ok := s.patterns[label]
	if !ok {
		re = regexp.MustCompile(HeaderPattern(label))
	}
	matches := re.FindAllStringIndex(text, -1)
	out := make([]span, len(matches))
	for i, m := range matches {
		out[i] = span{start: m[0], end: m[1]}
	}
	return out
}

// bestSpan picks the section for catalog entry i among header occurrences at or after pos.
// Each candidate ends at the first later catalog label found after it (catalog order, not
// document order) or at the end of text. The longest candidate wins; ties keep the earliest.
func bestSpan(headers [][]span, i, pos, textLen int) (span, bool) {
	var best span
	found := false

	for _, candidate := range headers[i] {
		if candidate.start < pos {
			continue
		}

		end := textLen
		for j := i + 1; j < len(headers); j++ {
			if next, ok := firstAtOrAfter(headers[j], candidate.end); ok {
				end = next.start
				break
			}
		}

		if !found || end-candidate.start > best.end-best.start {
			best = span{start: candidate.start, end: end}
			found = true
		}
	}

	return best, found
}

func firstAtOrAfter(spans []span, offset int) (span, bool) {
	for _, sp := range spans {
		if sp.start >= offset {
			return sp, true
		}
	}
	return span{}, false
}

func (s *Segmenter) clean(content string) string {
	content = multiSpaceRe.ReplaceAllString(content, " ")
	content = multiNewlineRe.ReplaceAllString(content, "\n\n")
	content = strings.TrimSpace(content)

	if s.opts.MaxItemChars > 0 && len(content) > s.opts.MaxItemChars {
		cut := s.opts.MaxItemChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + TruncationMarker
	}
	return content
}
