// Package segment splits normalized filing text into item-labeled sections.
//
// Catalog selection and header pattern construction are pure functions so they can be
// tested without any HTTP or HTML dependency. A Segmenter precompiles every pattern once
// and is safe to share between goroutines.
package segment

import (
	"strings"
	"time"

	"github.com/ppiankov/edgarseg/internal/model"
)

// Label is an item label as it appears after "ITEM" in a filing, or SIGNATURE
type Label string

// SignatureLabel marks the signature block that closes every catalog
const SignatureLabel Label = "SIGNATURE"

// Key returns the output key used by downstream consumers (item_5.02, item_9a, signature)
func (l Label) Key() string {
	if l == SignatureLabel {
		return "signature"
	}
	return "item_" + strings.ToLower(string(l))
}

func (l Label) String() string {
	return string(l)
}

// Form8KItemNumberingChange is the first filing date that uses the current
// two-level 8-K item numbering (1.01, 5.02, ...).
var Form8KItemNumberingChange = time.Date(2004, time.August, 23, 0, 0, 0, 0, time.UTC)

var (
	catalog8K = []Label{
		"1.01", "1.02", "1.03", "1.04", "1.05",
		"2.01", "2.02", "2.03", "2.04", "2.05", "2.06",
		"3.01", "3.02", "3.03",
		"4.01", "4.02",
		"5.01", "5.02", "5.03", "5.04", "5.05", "5.06", "5.07", "5.08",
		"6.01", "6.02", "6.03", "6.04", "6.05", "6.06",
		"7.01",
		"8.01",
		"9.01",
		SignatureLabel,
	}

	catalog8KObsolete = []Label{
		"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
		SignatureLabel,
	}

	catalog10K = []Label{
		"1", "1A", "1B", "1C", "2", "3", "4",
		"5", "6", "7", "7A", "8", "9", "9A", "9B", "9C",
		"10", "11", "12", "13", "14", "15", "16",
		SignatureLabel,
	}
)

// Catalog returns the ordered item labels for a filing type and filing date.
// Unknown filing types yield an empty catalog. The returned slice is a fresh copy.
func Catalog(filingType model.FilingType, filedAt time.Time) []Label {
	var labels []Label
	switch filingType {
	case model.FormType8K:
		if uses8KObsoleteNumbering(filedAt) {
			labels = catalog8KObsolete
		} else {
			labels = catalog8K
		}
	case model.FormType10K:
		labels = catalog10K
	default:
		return []Label{}
	}

	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// uses8KObsoleteNumbering compares calendar dates only, so the filing's time zone
// and time of day never move it across the boundary.
func uses8KObsoleteNumbering(filedAt time.Time) bool {
	day := time.Date(filedAt.Year(), filedAt.Month(), filedAt.Day(), 0, 0, 0, 0, time.UTC)
	return day.Before(Form8KItemNumberingChange)
}

// allLabels returns every label used by any catalog, without duplicates
func allLabels() []Label {
	seen := make(map[Label]bool)
	var labels []Label
	for _, catalog := range [][]Label{catalog8K, catalog8KObsolete, catalog10K} {
		for _, l := range catalog {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	return labels
}
