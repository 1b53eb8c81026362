package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the EDGAR filing date format
const DateLayout = "2006-01-02"

var (
	// ErrUnsupportedFilingType is returned for form types with no item catalog
	ErrUnsupportedFilingType = errors.New("unsupported filing type")
	// ErrInvalidFiling is returned when a filing record is missing or malformed
	ErrInvalidFiling = errors.New("invalid filing")
)

// FilingType is the EDGAR form type of a filing
type FilingType string

const (
	FormType8K  FilingType = "8-K"
	FormType10K FilingType = "10-K"
)

// SupportedFilingTypes lists the form types that can be segmented
func SupportedFilingTypes() []FilingType {
	return []FilingType{FormType8K, FormType10K}
}

// ParseFilingType converts a form string into a FilingType.
// Matching is exact: EDGAR form types are case-sensitive on the index page too.
func ParseFilingType(s string) (FilingType, error) {
	ft := FilingType(strings.TrimSpace(s))
	for _, known := range SupportedFilingTypes() {
		if ft == known {
			return ft, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFilingType, s)
}

func (t FilingType) String() string {
	return string(t)
}

// Filing identifies one EDGAR submission as reported by the upstream discovery source
type Filing struct {
	CIK                string     `json:"cik"`
	AccessionNumber    string     `json:"accession_number"`
	Type               FilingType `json:"form_type"`
	FiledAt            time.Time  `json:"filed_at"`
	PrimaryDocumentURL string     `json:"primary_document_url"`
}

// NewFiling validates raw fields and builds a Filing
func NewFiling(cik, accession, formType, filedAt, primaryURL string) (Filing, error) {
	cik = strings.TrimSpace(cik)
	accession = strings.TrimSpace(accession)

	if cik == "" || !isDigits(cik) {
		return Filing{}, fmt.Errorf("%w: cik %q must be numeric", ErrInvalidFiling, cik)
	}
	if accession == "" || !isDigits(strings.ReplaceAll(accession, "-", "")) {
		return Filing{}, fmt.Errorf("%w: accession number %q", ErrInvalidFiling, accession)
	}

	ft, err := ParseFilingType(formType)
	if err != nil {
		return Filing{}, err
	}

	filed, err := time.Parse(DateLayout, strings.TrimSpace(filedAt))
	if err != nil {
		return Filing{}, fmt.Errorf("%w: filing date %q: %v", ErrInvalidFiling, filedAt, err)
	}

	return Filing{
		CIK:                cik,
		AccessionNumber:    accession,
		Type:               ft,
		FiledAt:            filed,
		PrimaryDocumentURL: strings.TrimSpace(primaryURL),
	}, nil
}

// ArchiveCIK returns the CIK as used in archive paths (no leading zeros)
func (f Filing) ArchiveCIK() string {
	trimmed := strings.TrimLeft(f.CIK, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// AccessionPath returns the accession number with separators removed
func (f Filing) AccessionPath() string {
	return strings.NewReplacer("-", "", " ", "").Replace(f.AccessionNumber)
}

// IndexURL derives the filing's HTML index page under the given archive base URL,
// e.g. https://www.sec.gov/Archives/edgar/data/1093691/000110465925019858/0001104659-25-019858-index.html
func (f Filing) IndexURL(archiveBase string) string {
	base := strings.TrimRight(archiveBase, "/")
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s-index.html",
		base, f.ArchiveCIK(), f.AccessionPath(), f.DashedAccession())
}

// DashedAccession returns the accession number in its canonical 10-2-6 dashed form
func (f Filing) DashedAccession() string {
	raw := f.AccessionPath()
	if len(raw) != 18 {
		return f.AccessionNumber
	}
	return raw[:10] + "-" + raw[10:12] + "-" + raw[12:]
}

// FiledDate returns the filing date formatted as YYYY-MM-DD
func (f Filing) FiledDate() string {
	return f.FiledAt.Format(DateLayout)
}

func (f Filing) String() string {
	return fmt.Sprintf("%s %s (CIK %s, filed %s)", f.Type, f.AccessionNumber, f.CIK, f.FiledDate())
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
