package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/edgarseg/internal/extract"
	"github.com/ppiankov/edgarseg/internal/logger"
	"github.com/ppiankov/edgarseg/internal/model"
)

// documentTableSelector finds the document listing on a filing index page
const documentTableSelector = `table[summary="Document Format Files"]`

// Location is where a filing's narrative document lives
type Location struct {
	DocumentURL string
	IndexURL    string
	Fallback    bool   // DocumentURL is the reported primary document, not an index match
	Reason      string // Why the fallback was used
	Exhibits    []Exhibit
}

// Exhibit is a press-release style exhibit listed on the index page
type Exhibit struct {
	Type        string // e.g. "EX-99.1"
	Description string
	URL         string
}

// Locator resolves the human-readable document of a filing from its index page
type Locator struct {
	fetcher     DocumentFetcher
	archiveBase string
	log         logger.Logger
}

// NewLocator creates a Locator that fetches index pages under archiveBase
func NewLocator(fetcher DocumentFetcher, archiveBase string, log logger.Logger) *Locator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Locator{
		fetcher:     fetcher,
		archiveBase: archiveBase,
		log:         log,
	}
}

// Locate returns the filing's document URL. It never fails: when the index page
// cannot be fetched or lists no matching document, the reported primary document
// URL is used and a warning is logged.
func (l *Locator) Locate(ctx context.Context, filing model.Filing) Location {
	loc := Location{IndexURL: filing.IndexURL(l.archiveBase)}

	res, err := l.fetcher.Fetch(ctx, loc.IndexURL)
	if err != nil {
		return l.fallback(filing, loc, fmt.Sprintf("fetch index: %v", err))
	}

	doc, err := extract.Parse(res.Body)
	if err != nil {
		return l.fallback(filing, loc, fmt.Sprintf("parse index: %v", err))
	}

	base, err := url.Parse(res.FinalURL)
	if err != nil || res.FinalURL == "" {
		base, _ = url.Parse(loc.IndexURL)
	}

	documentURL, exhibits := scanDocumentTable(doc, base, filing.Type)
	loc.Exhibits = exhibits
	if documentURL == "" {
		return l.fallback(filing, loc, fmt.Sprintf("no %s document listed on index page", filing.Type))
	}

	loc.DocumentURL = documentURL
	l.log.Debug("document located",
		logger.String("accession", filing.AccessionNumber),
		logger.String("document_url", documentURL),
	)
	return loc
}

func (l *Locator) fallback(filing model.Filing, loc Location, reason string) Location {
	loc.DocumentURL = filing.PrimaryDocumentURL
	loc.Fallback = true
	loc.Reason = reason
	l.log.Warn("falling back to reported primary document",
		logger.String("accession", filing.AccessionNumber),
		logger.String("index_url", loc.IndexURL),
		logger.String("document_url", loc.DocumentURL),
		logger.String("reason", reason),
	)
	return loc
}

// scanDocumentTable picks the document whose type equals formType, preferring
// HTML-family files, and collects EX-99 exhibits.
func scanDocumentTable(doc *extract.Document, base *url.URL, formType model.FilingType) (string, []Exhibit) {
	var (
		htmlMatch  string
		otherMatch string
		exhibits   []Exhibit
	)

	doc.Find(documentTableSelector).First().Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		docType := strings.TrimSpace(cells.Eq(3).Text())
		link, ok := extract.FirstLink(cells.Eq(2), base)
		if !ok {
			return
		}
		href := rawDocumentURL(link.URL)

		switch {
		case docType == formType.String():
			if isHTMLDocument(href) {
				if htmlMatch == "" {
					htmlMatch = href
				}
			} else if otherMatch == "" {
				otherMatch = href
			}
		case strings.HasPrefix(docType, "EX-99") && isExhibitDocument(href):
			exhibits = append(exhibits, Exhibit{
				Type:        docType,
				Description: strings.TrimSpace(cells.Eq(1).Text()),
				URL:         href,
			})
		}
	})

	if htmlMatch != "" {
		return htmlMatch, exhibits
	}
	return otherMatch, exhibits
}

// rawDocumentURL unwraps inline viewer links such as /ix?doc=/Archives/... to the raw document
func rawDocumentURL(link string) string {
	u, err := url.Parse(link)
	if err != nil || strings.TrimSuffix(u.Path, "/") != "/ix" {
		return link
	}
	doc := u.Query().Get("doc")
	if doc == "" {
		return link
	}
	return u.ResolveReference(&url.URL{Path: doc}).String()
}

func documentExt(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

func isHTMLDocument(link string) bool {
	switch documentExt(link) {
	case ".htm", ".html", ".xhtml":
		return true
	}
	return false
}

func isExhibitDocument(link string) bool {
	return isHTMLDocument(link) || documentExt(link) == ".txt"
}
