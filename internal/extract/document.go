// Package extract turns raw filing HTML into text: parsing, table filtering and normalization.
package extract

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// Document is a parsed HTML document.
// It is owned by a single pipeline run and mutated in place by FilterTables.
type Document struct {
	root  *html.Node
	query *goquery.Document
}

// Parse parses raw HTML. Input that is not valid UTF-8 is decoded as Windows-1252,
// the encoding used by most older filings.
func Parse(raw string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(decodeLegacy(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root, query: goquery.NewDocumentFromNode(root)}, nil
}

// ParseReader reads and parses an HTML document
func ParseReader(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	return Parse(string(raw))
}

// Root returns the document node
func (d *Document) Root() *html.Node {
	return d.root
}

// Find runs a CSS selector over the document
func (d *Document) Find(selector string) *goquery.Selection {
	return d.query.Find(selector)
}

// Tables returns every table element in document order, including nested tables
func (d *Document) Tables() []*html.Node {
	return findAll(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table"
	})
}

// Text returns the normalized plain text of the document
func (d *Document) Text() string {
	return NormalizeNode(d.root)
}

func decodeLegacy(raw string) string {
	if utf8.ValidString(raw) {
		return raw
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(raw)
	if err != nil {
		return strings.ToValidUTF8(raw, " ")
	}
	return decoded
}

// getAttribute returns an attribute value, or "" when absent
func getAttribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

// findAll finds all nodes matching a predicate
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// nodeText joins the text under a node with single spaces
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text := nodeText(c); text != "" {
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(text)
		}
	}
	return buf.String()
}

// attached reports whether n is still connected to root
func attached(n, root *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}
