package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/edgarseg/internal/segment"
)

var labels8K = []segment.Label{"2.02", "5.02", "7.01", "9.01", segment.SignatureLabel}

func parse(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := Parse(raw)
	require.NoError(t, err)
	return doc
}

func TestFilterTables_KeepsTableWithItemHeader(t *testing.T) {
	doc := parse(t, `<table style="background-color:#cceeff"><tr><td>ITEM 5.02</td><td>Departure of Directors</td></tr></table>`)

	removed := FilterTables(doc, labels8K)

	assert.Equal(t, 0, removed)
	assert.Len(t, doc.Tables(), 1)
	assert.Contains(t, doc.Text(), "ITEM 5.02 Departure of Directors")
}

func TestFilterTables_RemovesColoredTable(t *testing.T) {
	doc := parse(t, `<p>Narrative</p>
<table style="background-color: #CCEEFF"><tr><td>Revenue</td><td>1,234</td></tr></table>
<p>After</p>`)

	removed := FilterTables(doc, labels8K)

	assert.Equal(t, 1, removed)
	assert.Empty(t, doc.Tables())
	text := doc.Text()
	assert.NotContains(t, text, "Revenue")
	assert.Contains(t, text, "Narrative")
	assert.Contains(t, text, "After")
}

func TestFilterTables_BackgroundSources(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		removed int
	}{
		{"bgcolor on table", `<table bgcolor="#CCFFCC"><tr><td>1</td></tr></table>`, 1},
		{"bgcolor on cell", `<table><tr><td bgcolor="silver">1</td></tr></table>`, 1},
		{"style on row", `<table><tr style="background:#eee"><td>1</td></tr></table>`, 1},
		{"style on header cell", `<table><tr><th style="font-weight:bold; background-color: rgb(204,238,255)">Year</th></tr></table>`, 1},
		{"white bgcolor", `<table bgcolor="#FFFFFF"><tr><td>1</td></tr></table>`, 0},
		{"white style", `<table><tr><td style="background-color: white !important">1</td></tr></table>`, 0},
		{"white rgb", `<table><tr><td style="background-color: rgb(255, 255, 255)">1</td></tr></table>`, 0},
		{"transparent", `<table style="background: transparent"><tr><td>1</td></tr></table>`, 0},
		{"white shorthand", `<table style="background: #fff url(bg.png) no-repeat"><tr><td>1</td></tr></table>`, 0},
		{"no background", `<table border="1"><tr><td>Narrative in a layout table</td></tr></table>`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.html)
			assert.Equal(t, tt.removed, FilterTables(doc, labels8K))
		})
	}
}

func TestFilterTables_ItemHeaderAcrossCells(t *testing.T) {
	doc := parse(t, `<table bgcolor="#ddd"><tr><td>Item</td><td>9.01</td><td>Exhibits</td></tr></table>`)
	assert.Equal(t, 0, FilterTables(doc, labels8K))
}

func TestFilterTables_HeaderForOtherCatalogDoesNotProtect(t *testing.T) {
	// 7A is a 10-K label; it does not protect a table in an 8-K
	doc := parse(t, `<table bgcolor="#ddd"><tr><td>ITEM 7A</td></tr></table>`)
	assert.Equal(t, 1, FilterTables(doc, labels8K))
}

func TestFilterTables_NoLabelsOnlyUsesBackground(t *testing.T) {
	doc := parse(t, `<table bgcolor="#ddd"><tr><td>ITEM 5.02</td></tr></table><table><tr><td>plain</td></tr></table>`)
	assert.Equal(t, 1, FilterTables(doc, nil))
	assert.Len(t, doc.Tables(), 1)
}

func TestFilterTables_NestedCountedOnce(t *testing.T) {
	doc := parse(t, `<table bgcolor="#ddd"><tr><td>
<table bgcolor="#eee"><tr><td>42</td></tr></table>
</td></tr></table>`)

	assert.Equal(t, 1, FilterTables(doc, labels8K))
	assert.Empty(t, doc.Tables())
}

func TestDocument_Find(t *testing.T) {
	doc := parse(t, `<table summary="Document Format Files"><tr><td>1</td></tr></table><table><tr><td>2</td></tr></table>`)
	sel := doc.Find(`table[summary="Document Format Files"]`)
	assert.Equal(t, 1, sel.Length())
	assert.Equal(t, "1", strings.TrimSpace(sel.Text()))
}

func TestResolveLink(t *testing.T) {
	base, err := url.Parse("https://www.sec.gov/Archives/edgar/data/320193/000032019324000010/")
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
	}{
		{"/Archives/edgar/data/320193/000032019324000010/a8-k.htm", "https://www.sec.gov/Archives/edgar/data/320193/000032019324000010/a8-k.htm"},
		{"ex99.htm", "https://www.sec.gov/Archives/edgar/data/320193/000032019324000010/ex99.htm"},
		{"#top", ""},
		{"javascript:void(0)", ""},
		{"mailto:ir@example.com", ""},
		{"ftp://example.com/file", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLink(base, tt.href))
		})
	}
}

func TestFirstLink(t *testing.T) {
	base, err := url.Parse("https://www.sec.gov/")
	require.NoError(t, err)

	doc := parse(t, `<table><tr><td><a href="#x">skip</a> <a href="/doc.htm"> Doc </a></td></tr></table>`)
	link, ok := FirstLink(doc.Find("td"), base)
	require.True(t, ok)
	assert.Equal(t, "https://www.sec.gov/doc.htm", link.URL)
	assert.Equal(t, "Doc", link.Text)

	_, ok = FirstLink(doc.Find("p"), base)
	assert.False(t, ok)
}
