package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleFiling = `<!DOCTYPE html>
<html>
<head>
<title>8-K</title>
<style>p { font-family: Times; }</style>
<script>var tracking = "ITEM 9.01";</script>
</head>
<body>
<div style="display:none"><ix:header><ix:hidden>dei:EntityCentralIndexKey 0000320193</ix:hidden></ix:header></div>
<p style="text-align:center">TABLE OF CONTENTS</p>
<p><b>I T E M&nbsp;&nbsp;5.02</b> Departure of Directors</p>
<p>On March&nbsp;3, the Company&#8217;s Chief Financial Officer resigned&#8212;effective immediately.</p>
<p>&#8220;We thank her,&#8221; said the CEO.</p>
<p style="text-align:center">- 2 -</p>
<table><tr><td>Name</td><td>Title</td></tr><tr><td>Jane Doe</td><td>CFO</td></tr></table>
<p>Page 3</p>
<p>Item 9.01 Financial Statements and Exhibits</p>
<br>
<br>
<br>
<p>SIGNATURES</p>
</body>
</html>`

func TestNormalize_SampleFiling(t *testing.T) {
	got := Normalize(sampleFiling)

	assert.Contains(t, got, "ITEM 5.02 Departure of Directors")
	assert.Contains(t, got, "On March 3, the Company's Chief Financial Officer resigned-effective immediately.")
	assert.Contains(t, got, `"We thank her," said the CEO.`)
	assert.Contains(t, got, "Jane Doe CFO")
	assert.Contains(t, got, "Item 9.01 Financial Statements and Exhibits")

	assert.NotContains(t, got, "TABLE OF CONTENTS")
	assert.NotContains(t, got, "tracking")
	assert.NotContains(t, got, "font-family")
	assert.NotContains(t, got, "EntityCentralIndexKey")
	assert.NotContains(t, got, "Page 3")
	assert.NotContains(t, got, "- 2 -")
	assert.NotContains(t, got, "\n\n\n")
	assert.NotContains(t, got, "  ")
	assert.NotContains(t, got, "\u00a0")
	assert.Equal(t, strings.TrimSpace(got), got)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		sampleFiling,
		"<p>I T E M 1.01 Entry</p><p>Body</p>",
		"plain text with\n\n\n\nblank lines\n12\nItem 7.01 Regulation FD",
		"<div>Smart &#8216;quotes&#8217; and en&#8211;dash</div>",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input: %q", in)
	}
}

func TestNormalize_StructuralBreaks(t *testing.T) {
	got := Normalize("<div>First block</div><div>Second block</div>line one<br>line two<table><tr><td>a</td><td>b</td></tr></table>")

	lines := strings.Split(got, "\n")
	assert.Contains(t, lines, "First block")
	assert.Contains(t, lines, "Second block")
	assert.Contains(t, lines, "line one")
	assert.Contains(t, lines, "line two")
	assert.Contains(t, lines, "a b")
}

func TestNormalize_HeaderStartsLine(t *testing.T) {
	got := Normalize("<div><span>Cover page text</span></div><div><b>Item 2.02</b><span> Results of Operations</span></div>")
	assert.Contains(t, strings.Split(got, "\n"), "Item 2.02 Results of Operations")
}

func TestNormalizeText_RepairsBrokenHeaders(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"letter spaced", "I T E M 5.02 Departure", "ITEM 5.02 Departure"},
		{"split word", "IT EM 7.01 Other", "ITEM 7.01 Other"},
		{"lowercase spaced", "i t e m 8.01 Events", "ITEM 8.01 Events"},
		{"intact keeps case", "Item 8.01 Events", "Item 8.01 Events"},
		{"no number", "I T E M list", "I T E M list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestNormalizeText_RemovesNoiseLines(t *testing.T) {
	in := strings.Join([]string{
		"Table of Contents",
		"Revenue grew.",
		"17",
		"- 18 -",
		"Page 19",
		"Page 20 of 40",
		"Index to Consolidated Financial Statements",
		"Back to Contents",
		"In 2023 we sold 17 units.",
		"2023",
	}, "\n")

	got := NormalizeText(in)
	assert.Equal(t, "Revenue grew.\n\nIn 2023 we sold 17 units.\n2023", got)
}

func TestNormalizeText_Characters(t *testing.T) {
	got := NormalizeText("A\u00a0B\u200bC \u201cquoted\u201d \u2018single\u2019 en\u2013em\u2014bar\u2015 \uff21")
	assert.Equal(t, `A BC "quoted" 'single' en-em-bar- A`, got)
}

func TestNormalizeText_CollapsesBlankLines(t *testing.T) {
	got := NormalizeText("\n\n  first  \n\n\n\n\n   second\t\tpart  \n\n\n")
	assert.Equal(t, "first\n\nsecond part", got)
}

func TestNormalize_Windows1252(t *testing.T) {
	raw := "<p>The Company\x92s results \x96 final</p>"
	assert.Equal(t, "The Company's results - final", Normalize(raw))
}

func TestStripTags(t *testing.T) {
	got := NormalizeText(stripTags("<p>Item 5.02 &amp; more</p><p>next</p>"))
	assert.Equal(t, "Item 5.02 & more\n\nnext", got)
}
