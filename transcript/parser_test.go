package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	raw := []byte(`<?xml version="1.0" encoding="utf-8" ?><transcript>` +
		`<text start="0" dur="1.54">Hey, this is just a test</text>` +
		`<text start="1.54" dur="4.16">this is &lt;i>not&lt;/i> the original transcript</text>` +
		`<text start="6.5" dur="1.1"></text>` +
		`<text start="7.6" dur="1.2">&amp;#39;quoted&amp;#39; &amp;amp; more</text>` +
		`<text start="9">no duration</text>` +
		`</transcript>`)

	snippets, err := Parser{}.Parse(raw)
	require.NoError(t, err)
	require.Len(t, snippets, 4)

	assert.Equal(t, Snippet{Text: "Hey, this is just a test", Start: 0, Duration: 1.54}, snippets[0])
	assert.Equal(t, "this is not the original transcript", snippets[1].Text)
	assert.Equal(t, "'quoted' & more", snippets[2].Text)
	assert.Equal(t, 7.6, snippets[2].Start)
	assert.Equal(t, Snippet{Text: "no duration", Start: 9, Duration: 0}, snippets[3])
}

func TestParsePreserveFormatting(t *testing.T) {
	raw := []byte(`<transcript>` +
		`<text start="1" dur="2">&lt;b>bold&lt;/b> &lt;font color="red">red&lt;/font> &lt;EM>em&lt;/EM></text>` +
		`</transcript>`)

	tests := []struct {
		name     string
		preserve bool
		want     string
	}{
		{"stripped", false, "bold red em"},
		{"preserved", true, "<b>bold</b> red <EM>em</EM>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snippets, err := Parser{PreserveFormatting: tt.preserve}.Parse(raw)
			require.NoError(t, err)
			require.Len(t, snippets, 1)
			assert.Equal(t, tt.want, snippets[0].Text)
		})
	}
}

func TestParseNoText(t *testing.T) {
	snippets, err := Parser{}.Parse([]byte(`<transcript></transcript>`))
	require.NoError(t, err)
	assert.NotNil(t, snippets)
	assert.Empty(t, snippets)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not xml", `<html><body>oops`},
		{"missing start", `<transcript><text dur="1">x</text></transcript>`},
		{"bad start", `<transcript><text start="abc" dur="1">x</text></transcript>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parser{}.Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseFormattingAllowlist(t *testing.T) {
	tests := []struct {
		name     string
		escaped  string
		preserve bool
		want     string
	}{
		{"strong", `&lt;strong>x&lt;/strong>`, true, "<strong>x</strong>"},
		{"em", `&lt;em>x&lt;/em>`, true, "<em>x</em>"},
		{"b", `&lt;b>x&lt;/b>`, true, "<b>x</b>"},
		{"i", `&lt;i>x&lt;/i>`, true, "<i>x</i>"},
		{"mark", `&lt;mark>x&lt;/mark>`, true, "<mark>x</mark>"},
		{"small", `&lt;small>x&lt;/small>`, true, "<small>x</small>"},
		{"del", `&lt;del>x&lt;/del>`, true, "<del>x</del>"},
		{"ins", `&lt;ins>x&lt;/ins>`, true, "<ins>x</ins>"},
		{"sub", `&lt;sub>x&lt;/sub>`, true, "<sub>x</sub>"},
		{"sup", `&lt;sup>x&lt;/sup>`, true, "<sup>x</sup>"},
		{"span not listed", `&lt;span class="x">x&lt;/span>`, true, "x"},
		{"prefix of listed tag", `&lt;bold>x&lt;/bold>`, true, "x"},
		{"all stripped", `&lt;sup>x&lt;/sup> &lt;span>y&lt;/span>`, false, "x y"},
		{"whitespace only", ` `, false, " "},
		{"whitespace only preserved", ` `, true, " "},
		{"cdata", `<![CDATA[plain & simple]]>`, false, "plain & simple"},
		{"cdata with tags", `<![CDATA[<i>x</i>]]> y`, true, "<i>x</i> y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`<transcript><text start="2" dur="1">` + tt.escaped + `</text></transcript>`)
			snippets, err := Parser{PreserveFormatting: tt.preserve}.Parse(raw)
			require.NoError(t, err)
			require.Len(t, snippets, 1)
			assert.Equal(t, tt.want, snippets[0].Text)
			assert.Equal(t, 2.0, snippets[0].Start)
		})
	}
}
