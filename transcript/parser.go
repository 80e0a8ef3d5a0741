package transcript

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"aqwari.net/xml/xmltree"
	"bitbucket.org/creachadair/stringset"
	"github.com/pkg/errors"
)

// formattingTags are the inline tags kept when formatting is preserved.
var formattingTags = []string{
	"strong",
	"em",
	"b",
	"i",
	"mark",
	"small",
	"del",
	"ins",
	"sub",
	"sup",
}

var (
	tagRE     = regexp.MustCompile(`<[^>]*>`)
	tagNameRE = regexp.MustCompile(`^</?\s*/?([A-Za-z][A-Za-z0-9]*)`)
	cdataRE   = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
)

// Snippet is one timed piece of caption text.
type Snippet struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Parser turns the legacy timedtext XML payload into snippets.
type Parser struct {
	PreserveFormatting bool
}

// Parse returns one snippet per <text> element that has content, in
// document order.
func (p Parser) Parse(raw []byte) ([]Snippet, error) {
	root, err := xmltree.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse caption xml")
	}

	snippets := []Snippet{}
	for _, el := range root.Children {
		if el.Name.Local != "text" || len(el.Content) == 0 {
			continue
		}

		var start, duration float64
		hasStart := false
		for _, attr := range el.StartElement.Attr {
			switch attr.Name.Local {
			case "start":
				if start, err = strconv.ParseFloat(attr.Value, 64); err != nil {
					return nil, errors.Wrapf(err, "parse start %q", attr.Value)
				}
				hasStart = true
			case "dur":
				if duration, err = strconv.ParseFloat(attr.Value, 64); err != nil {
					return nil, errors.Wrapf(err, "parse dur %q", attr.Value)
				}
			}
		}
		if !hasStart {
			return nil, errors.New("caption element without start attribute")
		}

		// Content is raw XML, so it is decoded once for the XML layer and
		// once more for the HTML entities the platform escapes inside it.
		text := html.UnescapeString(html.UnescapeString(expandCDATA(el.Content)))
		snippets = append(snippets, Snippet{
			Text:     p.stripTags(text),
			Start:    start,
			Duration: duration,
		})
	}
	return snippets, nil
}

// expandCDATA replaces CDATA sections with the escaped text they stand for.
func expandCDATA(content []byte) string {
	return cdataRE.ReplaceAllStringFunc(string(content), func(section string) string {
		return html.EscapeString(cdataRE.FindStringSubmatch(section)[1])
	})
}

func (p Parser) stripTags(s string) string {
	if !p.PreserveFormatting {
		return tagRE.ReplaceAllString(s, "")
	}
	return tagRE.ReplaceAllStringFunc(s, func(tag string) string {
		m := tagNameRE.FindStringSubmatch(tag)
		if m != nil && stringset.Contains(formattingTags, strings.ToLower(m[1])) {
			return tag
		}
		return ""
	})
}
