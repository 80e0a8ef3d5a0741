package transcript

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const poTokenMarker = "&exp=xpe"

// Transcript is one caption track of a video. It knows where its payload
// lives and how to derive translated variants of itself.
type Transcript struct {
	VideoID      string
	Language     string
	LanguageCode string
	IsGenerated  bool

	// TranslationLanguages is shared between all translatable tracks of a
	// list. It is empty when the track cannot be translated.
	TranslationLanguages []TranslationLanguage

	url  string
	http *httpClient
}

// URL returns the address the caption payload is fetched from.
func (t *Transcript) URL() string { return t.url }

func (t *Transcript) IsTranslatable() bool { return len(t.TranslationLanguages) > 0 }

// Fetch downloads and parses the caption payload.
func (t *Transcript) Fetch(ctx context.Context, preserveFormatting bool) (*FetchedTranscript, error) {
	if strings.Contains(t.url, poTokenMarker) {
		return nil, newError(KindPoTokenRequired, t.VideoID)
	}

	req, err := http.NewRequest(http.MethodGet, t.url, nil)
	if err != nil {
		e := newError(KindRequestFailed, t.VideoID)
		e.Err = err
		return nil, e
	}
	body, err := t.http.do(ctx, t.VideoID, req)
	if err != nil {
		return nil, err
	}

	snippets, err := Parser{PreserveFormatting: preserveFormatting}.Parse(body)
	if err != nil {
		e := newError(KindDataUnparsable, t.VideoID)
		e.Err = err
		return nil, e
	}
	return &FetchedTranscript{
		VideoID:      t.VideoID,
		Language:     t.Language,
		LanguageCode: t.LanguageCode,
		IsGenerated:  t.IsGenerated,
		snippets:     snippets,
	}, nil
}

// Translate returns the track machine-translated to languageCode. The
// result is generated and cannot be translated further.
func (t *Transcript) Translate(languageCode string) (*Transcript, error) {
	if !t.IsTranslatable() {
		return nil, newError(KindNotTranslatable, t.VideoID)
	}
	for _, tl := range t.TranslationLanguages {
		if tl.LanguageCode != languageCode {
			continue
		}
		return &Transcript{
			VideoID:      t.VideoID,
			Language:     tl.Language,
			LanguageCode: tl.LanguageCode,
			IsGenerated:  true,
			url:          t.url + "&tlang=" + languageCode,
			http:         t.http,
		}, nil
	}
	return nil, newError(KindTranslationLanguageNotAvailable, t.VideoID)
}

func (t *Transcript) String() string {
	s := fmt.Sprintf("%s (%q)", t.LanguageCode, t.Language)
	if t.IsTranslatable() {
		s += "[TRANSLATABLE]"
	}
	return s
}

// FetchedTranscript is the parsed payload of one track.
type FetchedTranscript struct {
	VideoID      string
	Language     string
	LanguageCode string
	IsGenerated  bool

	snippets []Snippet
}

// NewFetchedTranscript assembles a FetchedTranscript from already parsed
// snippets.
func NewFetchedTranscript(videoID, language, languageCode string, isGenerated bool, snippets []Snippet) *FetchedTranscript {
	return &FetchedTranscript{
		VideoID:      videoID,
		Language:     language,
		LanguageCode: languageCode,
		IsGenerated:  isGenerated,
		snippets:     snippets,
	}
}

func (ft *FetchedTranscript) Snippets() []Snippet { return ft.snippets }

func (ft *FetchedTranscript) Len() int { return len(ft.snippets) }

func (ft *FetchedTranscript) At(i int) Snippet { return ft.snippets[i] }

// RawData returns the snippets as plain maps with text, start and duration
// keys.
func (ft *FetchedTranscript) RawData() []map[string]any {
	out := make([]map[string]any, len(ft.snippets))
	for i, s := range ft.snippets {
		out[i] = map[string]any{
			"text":     s.Text,
			"start":    s.Start,
			"duration": s.Duration,
		}
	}
	return out
}
