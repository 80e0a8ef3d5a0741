package transcript

import (
	"fmt"
	"strings"
)

// Scope narrows a lookup to one kind of caption track.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeManuallyCreated
	ScopeGenerated
)

// TranslationLanguage is a language a translatable track can be translated to.
type TranslationLanguage struct {
	Language     string `json:"language"`
	LanguageCode string `json:"language_code"`
}

// trackIndex maps language codes to tracks and remembers the order in which
// the codes were first seen.
type trackIndex struct {
	order  []string
	byCode map[string]*Transcript
}

func newTrackIndex() *trackIndex {
	return &trackIndex{byCode: make(map[string]*Transcript)}
}

func (ix *trackIndex) put(t *Transcript) {
	if _, ok := ix.byCode[t.LanguageCode]; !ok {
		ix.order = append(ix.order, t.LanguageCode)
	}
	ix.byCode[t.LanguageCode] = t
}

func (ix *trackIndex) all() []*Transcript {
	out := make([]*Transcript, 0, len(ix.order))
	for _, code := range ix.order {
		out = append(out, ix.byCode[code])
	}
	return out
}

// TranscriptList is the catalog of caption tracks of one video. It is
// immutable once built.
type TranscriptList struct {
	VideoID string

	manual               *trackIndex
	generated            *trackIndex
	translationLanguages []TranslationLanguage
}

func buildTranscriptList(client *httpClient, videoID string, captions *captionsJSON) *TranscriptList {
	langs := make([]TranslationLanguage, 0, len(captions.TranslationLanguages))
	for _, tl := range captions.TranslationLanguages {
		langs = append(langs, TranslationLanguage{
			Language:     tl.LanguageName.String(),
			LanguageCode: tl.LanguageCode,
		})
	}

	tl := &TranscriptList{
		VideoID:              videoID,
		manual:               newTrackIndex(),
		generated:            newTrackIndex(),
		translationLanguages: langs,
	}
	for _, track := range captions.CaptionTracks {
		t := &Transcript{
			VideoID:      videoID,
			Language:     track.Name.String(),
			LanguageCode: track.LanguageCode,
			IsGenerated:  track.Kind == "asr",
			url:          strings.ReplaceAll(track.BaseURL, "&fmt=srv3", ""),
			http:         client,
		}
		if track.IsTranslatable {
			t.TranslationLanguages = langs
		}
		if t.IsGenerated {
			tl.generated.put(t)
		} else {
			tl.manual.put(t)
		}
	}
	return tl
}

// Find returns the first track matching languageCodes in priority order. For
// every code a manually created track wins over a generated one, unless
// scope excludes one of the kinds.
func (tl *TranscriptList) Find(languageCodes []string, scope Scope) (*Transcript, error) {
	var indexes []*trackIndex
	switch scope {
	case ScopeManuallyCreated:
		indexes = []*trackIndex{tl.manual}
	case ScopeGenerated:
		indexes = []*trackIndex{tl.generated}
	default:
		indexes = []*trackIndex{tl.manual, tl.generated}
	}

	for _, code := range languageCodes {
		for _, ix := range indexes {
			if t, ok := ix.byCode[code]; ok {
				return t, nil
			}
		}
	}

	e := newError(KindNoTranscriptFound, tl.VideoID)
	e.RequestedLanguages = make([]string, len(languageCodes))
	copy(e.RequestedLanguages, languageCodes)
	e.List = tl
	return nil, e
}

// FindTranscript looks in both manually created and generated tracks.
func (tl *TranscriptList) FindTranscript(languageCodes []string) (*Transcript, error) {
	return tl.Find(languageCodes, ScopeAll)
}

// FindManuallyCreatedTranscript only considers manually created tracks.
func (tl *TranscriptList) FindManuallyCreatedTranscript(languageCodes []string) (*Transcript, error) {
	return tl.Find(languageCodes, ScopeManuallyCreated)
}

// FindGeneratedTranscript only considers generated tracks.
func (tl *TranscriptList) FindGeneratedTranscript(languageCodes []string) (*Transcript, error) {
	return tl.Find(languageCodes, ScopeGenerated)
}

// Transcripts returns all manually created tracks followed by all generated
// ones, each group in the order the platform listed them.
func (tl *TranscriptList) Transcripts() []*Transcript {
	return append(tl.manual.all(), tl.generated.all()...)
}

func (tl *TranscriptList) ManuallyCreated() []*Transcript { return tl.manual.all() }

func (tl *TranscriptList) Generated() []*Transcript { return tl.generated.all() }

func (tl *TranscriptList) Len() int { return len(tl.manual.order) + len(tl.generated.order) }

func (tl *TranscriptList) TranslationLanguages() []TranslationLanguage {
	return tl.translationLanguages
}

func (tl *TranscriptList) String() string {
	return fmt.Sprintf("For this video (%s) transcripts are available in the following languages:\n\n"+
		"(MANUALLY CREATED)\n%s\n\n(GENERATED)\n%s\n\n(TRANSLATION LANGUAGES)\n%s",
		tl.VideoID,
		listLines(tl.manual.all()),
		listLines(tl.generated.all()),
		translationLines(tl.translationLanguages),
	)
}

func listLines(ts []*Transcript) string {
	if len(ts) == 0 {
		return "None"
	}
	lines := make([]string, len(ts))
	for i, t := range ts {
		lines[i] = " - " + t.String()
	}
	return strings.Join(lines, "\n")
}

func translationLines(langs []TranslationLanguage) string {
	if len(langs) == 0 {
		return "None"
	}
	lines := make([]string, len(langs))
	for i, l := range langs {
		lines[i] = fmt.Sprintf(" - %s (%q)", l.LanguageCode, l.Language)
	}
	return strings.Join(lines, "\n")
}
