// Package formatters renders fetched transcripts as text, JSON or subtitle
// files.
package formatters

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/nijaru/yt-transcript/transcript"
)

// Formatter renders one or more transcripts.
type Formatter interface {
	FormatTranscript(t *transcript.FetchedTranscript) (string, error)
	FormatTranscripts(ts []*transcript.FetchedTranscript) (string, error)
}

// TextFormatter emits the snippet texts one per line.
type TextFormatter struct{}

func (TextFormatter) FormatTranscript(t *transcript.FetchedTranscript) (string, error) {
	lines := make([]string, t.Len())
	for i, s := range t.Snippets() {
		lines[i] = s.Text
	}
	return strings.Join(lines, "\n"), nil
}

func (f TextFormatter) FormatTranscripts(ts []*transcript.FetchedTranscript) (string, error) {
	return joinEach(f, ts)
}

// JSONFormatter emits the snippets as a JSON array of text, start and
// duration objects. Several transcripts become an array of arrays.
type JSONFormatter struct {
	Indent string
}

func (f JSONFormatter) FormatTranscript(t *transcript.FetchedTranscript) (string, error) {
	return f.marshal(snippets(t))
}

func (f JSONFormatter) FormatTranscripts(ts []*transcript.FetchedTranscript) (string, error) {
	all := make([][]transcript.Snippet, len(ts))
	for i, t := range ts {
		all[i] = snippets(t)
	}
	return f.marshal(all)
}

func (f JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)
	if f.Indent != "" {
		data, err = json.MarshalIndent(v, "", f.Indent)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", errors.Wrap(err, "encode transcript")
	}
	return string(data), nil
}

func snippets(t *transcript.FetchedTranscript) []transcript.Snippet {
	if s := t.Snippets(); s != nil {
		return s
	}
	return []transcript.Snippet{}
}

// PrettyFormatter emits a header per transcript followed by one timed line
// per snippet.
type PrettyFormatter struct{}

func (PrettyFormatter) FormatTranscript(t *transcript.FetchedTranscript) (string, error) {
	kind := "manually created"
	if t.IsGenerated {
		kind = "generated"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s (%q), %s, %d snippets", t.VideoID, t.LanguageCode, t.Language, kind, t.Len())
	for _, s := range t.Snippets() {
		fmt.Fprintf(&sb, "\n  [%8.2f - %8.2f] %s", s.Start, s.Start+s.Duration, s.Text)
	}
	return sb.String(), nil
}

func (f PrettyFormatter) FormatTranscripts(ts []*transcript.FetchedTranscript) (string, error) {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i], _ = f.FormatTranscript(t)
	}
	return strings.Join(parts, "\n\n"), nil
}

// SRTFormatter emits SubRip subtitles.
type SRTFormatter struct{}

func (SRTFormatter) FormatTranscript(t *transcript.FetchedTranscript) (string, error) {
	cues := timedCues(t.Snippets(), ",")
	blocks := make([]string, len(cues))
	for i, c := range cues {
		blocks[i] = fmt.Sprintf("%d\n%s", i+1, c)
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

func (f SRTFormatter) FormatTranscripts(ts []*transcript.FetchedTranscript) (string, error) {
	return joinEach(f, ts)
}

// WebVTTFormatter emits WebVTT subtitles.
type WebVTTFormatter struct{}

func (WebVTTFormatter) FormatTranscript(t *transcript.FetchedTranscript) (string, error) {
	return "WEBVTT\n\n" + strings.Join(timedCues(t.Snippets(), "."), "\n\n") + "\n", nil
}

func (f WebVTTFormatter) FormatTranscripts(ts []*transcript.FetchedTranscript) (string, error) {
	return joinEach(f, ts)
}

// timedCues renders "start --> end\ntext" per snippet. A cue ends where the
// next one starts if the two would otherwise overlap.
func timedCues(snippets []transcript.Snippet, msSep string) []string {
	cues := make([]string, len(snippets))
	for i, s := range snippets {
		end := s.Start + s.Duration
		if i+1 < len(snippets) && snippets[i+1].Start < end {
			end = snippets[i+1].Start
		}
		cues[i] = fmt.Sprintf("%s --> %s\n%s", timestamp(s.Start, msSep), timestamp(end, msSep), s.Text)
	}
	return cues
}

func timestamp(seconds float64, msSep string) string {
	whole := math.Floor(seconds)
	h := int(whole) / 3600
	m := int(whole) % 3600 / 60
	s := int(whole) % 60
	ms := int(math.Round((seconds - whole) * 1000))
	if ms >= 1000 {
		ms = 999
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, msSep, ms)
}

func joinEach(f Formatter, ts []*transcript.FetchedTranscript) (string, error) {
	parts := make([]string, len(ts))
	for i, t := range ts {
		out, err := f.FormatTranscript(t)
		if err != nil {
			return "", err
		}
		parts[i] = out
	}
	return strings.Join(parts, "\n\n\n"), nil
}

var formatters = map[string]func() Formatter{
	"json":   func() Formatter { return JSONFormatter{} },
	"pretty": func() Formatter { return PrettyFormatter{} },
	"text":   func() Formatter { return TextFormatter{} },
	"srt":    func() Formatter { return SRTFormatter{} },
	"webvtt": func() Formatter { return WebVTTFormatter{} },
}

var extensions = map[string]string{
	"json":   "json",
	"pretty": "txt",
	"text":   "txt",
	"srt":    "srt",
	"webvtt": "vtt",
}

// Names returns the supported formatter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownFormatterError is returned by Load for an unsupported name.
type UnknownFormatterError struct {
	Name string
}

func (e *UnknownFormatterError) Error() string {
	return fmt.Sprintf("the format '%s' is not supported. Choose one of the following formats: %s",
		e.Name, strings.Join(Names(), ", "))
}

// Loader resolves formatter names.
type Loader struct{}

// Load returns the formatter registered under name.
func (Loader) Load(name string) (Formatter, error) {
	newFormatter, ok := formatters[name]
	if !ok {
		return nil, &UnknownFormatterError{Name: name}
	}
	return newFormatter(), nil
}

// Load is shorthand for Loader{}.Load.
func Load(name string) (Formatter, error) {
	return Loader{}.Load(name)
}

// Extension returns the file extension for output of the named formatter,
// "txt" for unknown names.
func Extension(name string) string {
	if ext, ok := extensions[name]; ok {
		return ext
	}
	return "txt"
}
