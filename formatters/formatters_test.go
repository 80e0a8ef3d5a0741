package formatters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nijaru/yt-transcript/transcript"
)

func fetched(snippets ...transcript.Snippet) *transcript.FetchedTranscript {
	return transcript.NewFetchedTranscript("GJLlxj_dtq8", "English", "en", false, snippets)
}

var sample = fetched(
	transcript.Snippet{Text: "first line", Start: 0, Duration: 1.54},
	transcript.Snippet{Text: "second line", Start: 1.54, Duration: 4.16},
	transcript.Snippet{Text: "third line", Start: 3661.5, Duration: 2},
)

func TestTextFormatter(t *testing.T) {
	out, err := TextFormatter{}.FormatTranscript(sample)
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\nthird line", out)

	out, err = TextFormatter{}.FormatTranscripts([]*transcript.FetchedTranscript{sample, fetched(transcript.Snippet{Text: "other"})})
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\nthird line\n\n\nother", out)
}

func TestJSONFormatter(t *testing.T) {
	out, err := JSONFormatter{}.FormatTranscript(sample)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"text": "first line", "start": 0, "duration": 1.54},
		{"text": "second line", "start": 1.54, "duration": 4.16},
		{"text": "third line", "start": 3661.5, "duration": 2}
	]`, out)

	out, err = JSONFormatter{}.FormatTranscript(fetched())
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = JSONFormatter{Indent: "  "}.FormatTranscripts([]*transcript.FetchedTranscript{fetched(transcript.Snippet{Text: "a", Start: 1, Duration: 2})})
	require.NoError(t, err)
	assert.JSONEq(t, `[[{"text": "a", "start": 1, "duration": 2}]]`, out)
	assert.Contains(t, out, "\n  ")
}

func TestSRTFormatter(t *testing.T) {
	out, err := SRTFormatter{}.FormatTranscript(sample)
	require.NoError(t, err)
	want := "1\n00:00:00,000 --> 00:00:01,540\nfirst line\n\n" +
		"2\n00:00:01,540 --> 00:00:05,700\nsecond line\n\n" +
		"3\n01:01:01,500 --> 01:01:03,500\nthird line\n"
	assert.Equal(t, want, out)
}

func TestWebVTTFormatter(t *testing.T) {
	out, err := WebVTTFormatter{}.FormatTranscript(sample)
	require.NoError(t, err)
	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:01.540\nfirst line\n\n" +
		"00:00:01.540 --> 00:00:05.700\nsecond line\n\n" +
		"01:01:01.500 --> 01:01:03.500\nthird line\n"
	assert.Equal(t, want, out)
}

func TestOverlapCorrection(t *testing.T) {
	overlapping := fetched(
		transcript.Snippet{Text: "a", Start: 0, Duration: 5},
		transcript.Snippet{Text: "b", Start: 2, Duration: 3},
	)

	srt, err := SRTFormatter{}.FormatTranscript(overlapping)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:02,000\na\n\n2\n00:00:02,000 --> 00:00:05,000\nb\n", srt)

	vtt, err := WebVTTFormatter{}.FormatTranscript(overlapping)
	require.NoError(t, err)
	assert.Contains(t, vtt, "00:00:00.000 --> 00:00:02.000\na")
}

func TestPrettyFormatter(t *testing.T) {
	out, err := PrettyFormatter{}.FormatTranscript(fetched(transcript.Snippet{Text: "hi", Start: 1, Duration: 2}))
	require.NoError(t, err)
	assert.Equal(t, "GJLlxj_dtq8 en (\"English\"), manually created, 1 snippets\n  [    1.00 -     3.00] hi", out)
}

func TestLoader(t *testing.T) {
	tests := []struct {
		name string
		want Formatter
		ext  string
	}{
		{"json", JSONFormatter{}, "json"},
		{"pretty", PrettyFormatter{}, "txt"},
		{"text", TextFormatter{}, "txt"},
		{"srt", SRTFormatter{}, "srt"},
		{"webvtt", WebVTTFormatter{}, "vtt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Loader{}.Load(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
			assert.Equal(t, tt.ext, Extension(tt.name))
		})
	}

	_, err := Load("docx")
	var ufe *UnknownFormatterError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "docx", ufe.Name)
	assert.Contains(t, err.Error(), "json, pretty, srt, text, webvtt")
}
