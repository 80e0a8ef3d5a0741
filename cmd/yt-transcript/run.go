package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-transcript/formatters"
	"github.com/nijaru/yt-transcript/transcript"
)

type lister interface {
	List(ctx context.Context, videoID string) (*transcript.TranscriptList, error)
}

type runOptions struct {
	videoIDs               []string
	listTranscripts        bool
	languages              []string
	excludeGenerated       bool
	excludeManuallyCreated bool
	format                 string
	translate              string
	preserveFormatting     bool
}

func (o runOptions) scope() transcript.Scope {
	switch {
	case o.excludeGenerated:
		return transcript.ScopeManuallyCreated
	case o.excludeManuallyCreated:
		return transcript.ScopeGenerated
	}
	return transcript.ScopeAll
}

// run processes the videos one after another. The returned text holds every
// error message followed by the rendered result; ok is false if any video
// failed.
func run(ctx context.Context, api lister, opts runOptions) (string, bool) {
	if opts.excludeGenerated && opts.excludeManuallyCreated {
		return "Excluding both generated and manually created transcripts leaves nothing to fetch.", false
	}

	var formatter formatters.Formatter
	if !opts.listTranscripts {
		var err error
		if formatter, err = formatters.Load(opts.format); err != nil {
			return err.Error(), false
		}
	}

	var (
		problems []string
		lists    []string
		fetched  []*transcript.FetchedTranscript
	)
	for _, id := range opts.videoIDs {
		id = strings.ReplaceAll(id, `\`, "")
		log := logrus.WithField("video_id", id)

		list, err := api.List(ctx, id)
		if err != nil {
			log.WithError(err).Debug("Listing transcripts failed")
			problems = append(problems, err.Error())
			continue
		}
		if opts.listTranscripts {
			lists = append(lists, list.String())
			continue
		}

		ft, err := fetchOne(ctx, list, opts)
		if err != nil {
			log.WithError(err).Debug("Fetching transcript failed")
			problems = append(problems, err.Error())
			continue
		}
		fetched = append(fetched, ft)
	}

	var result string
	if opts.listTranscripts {
		result = strings.Join(lists, "\n\n")
	} else if len(fetched) > 0 {
		out, err := formatter.FormatTranscripts(fetched)
		if err != nil {
			problems = append(problems, fmt.Sprintf("formatting transcripts: %v", err))
		} else {
			result = out
		}
	}

	parts := append(problems, result)
	return strings.Join(parts, "\n\n"), len(problems) == 0
}

func fetchOne(ctx context.Context, list *transcript.TranscriptList, opts runOptions) (*transcript.FetchedTranscript, error) {
	t, err := list.Find(opts.languages, opts.scope())
	if err != nil {
		return nil, err
	}
	if opts.translate != "" {
		if t, err = t.Translate(opts.translate); err != nil {
			return nil, err
		}
	}
	return t.Fetch(ctx, opts.preserveFormatting)
}

// splitLanguages accepts codes separated by spaces, commas or both.
func splitLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
}
