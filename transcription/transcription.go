package transcription

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/nijaru/yt-transcript/db"
	"github.com/nijaru/yt-transcript/formatters"
	"github.com/nijaru/yt-transcript/storage"
	"github.com/nijaru/yt-transcript/transcript"
)

var transcriptLocks sync.Map

type transcriptLock struct {
	mu sync.Mutex
}

func getTranscriptLock(key db.Key) *transcriptLock {
	lock, _ := transcriptLocks.LoadOrStore(key, &transcriptLock{})
	return lock.(*transcriptLock)
}

// Request describes one transcript to fetch and render.
type Request struct {
	VideoID            string
	Languages          []string
	Translate          string
	Format             string
	PreserveFormatting bool
}

// Key identifies the archive row of r.
func (r Request) Key() db.Key {
	return db.Key{
		VideoID:   r.VideoID,
		Languages: strings.Join(r.Languages, ","),
		Translate: r.Translate,
		Format:    r.Format,
	}
}

// Result is a rendered transcript.
type Result struct {
	VideoID      string `json:"video_id"`
	LanguageCode string `json:"language_code"`
	Language     string `json:"language"`
	IsGenerated  bool   `json:"is_generated"`
	Format       string `json:"format"`
	Content      string `json:"content"`
}

// Exporter stores rendered transcripts outside the archive.
type Exporter interface {
	SaveTranscript(ctx context.Context, videoID, languageCode, format, content string) error
}

// ExportReader is implemented by exporters that can read back what they
// stored.
type ExportReader interface {
	GetTranscript(ctx context.Context, videoID, languageCode, format string) (*storage.Object, error)
}

var ErrExportUnavailable = errors.New("transcript export is not configured")

type TranscriptionService struct {
	ListFunc  func(ctx context.Context, videoID string) (*transcript.TranscriptList, error)
	FetchFunc func(ctx context.Context, req Request) (*transcript.FetchedTranscript, error)

	// Exporter is optional.
	Exporter Exporter

	lists singleflight.Group
}

func NewTranscriptionService(api *transcript.API, exporter Exporter) *TranscriptionService {
	s := &TranscriptionService{
		ListFunc: api.List,
		Exporter: exporter,
	}
	s.FetchFunc = s.fetch
	return s
}

// HandleTranscript fetches, renders and archives the transcript described by
// req. The archive is only written to; every call goes to the platform.
func (s *TranscriptionService) HandleTranscript(ctx context.Context, req Request) (*Result, error) {
	formatter, err := formatters.Load(req.Format)
	if err != nil {
		return nil, err
	}

	key := req.Key()
	lock := getTranscriptLock(key)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"video_id":  req.VideoID,
		"languages": key.Languages,
		"translate": req.Translate,
		"format":    req.Format,
	})

	if err := db.SetTranscriptStatus(ctx, key, db.StatusInProgress); err != nil {
		log.WithError(err).Error("Failed to set transcript status to in_progress")
		return nil, errors.Wrap(err, "error setting transcript status")
	}

	// Outcomes are recorded even when ctx has expired, so no row is left
	// in_progress.
	bookkeeping := context.WithoutCancel(ctx)

	fetched, err := s.FetchFunc(ctx, req)
	if err != nil {
		kind := errorKind(err)
		if dbErr := db.SetTranscriptError(bookkeeping, key, kind); dbErr != nil {
			log.WithError(dbErr).Error("Failed to record transcript error")
		}
		log.WithError(err).WithField("error_kind", kind).Warn("Transcript fetch failed")
		return nil, err
	}

	content, err := formatter.FormatTranscript(fetched)
	if err != nil {
		if dbErr := db.SetTranscriptError(bookkeeping, key, "format"); dbErr != nil {
			log.WithError(dbErr).Error("Failed to record transcript error")
		}
		return nil, errors.Wrap(err, "error formatting transcript")
	}

	result := &Result{
		VideoID:      fetched.VideoID,
		LanguageCode: fetched.LanguageCode,
		Language:     fetched.Language,
		IsGenerated:  fetched.IsGenerated,
		Format:       req.Format,
		Content:      content,
	}
	if err := s.save(bookkeeping, key, result); err != nil {
		log.WithError(err).Error("Failed to save transcript")
		return nil, err
	}

	if s.Exporter != nil {
		if err := s.Exporter.SaveTranscript(ctx, result.VideoID, result.LanguageCode, result.Format, result.Content); err != nil {
			log.WithError(err).Error("Failed to export transcript")
		}
	}

	log.WithFields(logrus.Fields{
		"language_code": result.LanguageCode,
		"is_generated":  result.IsGenerated,
	}).Info("Transcript saved successfully")
	return result, nil
}

// Exported returns a transcript previously written by the exporter.
func (s *TranscriptionService) Exported(ctx context.Context, videoID, languageCode, format string) (*storage.Object, error) {
	r, ok := s.Exporter.(ExportReader)
	if !ok {
		return nil, ErrExportUnavailable
	}
	return r.GetTranscript(ctx, videoID, languageCode, format)
}

// List returns the caption catalog of videoID. Concurrent calls for the same
// video share one discovery.
func (s *TranscriptionService) List(ctx context.Context, videoID string) (*transcript.TranscriptList, error) {
	v, err, shared := s.lists.Do(videoID, func() (any, error) {
		return s.ListFunc(ctx, videoID)
	})
	if shared {
		logrus.WithField("video_id", videoID).Debug("Shared transcript list discovery")
	}
	if err != nil {
		return nil, err
	}
	return v.(*transcript.TranscriptList), nil
}

func (s *TranscriptionService) fetch(ctx context.Context, req Request) (*transcript.FetchedTranscript, error) {
	list, err := s.List(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}
	t, err := list.FindTranscript(req.Languages)
	if err != nil {
		return nil, err
	}
	if req.Translate != "" {
		if t, err = t.Translate(req.Translate); err != nil {
			return nil, err
		}
	}
	return t.Fetch(ctx, req.PreserveFormatting)
}

// errorKind is the archived name of a fetch failure.
func errorKind(err error) string {
	var te *transcript.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &te):
		return te.Kind.String()
	}
	return "internal"
}

func (s *TranscriptionService) save(ctx context.Context, key db.Key, result *Result) error {
	err := db.SetTranscript(ctx, &db.Record{
		Key:          key,
		LanguageCode: result.LanguageCode,
		Language:     result.Language,
		IsGenerated:  result.IsGenerated,
		Content:      result.Content,
	})
	if err != nil {
		return errors.Wrap(err, "error saving transcript")
	}
	return nil
}
