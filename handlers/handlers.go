package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nijaru/yt-transcript/config"
	"github.com/nijaru/yt-transcript/db"
	"github.com/nijaru/yt-transcript/formatters"
	"github.com/nijaru/yt-transcript/middleware"
	"github.com/nijaru/yt-transcript/storage"
	"github.com/nijaru/yt-transcript/transcript"
	"github.com/nijaru/yt-transcript/transcription"
	"github.com/nijaru/yt-transcript/utils"
	"github.com/nijaru/yt-transcript/validation"
)

var (
	cfg         *config.Config
	rateLimiter *rate.Limiter
	service     *transcription.TranscriptionService
)

func InitHandlers(c *config.Config, s *transcription.TranscriptionService) {
	cfg = c
	rateLimiter = rate.NewLimiter(rate.Every(cfg.RateLimitInterval), cfg.RateLimit)
	service = s
}

// Routes returns the API routes wrapped in the logging middleware.
func Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/transcripts", TranscriptHandler)
	mux.HandleFunc("/api/transcripts/list", ListHandler)
	mux.HandleFunc("/api/transcripts/archive", ArchiveHandler)
	mux.HandleFunc("/api/transcripts/export", ExportHandler)
	mux.HandleFunc("/health", HealthHandler)
	return middleware.LoggingMiddleware(mux)
}

// TranscriptHandler fetches one transcript and returns it rendered in the
// requested format.
func TranscriptHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.GetLogger(r.Context())

	if r.Method != http.MethodPost {
		utils.HandleError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	req, err := parseTranscriptRequest(r)
	if err != nil {
		handleServiceError(w, log, err)
		return
	}

	if !rateLimiter.Allow() {
		utils.HandleError(w, "Rate limit exceeded", http.StatusTooManyRequests)
		log.WithField("video_id", req.VideoID).Warn("Rate limit exceeded")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout)
	defer cancel()

	result, err := service.HandleTranscript(ctx, req)
	if err != nil {
		handleServiceError(w, log.WithField("video_id", req.VideoID), err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, result)
	log.WithFields(logrus.Fields{
		"video_id":      result.VideoID,
		"language_code": result.LanguageCode,
	}).Info("Transcript sent")
}

func parseTranscriptRequest(r *http.Request) (transcription.Request, error) {
	var req transcription.Request

	videoID, err := validation.VideoID(r.FormValue("video"))
	if err != nil {
		return req, err
	}
	languages, err := validation.Languages(r.FormValue("languages"))
	if err != nil {
		return req, err
	}
	if len(languages) == 0 {
		languages = cfg.DefaultLanguages
	}
	translate, err := validation.Languages(r.FormValue("translate"))
	if err != nil {
		return req, err
	}
	if len(translate) > 1 {
		return req, &validation.ValidationError{Message: "error: only one translation language is allowed"}
	}

	format := r.FormValue("format")
	if format == "" {
		format = "json"
	}
	preserve := false
	if v := r.FormValue("preserve_formatting"); v != "" {
		if preserve, err = strconv.ParseBool(v); err != nil {
			return req, &validation.ValidationError{Message: "error: preserve_formatting must be a boolean"}
		}
	}

	req = transcription.Request{
		VideoID:            videoID,
		Languages:          languages,
		Format:             format,
		PreserveFormatting: preserve,
	}
	if len(translate) == 1 {
		req.Translate = translate[0]
	}
	return req, nil
}

type trackResponse struct {
	LanguageCode   string `json:"language_code"`
	Language       string `json:"language"`
	IsGenerated    bool   `json:"is_generated"`
	IsTranslatable bool   `json:"is_translatable"`
}

type listResponse struct {
	VideoID              string                           `json:"video_id"`
	Transcripts          []trackResponse                  `json:"transcripts"`
	TranslationLanguages []transcript.TranslationLanguage `json:"translation_languages"`
}

func newListResponse(list *transcript.TranscriptList) listResponse {
	resp := listResponse{
		VideoID:              list.VideoID,
		Transcripts:          []trackResponse{},
		TranslationLanguages: list.TranslationLanguages(),
	}
	for _, t := range list.Transcripts() {
		resp.Transcripts = append(resp.Transcripts, trackResponse{
			LanguageCode:   t.LanguageCode,
			Language:       t.Language,
			IsGenerated:    t.IsGenerated,
			IsTranslatable: t.IsTranslatable(),
		})
	}
	return resp
}

// ListHandler returns the caption catalog of a video.
func ListHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.GetLogger(r.Context())

	if r.Method != http.MethodGet {
		utils.HandleError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	videoID, err := validation.VideoID(r.URL.Query().Get("video"))
	if err != nil {
		handleServiceError(w, log, err)
		return
	}

	if !rateLimiter.Allow() {
		utils.HandleError(w, "Rate limit exceeded", http.StatusTooManyRequests)
		log.WithField("video_id", videoID).Warn("Rate limit exceeded")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout)
	defer cancel()

	list, err := service.List(ctx, videoID)
	if err != nil {
		handleServiceError(w, log.WithField("video_id", videoID), err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newListResponse(list))
}

type archiveRecord struct {
	Languages    string `json:"languages"`
	Translate    string `json:"translate,omitempty"`
	Format       string `json:"format"`
	Status       string `json:"status"`
	LanguageCode string `json:"language_code,omitempty"`
	IsGenerated  bool   `json:"is_generated"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Content      string `json:"content,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

func newArchiveRecord(rec db.Record) archiveRecord {
	return archiveRecord{
		Languages:    rec.Languages,
		Translate:    rec.Translate,
		Format:       rec.Format,
		Status:       rec.Status,
		LanguageCode: rec.LanguageCode,
		IsGenerated:  rec.IsGenerated,
		ErrorKind:    rec.ErrorKind,
		UpdatedAt:    rec.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// ArchiveHandler reads and prunes what was recorded for a video without
// contacting the platform. With only ?video= it lists every record; with
// format (and optionally languages and translate) it addresses the record of
// one request, which GET returns including its content and DELETE removes.
func ArchiveHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.GetLogger(r.Context())

	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		utils.HandleError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	videoID, err := validation.VideoID(q.Get("video"))
	if err != nil {
		handleServiceError(w, log, err)
		return
	}

	if q.Get("format") == "" {
		if r.Method == http.MethodDelete {
			utils.HandleError(w, "format is required to delete an archived transcript", http.StatusBadRequest)
			return
		}
		listArchive(w, r, log, videoID)
		return
	}

	req, err := parseTranscriptRequest(r)
	if err != nil {
		handleServiceError(w, log, err)
		return
	}
	key := req.Key()

	if r.Method == http.MethodDelete {
		if err := db.DeleteTranscript(r.Context(), key); err != nil {
			utils.HandleError(w, "Failed to delete archived transcript", http.StatusInternalServerError)
			log.WithError(err).Error("Failed to delete archived transcript")
			return
		}
		log.WithField("video_id", videoID).Info("Archived transcript deleted")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rec, err := db.GetTranscript(r.Context(), key)
	if err != nil {
		utils.HandleError(w, "Failed to read archive", http.StatusInternalServerError)
		log.WithError(err).Error("Failed to read archived transcript")
		return
	}
	if rec.Status == db.StatusPending {
		utils.HandleError(w, "Transcript not archived", http.StatusNotFound)
		return
	}
	resp := newArchiveRecord(*rec)
	resp.Content = rec.Content
	utils.WriteJSON(w, http.StatusOK, resp)
}

func listArchive(w http.ResponseWriter, r *http.Request, log *logrus.Entry, videoID string) {
	records, err := db.ListTranscripts(r.Context(), videoID)
	if err != nil {
		utils.HandleError(w, "Failed to read archive", http.StatusInternalServerError)
		log.WithError(err).Error("Failed to list archived transcripts")
		return
	}

	resp := make([]archiveRecord, len(records))
	for i, rec := range records {
		resp[i] = newArchiveRecord(rec)
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"video_id": videoID, "records": resp})
}

// ExportHandler returns a transcript from the export bucket.
func ExportHandler(w http.ResponseWriter, r *http.Request) {
	log := middleware.GetLogger(r.Context())

	if r.Method != http.MethodGet {
		utils.HandleError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	videoID, err := validation.VideoID(q.Get("video"))
	if err != nil {
		handleServiceError(w, log, err)
		return
	}
	languages, err := validation.Languages(q.Get("language"))
	if err != nil {
		handleServiceError(w, log, err)
		return
	}
	if len(languages) != 1 {
		handleServiceError(w, log, &validation.ValidationError{Message: "error: exactly one language is required"})
		return
	}
	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	if _, err := formatters.Load(format); err != nil {
		handleServiceError(w, log, err)
		return
	}

	obj, err := service.Exported(r.Context(), videoID, languages[0], format)
	switch {
	case errors.Is(err, transcription.ErrExportUnavailable):
		utils.HandleError(w, "Transcript export is not configured", http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrNotFound):
		utils.HandleError(w, "Transcript not exported", http.StatusNotFound)
		return
	case err != nil:
		utils.HandleError(w, "Failed to read exported transcript", http.StatusBadGateway)
		log.WithError(err).Error("Failed to read exported transcript")
		return
	}
	utils.WriteJSON(w, http.StatusOK, obj)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := db.DB.PingContext(r.Context()); err != nil {
		utils.HandleError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForError maps an error to the HTTP status and client facing kind.
func statusForError(err error) (int, string) {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, "invalid_request"
	}
	var ufe *formatters.UnknownFormatterError
	if errors.As(err, &ufe) {
		return http.StatusBadRequest, "unknown_format"
	}
	var te *transcript.Error
	if errors.As(err, &te) {
		switch te.Kind {
		case transcript.KindInvalidVideoID, transcript.KindNotTranslatable, transcript.KindTranslationLanguageNotAvailable:
			return http.StatusBadRequest, te.Kind.String()
		case transcript.KindVideoUnavailable, transcript.KindNoTranscriptFound, transcript.KindTranscriptsDisabled:
			return http.StatusNotFound, te.Kind.String()
		case transcript.KindIPBlocked:
			return http.StatusTooManyRequests, te.Kind.String()
		case transcript.KindRequestBlocked:
			return http.StatusServiceUnavailable, te.Kind.String()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "timeout"
		}
		return http.StatusBadGateway, te.Kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

func handleServiceError(w http.ResponseWriter, log *logrus.Entry, err error) {
	status, kind := statusForError(err)
	message := strings.TrimSpace(err.Error())
	if status == http.StatusInternalServerError {
		message = "An error occurred while processing your request. Please try again later."
	}

	utils.WriteJSON(w, status, map[string]string{"error": message, "kind": kind})

	entry := log.WithError(err).WithFields(logrus.Fields{"status": status, "kind": kind})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}
}
