package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var DB *sql.DB

// Key identifies one archived transcript request. Languages is the
// requested priority list joined by commas; Translate is empty when no
// translation was asked for.
type Key struct {
	VideoID   string
	Languages string
	Translate string
	Format    string
}

// Record is the archived outcome of a transcript request.
type Record struct {
	Key
	Status       string
	LanguageCode string
	Language     string
	IsGenerated  bool
	Content      string
	ErrorKind    string
	UpdatedAt    time.Time
}

func InitializeDB(dbPath string) error {
	logrus.Info("Initializing database")

	// Ensure the directory for the database file exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "error creating directory for database")
	}

	var err error
	DB, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return errors.Wrap(err, "error opening database")
	}

	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(30 * time.Minute)

	_, err = DB.Exec(`CREATE TABLE IF NOT EXISTS transcripts (
		video_id TEXT NOT NULL,
		languages TEXT NOT NULL,
		translate TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		language_code TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		is_generated BOOLEAN NOT NULL DEFAULT 0,
		content TEXT,
		error_kind TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (video_id, languages, translate, format)
	)`)
	if err != nil {
		DB.Close()
		return errors.Wrap(err, "error creating table")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := DB.PingContext(ctx); err != nil {
		DB.Close()
		return errors.Wrap(err, "error connecting to database")
	}
	return nil
}

// GetTranscript returns the archived record for key. A key that was never
// stored yields a record with StatusPending.
func GetTranscript(ctx context.Context, key Key) (*Record, error) {
	rec := &Record{Key: key}
	var content sql.NullString
	err := DB.QueryRowContext(ctx, `SELECT status, language_code, language, is_generated, content, error_kind, updated_at
		FROM transcripts WHERE video_id = ? AND languages = ? AND translate = ? AND format = ?`,
		key.VideoID, key.Languages, key.Translate, key.Format,
	).Scan(&rec.Status, &rec.LanguageCode, &rec.Language, &rec.IsGenerated, &content, &rec.ErrorKind, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			rec.Status = StatusPending
			return rec, nil
		}
		return nil, errors.Wrap(err, "error querying database")
	}
	rec.Content = content.String
	return rec, nil
}

// SetTranscript stores a completed record, replacing any earlier outcome.
func SetTranscript(ctx context.Context, rec *Record) error {
	return exec(ctx, `INSERT INTO transcripts
		(video_id, languages, translate, format, status, language_code, language, is_generated, content, error_kind, updated_at)
		VALUES (?, ?, ?, ?, 'completed', ?, ?, ?, ?, '', ?)
		ON CONFLICT(video_id, languages, translate, format) DO UPDATE SET
			status = 'completed',
			language_code = excluded.language_code,
			language = excluded.language,
			is_generated = excluded.is_generated,
			content = excluded.content,
			error_kind = '',
			updated_at = excluded.updated_at`,
		rec.VideoID, rec.Languages, rec.Translate, rec.Format,
		rec.LanguageCode, rec.Language, rec.IsGenerated, rec.Content, time.Now().UTC(),
	)
}

func SetTranscriptStatus(ctx context.Context, key Key, status string) error {
	return exec(ctx, `INSERT INTO transcripts (video_id, languages, translate, format, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id, languages, translate, format) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		key.VideoID, key.Languages, key.Translate, key.Format, status, time.Now().UTC(),
	)
}

// SetTranscriptError marks key as failed with the given error kind.
func SetTranscriptError(ctx context.Context, key Key, errorKind string) error {
	return exec(ctx, `INSERT INTO transcripts (video_id, languages, translate, format, status, error_kind, updated_at)
		VALUES (?, ?, ?, ?, 'failed', ?, ?)
		ON CONFLICT(video_id, languages, translate, format) DO UPDATE SET
			status = 'failed',
			error_kind = excluded.error_kind,
			updated_at = excluded.updated_at`,
		key.VideoID, key.Languages, key.Translate, key.Format, errorKind, time.Now().UTC(),
	)
}

func DeleteTranscript(ctx context.Context, key Key) error {
	return exec(ctx, `DELETE FROM transcripts WHERE video_id = ? AND languages = ? AND translate = ? AND format = ?`,
		key.VideoID, key.Languages, key.Translate, key.Format)
}

// ListTranscripts returns every archived record of videoID, most recently
// updated first.
func ListTranscripts(ctx context.Context, videoID string) ([]Record, error) {
	rows, err := DB.QueryContext(ctx, `SELECT languages, translate, format, status, language_code, language,
		is_generated, content, error_kind, updated_at
		FROM transcripts WHERE video_id = ? ORDER BY updated_at DESC, languages, translate, format`, videoID)
	if err != nil {
		return nil, errors.Wrap(err, "error querying database")
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec := Record{Key: Key{VideoID: videoID}}
		var content sql.NullString
		if err := rows.Scan(&rec.Languages, &rec.Translate, &rec.Format, &rec.Status, &rec.LanguageCode,
			&rec.Language, &rec.IsGenerated, &content, &rec.ErrorKind, &rec.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		rec.Content = content.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}
	return records, nil
}

// exec runs a write statement in its own transaction, retrying while the
// database is busy.
func exec(ctx context.Context, query string, args ...any) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 5), ctx)
	return backoff.Retry(func() error {
		err := execTx(ctx, query, args...)
		if err == nil || isBusy(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

func execTx(ctx context.Context, query string, args ...any) error {
	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error beginning transaction")
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "error executing statement")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing transaction")
	}
	return nil
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
