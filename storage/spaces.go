package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/nijaru/yt-transcript/formatters"
)

// ErrNotFound is returned by GetTranscript when no object is stored.
var ErrNotFound = errors.New("transcript not found in storage")

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

// SpacesClient exports rendered transcripts to an S3 compatible bucket.
type SpacesClient struct {
	client *s3.Client
	bucket string
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig) (*SpacesClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &SpacesClient{client: client, bucket: cfg.Bucket}, nil
}

// Object is the stored form of one exported transcript.
type Object struct {
	VideoID      string    `json:"video_id"`
	LanguageCode string    `json:"language_code"`
	Format       string    `json:"format"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

// Key returns the object key for a transcript, e.g.
// transcripts/GJLlxj_dtq8/en.srt.json.
func Key(videoID, languageCode, format string) string {
	return fmt.Sprintf("transcripts/%s/%s.%s.json", videoID, languageCode, formatters.Extension(format))
}

func (s *SpacesClient) SaveTranscript(ctx context.Context, videoID, languageCode, format, content string) error {
	data, err := json.Marshal(Object{
		VideoID:      videoID,
		LanguageCode: languageCode,
		Format:       format,
		Content:      content,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal transcript")
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(Key(videoID, languageCode, format)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrap(err, "failed to save to Spaces")
	}
	return nil
}

// GetTranscript reads back an exported transcript.
func (s *SpacesClient) GetTranscript(ctx context.Context, videoID, languageCode, format string) (*Object, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(videoID, languageCode, format)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get from Spaces")
	}
	defer result.Body.Close()

	var obj Object
	if err := json.NewDecoder(result.Body).Decode(&obj); err != nil {
		return nil, errors.Wrap(err, "failed to decode transcript")
	}
	return &obj, nil
}
