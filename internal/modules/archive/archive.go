// Package archive uploads projection exports to S3-compatible object storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aristath/sentinel-income/internal/modules/export"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned by Upload when no bucket is configured.
var ErrNotConfigured = errors.New("archive storage is not configured")

// Config holds the object storage settings. An empty Bucket disables archival.
type Config struct {
	Bucket          string
	Endpoint        string // e.g. https://<account>.r2.cloudflarestorage.com, empty for AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archiver writes CSV exports under <prefix>/<run id>/income_projection_results.csv.
type Archiver struct {
	cfg      Config
	uploader uploader
	log      zerolog.Logger
}

// New creates an archiver. With archival disabled it returns an archiver whose
// Enabled is false and no AWS configuration is loaded.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Archiver, error) {
	log = log.With().Str("component", "archive").Logger()
	if !cfg.Enabled() {
		return &Archiver{cfg: cfg, log: log}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info().
		Str("bucket", cfg.Bucket).
		Str("endpoint", cfg.Endpoint).
		Msg("Archive storage configured")

	return newWithUploader(cfg, manager.NewUploader(client), log), nil
}

func newWithUploader(cfg Config, up uploader, log zerolog.Logger) *Archiver {
	return &Archiver{cfg: cfg, uploader: up, log: log}
}

// Enabled reports whether uploads will be attempted.
func (a *Archiver) Enabled() bool {
	return a.cfg.Enabled() && a.uploader != nil
}

// Key returns the object key of a run's export.
func (a *Archiver) Key(runID string) string {
	return path.Join(strings.Trim(a.cfg.Prefix, "/"), runID, export.CSVFilename)
}

// Upload stores body as the run's CSV export and returns its location.
func (a *Archiver) Upload(ctx context.Context, runID string, body io.Reader) (string, error) {
	if !a.Enabled() {
		return "", ErrNotConfigured
	}

	key := a.Key(runID)
	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(export.ContentTypeCSV),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	location := out.Location
	if location == "" {
		location = fmt.Sprintf("s3://%s/%s", a.cfg.Bucket, key)
	}

	a.log.Debug().Str("run_id", runID).Str("key", key).Msg("Export uploaded")
	return location, nil
}
