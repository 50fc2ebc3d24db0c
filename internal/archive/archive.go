// Package archive writes a best-effort durable snapshot of every computed
// monthly insight to object storage, adapted from the teacher's S3 image
// repository (internal/repository/storage/s3_image_repo.go): same client
// setup and bucket-existence check, repurposed from avatar images to
// JSON insight snapshots keyed by tenant/user/month.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appcfg "github.com/fadhilmayati/dompet-platform/internal/config"
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/rs/zerolog"
)

// Writer persists a copy of each MonthlyInsight to S3-compatible storage.
// Failures are logged and swallowed: archival is an auditing convenience,
// never a dependency of the insight-generation request path.
type Writer struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewWriter builds a Writer, or returns (nil, nil) when archival is
// disabled so callers can treat a nil Writer as a no-op.
func NewWriter(ctx context.Context, cfg appcfg.S3Config, logger zerolog.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	w := &Writer{client: client, bucket: cfg.Bucket, logger: logger.With().Str("component", "insight_archive").Logger()}
	if err := w.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) ensureBucket(ctx context.Context) error {
	_, err := w.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(w.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("check archive bucket (may be permission denied): %w", err)
	}

	if _, err := w.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(w.bucket)}); err != nil {
		return fmt.Errorf("create archive bucket: %w", err)
	}
	return nil
}

// Snapshot writes insight to "{tenantID}/{userID}/{month}.json". Errors are
// logged, never returned: callers fire this after the insight is already
// durably stored in Postgres.
func (w *Writer) Snapshot(ctx context.Context, tenantID int32, insight *domain.MonthlyInsight) {
	if w == nil {
		return
	}

	payload, err := json.Marshal(insight)
	if err != nil {
		w.logger.Error().Err(err).Str("insightId", insight.ID).Msg("failed to marshal insight for archival")
		return
	}

	key := fmt.Sprintf("%d/%s/%s.json", tenantID, insight.UserID, insight.Month)
	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("key", key).Msg("failed to archive insight snapshot")
		return
	}
	w.logger.Debug().Str("key", key).Msg("archived insight snapshot")
}
