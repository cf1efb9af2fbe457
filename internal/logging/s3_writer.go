package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// BatchWriter persists a batch of records and returns where they landed.
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []*LogRecord) (string, error)
}

// S3Writer handles writing batches of audit records to S3
type S3Writer struct {
	client   *s3.Client
	bucket   string
	prefix   string
	instance string
	logger   *zap.SugaredLogger
}

// NewS3Writer creates a new S3 writer
func NewS3Writer(ctx context.Context, bucket, region, prefix, instance string) (*S3Writer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Writer{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		prefix:   prefix,
		instance: instance,
		logger:   Named("s3-writer"),
	}, nil
}

// ObjectKey builds the key for a batch written at t.
// Format: audit/2025/11/30/makermate-0-20251130-143022-123456789.jsonl
func ObjectKey(prefix, instance string, t time.Time) string {
	return fmt.Sprintf("%s%04d/%02d/%02d/%s-%s-%d.jsonl",
		prefix,
		t.Year(),
		t.Month(),
		t.Day(),
		instance,
		t.Format("20060102-150405"),
		t.Nanosecond(),
	)
}

// EncodeJSONLines renders records one JSON object per line. Records that fail
// to encode are skipped.
func EncodeJSONLines(records []*LogRecord) ([]byte, int) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	written := 0
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			continue
		}
		written++
	}
	return buf.Bytes(), written
}

// WriteBatch writes a batch of records to S3 as a JSON Lines file
func (w *S3Writer) WriteBatch(ctx context.Context, records []*LogRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	key := ObjectKey(w.prefix, w.instance, time.Now())
	body, count := EncodeJSONLines(records)

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Infow("Wrote batch to S3", "key", key, "count", count, "bytes", len(body))
	return key, nil
}
