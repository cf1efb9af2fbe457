package httpapi

import (
	"context"
	"fmt"

	"makermate/internal/config"
	"makermate/internal/logging"
)

// NewAuditSink returns the buffered S3 sink when enabled, otherwise a sink
// that discards records
func NewAuditSink(ctx context.Context, cfg config.LoggingSinkConfig) (logging.Sink, error) {
	if !cfg.Enabled {
		return logging.NewNoopSink(), nil
	}

	writer, err := logging.NewS3Writer(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix, cfg.PodName)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 writer: %w", err)
	}

	logging.Infof("Audit records go to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	return logging.NewBufferedSink(writer, logging.BufferedSinkConfig{
		BufferSize:    cfg.BufferSize,
		FlushSize:     cfg.FlushSize,
		FlushInterval: cfg.FlushInterval,
	}), nil
}
