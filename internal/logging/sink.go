package logging

import (
	"context"
	"time"
)

// Outcome values recorded for each AI-assisted item.
const (
	OutcomeUpstream = "upstream"
	OutcomeMock     = "mock"
)

// LogRecord is one audit entry for an AI-assisted operation. Request bodies
// are never recorded since they may carry user-supplied API keys.
type LogRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id"`
	Operation      string    `json:"operation"`
	RequirementID  string    `json:"requirement_id,omitempty"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Outcome        string    `json:"outcome"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
	ProviderMs     int64     `json:"provider_ms"`
	InputTokens    int       `json:"input_tokens,omitempty"`
	OutputTokens   int       `json:"output_tokens,omitempty"`
	CostUSD        float64   `json:"cost_usd"`
}

// Sink receives audit records.
type Sink interface {
	Enqueue(rec *LogRecord) error
	Shutdown(ctx context.Context) error
}

// NoopSink discards records.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(rec *LogRecord) error {
	return nil
}

func (s *NoopSink) Shutdown(ctx context.Context) error {
	return nil
}
