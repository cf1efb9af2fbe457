package providers

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMissingAPIKey is returned when a provider is created without credentials
	ErrMissingAPIKey = errors.New("api key is required")

	// ErrUnsupportedType is returned by the factory for unknown provider types
	ErrUnsupportedType = errors.New("unsupported provider type")
)

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a normalized internal request to a provider.
type ChatRequest struct {
	Model       string
	Messages    []Message
	JSONMode    bool // ask for a JSON object response where supported
	Temperature *float64
	MaxTokens   int
}

// ChatResponse is a normalized provider response. Non-2xx upstream replies
// are returned with StatusCode and Body set and no error.
type ChatResponse struct {
	StatusCode      int
	Body            []byte
	Content         string
	ProviderLatency time.Duration
	CostUSD         float64
	InputTokens     int
	OutputTokens    int
}

// OK reports a 2xx upstream status
func (r *ChatResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Provider is implemented by each upstream chat-completion API.
type Provider interface {
	// Type returns the provider type (openai, azure-openai, anthropic)
	Type() string

	// Chat sends a single non-streaming chat completion request
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// Authenticator prepares authentication for a request
type Authenticator interface {
	Authenticate(ctx context.Context) (AuthContext, error)
}

// AuthContext applies authentication to an HTTP request
type AuthContext interface {
	ApplyToRequest(ctx context.Context, req any) error
}

// ProviderConfig holds configuration for creating a provider instance
type ProviderConfig struct {
	Type       string
	APIKey     string
	BaseURL    string        // overrides the public endpoint; required for azure-openai
	APIVersion string        // azure-openai api-version, anthropic-version header
	Timeout    time.Duration // zero uses the provider default
}
