package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	anthropicDefaultVersion = "2023-06-01"
	anthropicMaxTokens      = 4096
)

// AnthropicProvider implements the Provider interface for the Messages API
type AnthropicProvider struct {
	auth    Authenticator
	client  *http.Client
	baseURL string
	version string
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	baseURL := anthropicDefaultBaseURL
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}
	version := config.APIVersion
	if version == "" {
		version = anthropicDefaultVersion
	}
	return &AnthropicProvider{
		auth:    NewSimpleAPIKeyAuth(config.APIKey, "x-api-key", ""),
		client:  newHTTPClient(config.Timeout),
		baseURL: baseURL,
		version: version,
	}, nil
}

// Type returns the provider type
func (p *AnthropicProvider) Type() string {
	return "anthropic"
}

// Chat sends a Messages request. System turns are lifted into the top-level
// system field. JSONMode has no wire equivalent and relies on the prompt.
func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var system []string
	messages := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, m)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	payload := map[string]any{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	if len(system) > 0 {
		payload["system"] = strings.Join(system, "\n\n")
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}

	resp, err := postJSON(ctx, p.client, p.auth, p.baseURL+"/messages", payload,
		map[string]string{"anthropic-version": p.version})
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		parseMessages(resp)
		resp.CostUSD = costOf("anthropic", req.Model, resp)
	}
	return resp, nil
}

// Close cleans up resources
func (p *AnthropicProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func parseMessages(resp *ChatResponse) {
	var body struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return
	}
	var sb strings.Builder
	for _, c := range body.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	resp.Content = sb.String()
	resp.InputTokens = body.Usage.InputTokens
	resp.OutputTokens = body.Usage.OutputTokens
}
