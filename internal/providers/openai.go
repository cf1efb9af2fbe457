package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"makermate/internal/pricing"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout       = 60 * time.Second
)

// OpenAIProvider implements the Provider interface for OpenAI
type OpenAIProvider struct {
	auth    Authenticator
	client  *http.Client
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	baseURL := openAIDefaultBaseURL
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}
	return &OpenAIProvider{
		auth:    NewSimpleAPIKeyAuth(config.APIKey, "Authorization", "Bearer "),
		client:  newHTTPClient(config.Timeout),
		baseURL: baseURL,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Type returns the provider type
func (p *OpenAIProvider) Type() string {
	return "openai"
}

// Chat sends a chat completion request to OpenAI
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := postJSON(ctx, p.client, p.auth, p.baseURL+"/chat/completions", chatCompletionPayload(req, true), nil)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		parseChatCompletion(resp)
		resp.CostUSD = costOf("openai", req.Model, resp)
	}
	return resp, nil
}

// Close cleans up resources
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func chatCompletionPayload(req ChatRequest, withModel bool) map[string]any {
	payload := map[string]any{"messages": req.Messages}
	if withModel {
		payload["model"] = req.Model
	}
	if req.JSONMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	return payload
}

// postJSON sends payload and reads the whole reply. Only transport failures
// are errors; upstream status is left to the caller.
func postJSON(ctx context.Context, client *http.Client, auth Authenticator, url string, payload any, headers map[string]string) (*ChatResponse, error) {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	authCtx, err := auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := authCtx.ApplyToRequest(ctx, httpReq); err != nil {
		return nil, fmt.Errorf("failed to apply auth: %w", err)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &ChatResponse{
		StatusCode:      resp.StatusCode,
		Body:            respBody,
		ProviderLatency: time.Since(start),
	}, nil
}

// parseChatCompletion fills Content and usage from an OpenAI-shaped body
func parseChatCompletion(resp *ChatResponse) {
	var body struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return
	}
	if len(body.Choices) > 0 {
		resp.Content = body.Choices[0].Message.Content
	}
	resp.InputTokens = body.Usage.PromptTokens
	resp.OutputTokens = body.Usage.CompletionTokens
}

// costOf prices the reported usage; unknown models cost nothing
func costOf(provider, model string, resp *ChatResponse) float64 {
	rate, err := pricing.DefaultTable().Lookup(provider, model)
	if err != nil {
		return 0
	}
	return rate.Cost(resp.InputTokens, resp.OutputTokens)
}
