package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const azureDefaultAPIVersion = "2024-06-01"

// AzureOpenAIProvider calls a deployment on an Azure OpenAI resource. The
// request model is the deployment name.
type AzureOpenAIProvider struct {
	auth       Authenticator
	client     *http.Client
	endpoint   string
	apiVersion string
}

// NewAzureOpenAIProvider requires the resource endpoint in BaseURL
func NewAzureOpenAIProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("azure-openai: %w", ErrMissingAPIKey)
	}
	if config.BaseURL == "" {
		return nil, errors.New("azure-openai: endpoint is required")
	}
	version := config.APIVersion
	if version == "" {
		version = azureDefaultAPIVersion
	}
	return &AzureOpenAIProvider{
		auth:       NewSimpleAPIKeyAuth(config.APIKey, "api-key", ""),
		client:     newHTTPClient(config.Timeout),
		endpoint:   strings.TrimRight(config.BaseURL, "/"),
		apiVersion: version,
	}, nil
}

// Type returns the provider type
func (p *AzureOpenAIProvider) Type() string {
	return "azure-openai"
}

// Chat sends a chat completion request to the deployment named by req.Model
func (p *AzureOpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, url.PathEscape(req.Model), url.QueryEscape(p.apiVersion))

	resp, err := postJSON(ctx, p.client, p.auth, u, chatCompletionPayload(req, false), nil)
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
func (p *AzureOpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
