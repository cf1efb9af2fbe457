package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

func fakeUpstream(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Path = r.URL.Path
		got.Query = r.URL.RawQuery
		got.Header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestOpenAIProvider_Chat(t *testing.T) {
	srv, got := fakeUpstream(t, http.StatusOK, `{
		"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}],
		"usage":{"prompt_tokens":1000,"completion_tokens":2000}
	}`)

	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, 1000, resp.InputTokens)
	assert.Equal(t, 2000, resp.OutputTokens)
	assert.InDelta(t, 0.00135, resp.CostUSD, 1e-9)

	assert.Equal(t, "/chat/completions", got.Path)
	assert.Equal(t, "Bearer sk-test", got.Header.Get("Authorization"))
	assert.Equal(t, "gpt-4o-mini", got.Body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got.Body["response_format"])
}

func TestOpenAIProvider_NonSuccessIsNotAnError(t *testing.T) {
	srv, _ := fakeUpstream(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "sk-bad", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Content)
	assert.Contains(t, string(resp.Body), "bad key")
}

func TestAzureOpenAIProvider_Chat(t *testing.T) {
	srv, got := fakeUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`)
	p, err := NewAzureOpenAIProvider(ProviderConfig{APIKey: "az-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{Model: "gpt4o-prod", JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)

	assert.Equal(t, "/openai/deployments/gpt4o-prod/chat/completions", got.Path)
	assert.Equal(t, "api-version=2024-06-01", got.Query)
	assert.Equal(t, "az-key", got.Header.Get("api-key"))
	assert.Empty(t, got.Header.Get("Authorization"))
	_, hasModel := got.Body["model"]
	assert.False(t, hasModel, "deployment is addressed by path")
}

func TestAzureOpenAIProvider_RequiresEndpoint(t *testing.T) {
	_, err := NewAzureOpenAIProvider(ProviderConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestAnthropicProvider_Chat(t *testing.T) {
	srv, got := fakeUpstream(t, http.StatusOK, `{
		"content":[{"type":"text","text":"{\"a\":"},{"type":"text","text":"1}"}],
		"usage":{"input_tokens":10,"output_tokens":20}
	}`)
	p, err := NewAnthropicProvider(ProviderConfig{APIKey: "ak", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []Message{{Role: "system", Content: "be terse"}, {Role: "user", Content: "q"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Content)
	assert.Equal(t, 10, resp.InputTokens)

	assert.Equal(t, "/messages", got.Path)
	assert.Equal(t, "ak", got.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", got.Header.Get("anthropic-version"))
	assert.Equal(t, "be terse", got.Body["system"])
	assert.EqualValues(t, 4096, got.Body["max_tokens"])
	msgs, ok := got.Body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 1)
}

func TestProviderFactory(t *testing.T) {
	f := NewProviderFactory()
	assert.Equal(t, []string{"anthropic", "azure-openai", "openai"}, f.SupportedTypes())

	p, err := f.CreateProvider(ProviderConfig{Type: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Type())

	_, err = f.CreateProvider(ProviderConfig{Type: "vertexai", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = f.CreateProvider(ProviderConfig{Type: "anthropic"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSimpleAPIKeyAuth_EmptyKey(t *testing.T) {
	_, err := NewSimpleAPIKeyAuth("", "", "").Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
