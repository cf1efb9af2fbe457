package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makermate/internal/settings"
	"makermate/internal/storage"
)

type upstream struct {
	openRouter  http.HandlerFunc
	huggingFace http.HandlerFunc
	openAI      http.HandlerFunc
	anthropic   http.HandlerFunc
}

func serveUpstream(t *testing.T, u upstream) Config {
	t.Helper()
	mux := http.NewServeMux()
	route := func(path string, h http.HandlerFunc) {
		if h == nil {
			h = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }
		}
		mux.HandleFunc(path, h)
	}
	route("/openrouter", u.openRouter)
	route("/hf", u.huggingFace)
	route("/openai", u.openAI)
	route("/anthropic", u.anthropic)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return Config{
		OpenRouterURL:  srv.URL + "/openrouter",
		HuggingFaceURL: srv.URL + "/hf",
		OpenAIURL:      srv.URL + "/openai",
		AnthropicURL:   srv.URL + "/anthropic",
	}
}

func ids(c ProviderCatalog) []string {
	out := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		out = append(out, m.ID)
	}
	return out
}

func TestDiscover_AllSourcesHealthy(t *testing.T) {
	var orModels []string
	for i := 0; i < 60; i++ {
		orModels = append(orModels, fmt.Sprintf(`{"id":"vendor/m%02d","name":"Model %02d"}`, i, i))
	}

	cfg := serveUpstream(t, upstream{
		openRouter: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(orModels, ","))
		},
		huggingFace: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":"meta-llama/Llama-3-8B"},{"modelId":"mistralai/Mistral-7B"},{"id":""}]`))
		},
	})

	resp := NewDiscoverer(cfg).Discover(context.Background())
	require.Len(t, resp.Providers, 4)

	assert.Equal(t, "openrouter", resp.Providers[0].ID)
	assert.Len(t, resp.Providers[0].Models, 50)
	assert.Equal(t, "Model 00", resp.Providers[0].Models[0].Label)

	assert.Equal(t, "huggingface", resp.Providers[1].ID)
	assert.Equal(t, []string{"meta-llama/Llama-3-8B", "mistralai/Mistral-7B"}, ids(resp.Providers[1]))

	assert.Equal(t, "openai", resp.Providers[2].ID)
	assert.Equal(t, "curated", resp.Providers[2].Source)
	assert.Equal(t, "anthropic", resp.Providers[3].ID)
}

func TestDiscover_FailingSourcesAreSkipped(t *testing.T) {
	cfg := serveUpstream(t, upstream{
		openRouter: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<!doctype html><html></html>"))
		},
		huggingFace: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("   "))
		},
	})

	resp := NewDiscoverer(cfg).Discover(context.Background())
	require.Len(t, resp.Providers, 2)
	assert.Equal(t, "openai", resp.Providers[0].ID)
	assert.Equal(t, "anthropic", resp.Providers[1].ID)
}

func TestDiscover_KeyBearingSources(t *testing.T) {
	t.Run("live listing merged with curated", func(t *testing.T) {
		cfg := serveUpstream(t, upstream{
			openAI: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-5"}]}`))
			},
			anthropic: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
				assert.Equal(t, anthropicVersion, r.Header.Get("Anthropic-Version"))
				w.Write([]byte(`{"data":[{"id":"claude-sonnet-4","display_name":"Claude Sonnet 4"}]}`))
			},
		})
		cfg.OpenAIKey = "sk-test"
		cfg.AnthropicKey = "sk-ant"

		resp := NewDiscoverer(cfg).Discover(context.Background())
		require.Len(t, resp.Providers, 2)

		openai := resp.Providers[0]
		assert.Equal(t, []string{"gpt-4o", "gpt-5", "gpt-4o-mini", "o1-mini", "gpt-4-turbo"}, ids(openai))
		assert.Equal(t, "openai", openai.Models[0].Source, "discovered entry wins over curated duplicate")

		anthropic := resp.Providers[1]
		assert.Equal(t, "Claude Sonnet 4", anthropic.Models[0].Label)
		assert.Len(t, anthropic.Models, 4)
	})

	t.Run("unauthorized degrades to curated", func(t *testing.T) {
		cfg := serveUpstream(t, upstream{
			openAI: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			anthropic: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data": [`))
			},
		})
		cfg.OpenAIKey = "bad"
		cfg.AnthropicKey = "bad"

		resp := NewDiscoverer(cfg).Discover(context.Background())
		require.Len(t, resp.Providers, 2)
		assert.Equal(t, curatedOpenAI, ids(resp.Providers[0]))
		assert.Equal(t, curatedAnthropic, ids(resp.Providers[1]))
	})
}

func TestDiscover_CancelledContextFallsBack(t *testing.T) {
	cfg := serveUpstream(t, upstream{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := NewDiscoverer(cfg).Discover(ctx)
	assert.Equal(t, Fallback(), resp)
}

func TestListModels(t *testing.T) {
	cfg := serveUpstream(t, upstream{
		openAI: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":"whisper-1"},{"id":"gpt-4o"},{"id":"dall-e-3"},{"id":"o1-preview"},{"id":"gpt-4o"}]}`))
		},
	})
	d := NewDiscoverer(cfg)
	ctx := context.Background()

	models, err := d.ListModels(ctx, "openai", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, []ListedModel{{ID: "gpt-4o", Label: "gpt-4o"}, {ID: "o1-preview", Label: "o1-preview"}}, models)

	models, err = d.ListModels(ctx, "openai", "")
	require.NoError(t, err)
	assert.Equal(t, CuratedOpenAI(), models)

	models, err = d.ListModels(ctx, "azure-openai", "")
	require.NoError(t, err)
	assert.Equal(t, CuratedAzureOpenAI(), models)

	_, err = d.ListModels(ctx, "cohere", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestListModels_FailureUsesCurated(t *testing.T) {
	cfg := serveUpstream(t, upstream{
		openAI: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":"whisper-1"}]}`))
		},
	})
	models, err := NewDiscoverer(cfg).ListModels(context.Background(), "openai", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, CuratedOpenAI(), models, "empty filtered list falls back")
}

func TestMergeModelIDs(t *testing.T) {
	first := MergeModelIDs([]string{"gpt-4o-mini"}, []string{"gpt-4o", "o1-mini", "gpt-4o"})
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini", "o1-mini"}, first)

	// idempotent: the same discovery again changes nothing
	second := MergeModelIDs(first, []string{"gpt-4o", "o1-mini"})
	assert.Equal(t, first, second)

	// never shrinks
	third := MergeModelIDs(second, nil)
	assert.Equal(t, second, third)

	assert.Equal(t, []string{"a"}, MergeModelIDs([]string{"", "a"}, []string{""}))
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	r := settings.NewResolver(storage.NewMemoryStore())
	r.SetModels(ctx, settings.ProviderOpenAI, []string{"gpt-legacy"})
	r.SetActiveModel(ctx, "gone")

	resp := Response{Providers: []ProviderCatalog{{
		ID:     "openai",
		Models: modelsFromIDs([]string{"gpt-4o", "gpt-4o-mini"}, "curated"),
	}}}

	res := Sync(ctx, r, resp, settings.ProviderOpenAI)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini", "gpt-legacy"}, res.Models)
	assert.Equal(t, 2, res.Discovered)
	assert.False(t, res.Seeded)
	assert.Equal(t, res.Models, r.Models(ctx, settings.ProviderOpenAI))
	assert.Equal(t, "gpt-4o", r.ActiveModel(ctx))

	res = Sync(ctx, r, resp, settings.ProviderAnthropic)
	assert.True(t, res.Seeded)
	assert.Equal(t, SeedDefaults(settings.ProviderAnthropic), r.Models(ctx, settings.ProviderAnthropic))
	assert.Equal(t, "gpt-4o", r.ActiveModel(ctx), "inactive provider leaves the active model alone")
}
