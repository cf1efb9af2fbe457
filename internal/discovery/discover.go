// Package discovery aggregates model catalogs from several public and
// key-bearing sources. Each source is fetched independently; a failing
// source is skipped or replaced by a curated list, never aborting the rest.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"makermate/internal/logging"
)

// Default upstream endpoints
const (
	DefaultOpenRouterURL  = "https://openrouter.ai/api/v1/models"
	DefaultHuggingFaceURL = "https://huggingface.co/api/models?pipeline_tag=text-generation&sort=downloads&direction=-1&limit=30"
	DefaultOpenAIURL      = "https://api.openai.com/v1/models"
	DefaultAnthropicURL   = "https://api.anthropic.com/v1/models"

	anthropicVersion = "2023-06-01"
	openRouterLimit  = 50
	maxCatalogBody   = 8 << 20
)

var (
	curatedOpenAI    = []string{"gpt-4o", "gpt-4o-mini", "o1-mini", "gpt-4-turbo"}
	curatedAnthropic = []string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022", "claude-3-opus-20240229"}
)

// Config configures the discoverer. Empty URLs use the defaults; empty keys
// disable the authenticated listing for that provider.
type Config struct {
	OpenRouterURL  string
	HuggingFaceURL string
	OpenAIURL      string
	AnthropicURL   string

	OpenAIKey    string
	AnthropicKey string

	Timeout time.Duration
}

// Discoverer fetches and normalizes model catalogs
type Discoverer struct {
	cfg    Config
	client *http.Client
}

// NewDiscoverer creates a discoverer
func NewDiscoverer(cfg Config) *Discoverer {
	if cfg.OpenRouterURL == "" {
		cfg.OpenRouterURL = DefaultOpenRouterURL
	}
	if cfg.HuggingFaceURL == "" {
		cfg.HuggingFaceURL = DefaultHuggingFaceURL
	}
	if cfg.OpenAIURL == "" {
		cfg.OpenAIURL = DefaultOpenAIURL
	}
	if cfg.AnthropicURL == "" {
		cfg.AnthropicURL = DefaultAnthropicURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Discoverer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type source struct {
	name  string
	fetch func(ctx context.Context) (ProviderCatalog, error)
}

func (d *Discoverer) sources() []source {
	return []source{
		{"openrouter", d.openRouter},
		{"huggingface", d.huggingFace},
		{"openai", d.openAI},
		{"anthropic", d.anthropic},
	}
}

// Discover returns one catalog per reachable source, in source order. When
// nothing could be produced the hardcoded fallback is returned.
func (d *Discoverer) Discover(ctx context.Context) Response {
	log := logging.Named("discovery")
	srcs := d.sources()
	results := make([]*ProviderCatalog, len(srcs))

	var g errgroup.Group
	for i, src := range srcs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Warnw("source panicked", "source", src.name, "panic", r)
				}
			}()
			catalog, fetchErr := src.fetch(ctx)
			if fetchErr != nil {
				log.Debugw("source skipped", "source", src.name, "error", fetchErr)
				return nil
			}
			results[i] = &catalog
			return nil
		})
	}
	_ = g.Wait()

	out := Response{Providers: []ProviderCatalog{}}
	for _, c := range results {
		if c != nil {
			out.Providers = append(out.Providers, *c)
		}
	}
	if len(out.Providers) == 0 || ctx.Err() != nil {
		return Fallback()
	}
	return out
}

// Fallback is the payload served when discovery fails entirely
func Fallback() Response {
	return Response{Providers: []ProviderCatalog{
		{
			ID:     "openai",
			Name:   "OpenAI (fallback)",
			Source: "fallback",
			Models: modelsFromIDs([]string{"gpt-4o", "gpt-4o-mini"}, "fallback"),
		},
		{
			ID:     "anthropic",
			Name:   "Anthropic (fallback)",
			Source: "fallback",
			Models: modelsFromIDs([]string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"}, "fallback"),
		},
	}}
}

func modelsFromIDs(ids []string, source string) []Model {
	out := make([]Model, 0, len(ids))
	for _, id := range ids {
		out = append(out, Model{ID: id, Label: id, Source: source})
	}
	return out
}

// fetchJSON GETs url and decodes it into out. Non-2xx, empty and HTML
// bodies are errors.
func (d *Discoverer) fetchJSON(ctx context.Context, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))
	if err != nil {
		return err
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Errorf("empty body")
	}
	if strings.HasPrefix(text, "<") {
		return fmt.Errorf("html body")
	}
	return json.Unmarshal([]byte(text), out)
}

func (d *Discoverer) openRouter(ctx context.Context) (ProviderCatalog, error) {
	var payload struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := d.fetchJSON(ctx, d.cfg.OpenRouterURL, nil, &payload); err != nil {
		return ProviderCatalog{}, err
	}
	if payload.Data == nil {
		return ProviderCatalog{}, fmt.Errorf("missing data array")
	}

	data := payload.Data
	if len(data) > openRouterLimit {
		data = data[:openRouterLimit]
	}
	models := make([]Model, 0, len(data))
	for _, m := range data {
		label := m.Name
		if label == "" {
			label = m.ID
		}
		models = append(models, Model{ID: m.ID, Label: label, Source: "openrouter"})
	}
	return ProviderCatalog{ID: "openrouter", Name: "OpenRouter (aggregator)", Source: "https://openrouter.ai", Models: models}, nil
}

func (d *Discoverer) huggingFace(ctx context.Context) (ProviderCatalog, error) {
	var payload []struct {
		ID      string `json:"id"`
		ModelID string `json:"modelId"`
	}
	if err := d.fetchJSON(ctx, d.cfg.HuggingFaceURL, nil, &payload); err != nil {
		return ProviderCatalog{}, err
	}

	models := make([]Model, 0, len(payload))
	for _, m := range payload {
		id := m.ID
		if id == "" {
			id = m.ModelID
		}
		if id == "" {
			continue
		}
		models = append(models, Model{ID: id, Label: id, Source: "huggingface"})
	}
	return ProviderCatalog{ID: "huggingface", Name: "Hugging Face (hub)", Source: "https://huggingface.co", Models: models}, nil
}

type listPayload struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

func (d *Discoverer) openAI(ctx context.Context) (ProviderCatalog, error) {
	curated := ProviderCatalog{ID: "openai", Name: "OpenAI (curated)", Source: "curated", Models: modelsFromIDs(curatedOpenAI, "curated")}
	if d.cfg.OpenAIKey == "" {
		return curated, nil
	}

	var payload listPayload
	header := http.Header{"Authorization": {"Bearer " + d.cfg.OpenAIKey}}
	if err := d.fetchJSON(ctx, d.cfg.OpenAIURL, header, &payload); err != nil {
		logging.Named("discovery").Debugw("openai listing failed, using curated list", "error", err)
		return curated, nil
	}

	live := make([]Model, 0, len(payload.Data))
	for _, m := range payload.Data {
		live = append(live, Model{ID: m.ID, Label: m.ID, Source: "openai"})
	}
	return ProviderCatalog{
		ID:     "openai",
		Name:   "OpenAI",
		Source: "https://api.openai.com",
		Models: dedupeModels(live, curated.Models),
	}, nil
}

func (d *Discoverer) anthropic(ctx context.Context) (ProviderCatalog, error) {
	curated := ProviderCatalog{ID: "anthropic", Name: "Anthropic (curated)", Source: "curated", Models: modelsFromIDs(curatedAnthropic, "curated")}
	if d.cfg.AnthropicKey == "" {
		return curated, nil
	}

	var payload listPayload
	header := http.Header{
		"X-Api-Key":         {d.cfg.AnthropicKey},
		"Anthropic-Version": {anthropicVersion},
	}
	if err := d.fetchJSON(ctx, d.cfg.AnthropicURL, header, &payload); err != nil {
		logging.Named("discovery").Debugw("anthropic listing failed, using curated list", "error", err)
		return curated, nil
	}

	live := make([]Model, 0, len(payload.Data))
	for _, m := range payload.Data {
		label := m.DisplayName
		if label == "" {
			label = m.ID
		}
		live = append(live, Model{ID: m.ID, Label: label, Source: "anthropic"})
	}
	return ProviderCatalog{
		ID:     "anthropic",
		Name:   "Anthropic",
		Source: "https://api.anthropic.com",
		Models: dedupeModels(live, curated.Models),
	}, nil
}

// dedupeModels concatenates lists keeping the first occurrence of each id
func dedupeModels(lists ...[]Model) []Model {
	seen := make(map[string]struct{})
	var out []Model
	for _, list := range lists {
		for _, m := range list {
			if m.ID == "" {
				continue
			}
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
