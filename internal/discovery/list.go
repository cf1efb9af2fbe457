package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
)

// ErrUnknownProvider is returned by ListModels for unsupported providers
var ErrUnknownProvider = errors.New("unknown provider")

var chatFamilies = regexp.MustCompile(`(?i)(gpt|o1|4o|text-davinci|davinci)`)

// CuratedOpenAI is offered when the live OpenAI listing is unavailable
func CuratedOpenAI() []ListedModel {
	return []ListedModel{
		{ID: "gpt-4o", Label: "GPT-4o (General)"},
		{ID: "gpt-4o-mini", Label: "GPT-4o mini (Fast, cost-eff.)"},
		{ID: "o4-mini", Label: "o4-mini (Reasoning, fast)"},
		{ID: "gpt-4.1", Label: "GPT-4.1", Deprecated: true},
		{ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo", Deprecated: true},
	}
}

// CuratedAzureOpenAI lists placeholder deployments
func CuratedAzureOpenAI() []ListedModel {
	return []ListedModel{
		{ID: "gpt-4o-azure", Label: "Azure GPT-4o (Deployment)"},
		{ID: "gpt-4o-mini-azure", Label: "Azure GPT-4o mini (Deployment)"},
	}
}

// ListModels lists selectable models for provider. With an OpenAI key the
// live listing is filtered to chat families and sorted; any failure or an
// empty result yields the curated list.
func (d *Discoverer) ListModels(ctx context.Context, provider, apiKey string) ([]ListedModel, error) {
	switch provider {
	case "openai":
		if apiKey == "" {
			return CuratedOpenAI(), nil
		}
		models, err := d.liveOpenAI(ctx, apiKey)
		if err != nil || len(models) == 0 {
			return CuratedOpenAI(), nil
		}
		return models, nil
	case "azure-openai":
		return CuratedAzureOpenAI(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

func (d *Discoverer) liveOpenAI(ctx context.Context, apiKey string) ([]ListedModel, error) {
	var payload listPayload
	header := http.Header{"Authorization": {"Bearer " + apiKey}}
	if err := d.fetchJSON(ctx, d.cfg.OpenAIURL, header, &payload); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []ListedModel
	for _, m := range payload.Data {
		if _, ok := seen[m.ID]; ok || !chatFamilies.MatchString(m.ID) {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, ListedModel{ID: m.ID, Label: m.ID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
