package discovery

import (
	"context"
	"slices"
	"sort"

	"makermate/internal/settings"
)

// MergeModelIDs returns the sorted union of existing and discovered ids.
// Empty ids are dropped.
func MergeModelIDs(existing, discovered []string) []string {
	set := make(map[string]struct{}, len(existing)+len(discovered))
	for _, id := range existing {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	for _, id := range discovered {
		if id != "" {
			set[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SeedDefaults returns the starter model list for a provider
func SeedDefaults(provider settings.ProviderID) []string {
	switch provider {
	case settings.ProviderOpenAI:
		return []string{"gpt-4o", "gpt-4o-mini", "o4-mini", "gpt-4.1-mini"}
	case settings.ProviderAnthropic:
		return []string{"claude-3-5-sonnet-20240620", "claude-3-5-haiku-20241022", "claude-3-opus-20240229"}
	default:
		return nil
	}
}

// SyncResult reports what Sync stored
type SyncResult struct {
	Models     []string
	Discovered int
	Seeded     bool
}

// Sync merges a discovery response into the stored model list of provider.
// When the response has no catalog for provider the list is replaced by the
// seed defaults. The active model is moved to the first entry when it is
// missing from the new list and provider is the active one.
func Sync(ctx context.Context, r *settings.Resolver, resp Response, provider settings.ProviderID) SyncResult {
	var result SyncResult

	idx := slices.IndexFunc(resp.Providers, func(c ProviderCatalog) bool {
		return c.ID == string(provider)
	})
	if idx < 0 {
		result.Models = SeedDefaults(provider)
		result.Seeded = true
	} else {
		discovered := make([]string, 0, len(resp.Providers[idx].Models))
		for _, m := range resp.Providers[idx].Models {
			discovered = append(discovered, m.ID)
		}
		result.Discovered = len(discovered)
		result.Models = MergeModelIDs(r.Models(ctx, provider), discovered)
	}

	r.SetModels(ctx, provider, result.Models)

	if r.ActiveProvider(ctx) == provider {
		active := r.ActiveModel(ctx)
		if active == "" || !slices.Contains(result.Models, active) {
			next := ""
			if len(result.Models) > 0 {
				next = result.Models[0]
			}
			r.SetActiveModel(ctx, next)
		}
	}

	return result
}
