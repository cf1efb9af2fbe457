// Package settings resolves which provider, model and prompt each feature
// uses. Per-process bindings override the global active selection.
package settings

import (
	"context"
	"fmt"

	"makermate/internal/storage"
)

// Storage keys
const (
	KeyActiveProvider = "mm.ai.activeProvider"
	KeyActiveModel    = "mm.ai.activeModel"
	KeyBindings       = "mm.ai.bindings.v1"
	keyPromptPrefix   = "mm.ai.prompt."
	keyModelsPrefix   = "mm.ai.models."
)

// PromptKey returns the storage key of the default prompt for a pair
func PromptKey(provider ProviderID, model string) string {
	return keyPromptPrefix + string(provider) + "." + model
}

// ModelsKey returns the storage key of a provider's model list
func ModelsKey(provider ProviderID) string {
	return keyModelsPrefix + string(provider)
}

// Binding overrides the provider, model and prompt for one process
type Binding struct {
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model"`
	Prompt   string     `json:"prompt"`
	// PromptOverride is the pre-migration field; it is read but never
	// written by new code.
	PromptOverride string `json:"promptOverride,omitempty"`
}

// record is the stored form. A nil Prompt marks a record written before
// prompts were stored on bindings.
type record struct {
	Provider       ProviderID `json:"provider"`
	Model          string     `json:"model"`
	Prompt         *string    `json:"prompt,omitempty"`
	PromptOverride string     `json:"promptOverride,omitempty"`
}

func (r record) empty() bool {
	return r.Provider == "" && r.Model == "" && r.Prompt == nil && r.PromptOverride == ""
}

func (r record) binding() Binding {
	b := Binding{Provider: r.Provider, Model: r.Model, PromptOverride: r.PromptOverride}
	if r.Prompt != nil {
		b.Prompt = *r.Prompt
	}
	return b
}

// ResolvedConfig is what a process should call
type ResolvedConfig struct {
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model"`
	Prompt   string     `json:"prompt"`
}

// Resolver reads and writes AI settings through a Store. It never fails on
// storage errors; reads fall back to defaults.
type Resolver struct {
	store storage.Store
}

// NewResolver creates a resolver over store
func NewResolver(store storage.Store) *Resolver {
	return &Resolver{store: store}
}

func (r *Resolver) ActiveProvider(ctx context.Context) ProviderID {
	return ProviderID(storage.GetString(ctx, r.store, KeyActiveProvider, string(DefaultProvider)))
}

func (r *Resolver) SetActiveProvider(ctx context.Context, p ProviderID) {
	storage.SetString(ctx, r.store, KeyActiveProvider, string(p))
}

func (r *Resolver) ActiveModel(ctx context.Context) string {
	return storage.GetString(ctx, r.store, KeyActiveModel, "")
}

func (r *Resolver) SetActiveModel(ctx context.Context, model string) {
	storage.SetString(ctx, r.store, KeyActiveModel, model)
}

// Prompt returns the default prompt for a provider/model pair, or ""
func (r *Resolver) Prompt(ctx context.Context, provider ProviderID, model string) string {
	return storage.GetString(ctx, r.store, PromptKey(provider, model), "")
}

func (r *Resolver) SetPrompt(ctx context.Context, provider ProviderID, model, text string) {
	storage.SetString(ctx, r.store, PromptKey(provider, model), text)
}

// Models returns the locally known model ids for a provider
func (r *Resolver) Models(ctx context.Context, provider ProviderID) []string {
	return storage.GetItem(ctx, r.store, ModelsKey(provider), []string{})
}

func (r *Resolver) SetModels(ctx context.Context, provider ProviderID, models []string) {
	storage.SetItem(ctx, r.store, ModelsKey(provider), models)
}

func (r *Resolver) records(ctx context.Context) map[ProcessID]record {
	recs := storage.GetItem(ctx, r.store, KeyBindings, map[ProcessID]record{})
	if recs == nil {
		recs = map[ProcessID]record{}
	}
	// null entries decode to the zero record and count as unbound
	for proc, rec := range recs {
		if rec.empty() {
			delete(recs, proc)
		}
	}
	return recs
}

// Bindings returns every stored binding
func (r *Resolver) Bindings(ctx context.Context) map[ProcessID]Binding {
	recs := r.records(ctx)
	out := make(map[ProcessID]Binding, len(recs))
	for proc, rec := range recs {
		out[proc] = rec.binding()
	}
	return out
}

// Binding returns the stored binding for proc
func (r *Resolver) Binding(ctx context.Context, proc ProcessID) (Binding, bool) {
	rec, ok := r.records(ctx)[proc]
	if !ok {
		return Binding{}, false
	}
	return rec.binding(), true
}

// ResolveConfig picks the binding's prompt, then its legacy override, then
// the pair default. Without a binding the global active selection is used.
func (r *Resolver) ResolveConfig(ctx context.Context, proc ProcessID) ResolvedConfig {
	if b, ok := r.Binding(ctx, proc); ok {
		prompt := b.Prompt
		if prompt == "" {
			prompt = b.PromptOverride
		}
		if prompt == "" {
			prompt = r.Prompt(ctx, b.Provider, b.Model)
		}
		return ResolvedConfig{Provider: b.Provider, Model: b.Model, Prompt: prompt}
	}

	provider := r.ActiveProvider(ctx)
	model := r.ActiveModel(ctx)
	return ResolvedConfig{Provider: provider, Model: model, Prompt: r.Prompt(ctx, provider, model)}
}

// migrate backfills Prompt on records that lack it. Records that already
// carry a prompt, even an empty one, are left alone.
func (r *Resolver) migrate(ctx context.Context, recs map[ProcessID]record) bool {
	changed := false
	for proc, rec := range recs {
		if rec.Prompt != nil {
			continue
		}
		prompt := rec.PromptOverride
		if prompt == "" {
			prompt = r.Prompt(ctx, rec.Provider, rec.Model)
		}
		rec.Prompt = &prompt
		recs[proc] = rec
		changed = true
	}
	return changed
}

// SetBinding upserts the binding for proc, or deletes it when b is nil.
// Stored bindings are migrated first and the whole map is rewritten.
func (r *Resolver) SetBinding(ctx context.Context, proc ProcessID, b *Binding) error {
	if !proc.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProcess, proc)
	}
	if b != nil && b.Provider == "" {
		return ErrEmptyBinding
	}

	recs := r.records(ctx)
	if r.migrate(ctx, recs) {
		storage.SetItem(ctx, r.store, KeyBindings, recs)
	}

	if b == nil {
		delete(recs, proc)
	} else {
		prompt := b.Prompt
		if prompt == "" {
			prompt = r.Prompt(ctx, b.Provider, b.Model)
		}
		recs[proc] = record{
			Provider:       b.Provider,
			Model:          b.Model,
			Prompt:         &prompt,
			PromptOverride: b.PromptOverride,
		}
	}

	storage.SetItem(ctx, r.store, KeyBindings, recs)
	return nil
}
