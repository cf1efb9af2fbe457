package requirements

import (
	"context"
	"fmt"
	"maps"

	"makermate/internal/solution"
	"makermate/internal/storage"
)

// Edit is what the requirement editor saves. Empty fields are removed from
// the stored record.
type Edit struct {
	Category string
	Response string
	AI       AIDrafts
}

// AIDrafts are the architecture summaries kept under metadata.ai
type AIDrafts struct {
	PowerPlatformOnly string `json:"powerPlatformOnly,omitempty"`
	Hybrid            string `json:"hybrid,omitempty"`
	AzureOnly         string `json:"azureOnly,omitempty"`
}

// Drafts reads metadata.ai back
func (r Requirement) Drafts() AIDrafts {
	ai, _ := r.Metadata["ai"].(map[string]any)
	str := func(k string) string {
		s, _ := ai[k].(string)
		return s
	}
	return AIDrafts{
		PowerPlatformOnly: str("powerPlatformOnly"),
		Hybrid:            str("hybrid"),
		AzureOnly:         str("azureOnly"),
	}
}

// Repository persists requirements as one array. Every mutation rewrites
// the whole array.
type Repository struct {
	store storage.Store
}

// NewRepository creates a repository over store
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// List returns all requirements in stored order
func (r *Repository) List(ctx context.Context) []Requirement {
	return storage.GetItem(ctx, r.store, StorageKey, []Requirement{})
}

// Save replaces the stored array
func (r *Repository) Save(ctx context.Context, reqs []Requirement) {
	storage.SetItem(ctx, r.store, StorageKey, reqs)
}

// Import merges incoming into the store and returns the merged set
func (r *Repository) Import(ctx context.Context, incoming []Requirement) []Requirement {
	merged := Merge(r.List(ctx), incoming)
	r.Save(ctx, merged)
	return merged
}

// Get returns the requirement with id
func (r *Repository) Get(ctx context.Context, id string) (Requirement, error) {
	for _, req := range r.List(ctx) {
		if req.ID == id {
			return req, nil
		}
	}
	return Requirement{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the requirement with id
func (r *Repository) Delete(ctx context.Context, id string) error {
	reqs := r.List(ctx)
	out := reqs[:0]
	found := false
	for _, req := range reqs {
		if req.ID == id {
			found = true
			continue
		}
		out = append(out, req)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.Save(ctx, out)
	return nil
}

func (r *Repository) update(ctx context.Context, id string, fn func(*Requirement)) (Requirement, error) {
	reqs := r.List(ctx)
	for i := range reqs {
		if reqs[i].ID == id {
			fn(&reqs[i])
			r.Save(ctx, reqs)
			return reqs[i], nil
		}
	}
	return Requirement{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SaveEdit applies an editor save: category and response are stored under
// metadata, AI drafts under metadata.ai. Empty values delete their keys and
// an empty metadata map is dropped.
func (r *Repository) SaveEdit(ctx context.Context, id string, e Edit) (Requirement, error) {
	return r.update(ctx, id, func(req *Requirement) {
		md := maps.Clone(req.Metadata)
		if md == nil {
			md = map[string]any{}
		}

		setOrDelete(md, "response", e.Response)
		setOrDelete(md, "category", e.Category)

		ai := map[string]any{}
		setOrDelete(ai, "powerPlatformOnly", e.AI.PowerPlatformOnly)
		setOrDelete(ai, "hybrid", e.AI.Hybrid)
		setOrDelete(ai, "azureOnly", e.AI.AzureOnly)
		if len(ai) > 0 {
			md["ai"] = ai
		} else {
			delete(md, "ai")
		}

		req.Category = e.Category
		req.Metadata = md
		if len(md) == 0 {
			req.Metadata = nil
		}
	})
}

// ClearEdits drops the category and all metadata of a requirement
func (r *Repository) ClearEdits(ctx context.Context, id string) (Requirement, error) {
	return r.update(ctx, id, func(req *Requirement) {
		req.Category = ""
		req.Metadata = nil
	})
}

// ApplyTripleOptions stores the architecture summaries of generated options
// as AI drafts, keeping existing category and response. It returns the
// number of requirements updated.
func (r *Repository) ApplyTripleOptions(ctx context.Context, items []solution.TripleItem) int {
	byID := make(map[string]solution.TripleItem, len(items))
	for _, it := range items {
		byID[it.RequirementID] = it
	}

	reqs := r.List(ctx)
	updated := 0
	for i := range reqs {
		it, ok := byID[reqs[i].ID]
		if !ok {
			continue
		}
		md := maps.Clone(reqs[i].Metadata)
		if md == nil {
			md = map[string]any{}
		}
		ai := map[string]any{}
		setOrDelete(ai, "powerPlatformOnly", it.Responses.PowerPlatformOnly.ArchitectureSummary)
		setOrDelete(ai, "hybrid", it.Responses.Hybrid.ArchitectureSummary)
		setOrDelete(ai, "azureOnly", it.Responses.AzureOnly.ArchitectureSummary)
		if len(ai) == 0 {
			continue
		}
		md["ai"] = ai
		reqs[i].Metadata = md
		updated++
	}
	if updated > 0 {
		r.Save(ctx, reqs)
	}
	return updated
}

// Inputs converts requirements into option-generation inputs
func Inputs(reqs []Requirement) []solution.RequirementInput {
	out := make([]solution.RequirementInput, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, solution.RequirementInput{ID: r.ID, Title: r.Title, Description: r.Description})
	}
	return out
}

func setOrDelete(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	} else {
		delete(m, key)
	}
}
