package solution

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"makermate/internal/storage"
)

// Storage keys of the solution architecture workspace. Requirements live in
// the requirements package.
const (
	OptionsKey = "mm.sa.options.v1"
	HLDKey     = "mm.sa.hld.v1"
	ERDKey     = "mm.sa.erd.v1"
	CatalogKey = "mm.sa.catalog.v1"
)

// Template sources
const (
	TemplateFromCatalog = "catalog"
	TemplateFromUpload  = "uploaded"
)

// ArmTemplate is an entry of the ARM template catalog
type ArmTemplate struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source"`
	TemplateURL string   `json:"templateUrl,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// Workspace persists the drafted artifacts of a solution next to its
// requirements. Like the other stores it falls back to empty values on
// storage errors.
type Workspace struct {
	store storage.Store
	now   func() time.Time
}

// NewWorkspace creates a workspace over store
func NewWorkspace(store storage.Store) *Workspace {
	return &Workspace{store: store, now: time.Now}
}

// Options returns the stored option pairs in requirement order of saving
func (w *Workspace) Options(ctx context.Context) []OptionsItem {
	return storage.GetItem(ctx, w.store, OptionsKey, []OptionsItem{})
}

// SaveOptions upserts items by requirement id. Existing entries keep their
// position; new ones are appended.
func (w *Workspace) SaveOptions(ctx context.Context, items []OptionsItem) []OptionsItem {
	stored := w.Options(ctx)
	for _, it := range items {
		i := slices.IndexFunc(stored, func(s OptionsItem) bool { return s.RequirementID == it.RequirementID })
		if i >= 0 {
			stored[i] = it
			continue
		}
		stored = append(stored, it)
	}
	storage.SetItem(ctx, w.store, OptionsKey, stored)
	return stored
}

// HLD returns the stored high-level design, if any
func (w *Workspace) HLD(ctx context.Context) (HLDDraft, bool) {
	d := storage.GetItem[*HLDDraft](ctx, w.store, HLDKey, nil)
	if d == nil {
		return HLDDraft{}, false
	}
	return *d, true
}

// SaveHLD replaces the stored high-level design
func (w *Workspace) SaveHLD(ctx context.Context, d HLDDraft) {
	storage.SetItem(ctx, w.store, HLDKey, d)
}

// ERD returns the stored entity model, if any
func (w *Workspace) ERD(ctx context.Context) (ERDDraft, bool) {
	d := storage.GetItem[*ERDDraft](ctx, w.store, ERDKey, nil)
	if d == nil {
		return ERDDraft{}, false
	}
	return *d, true
}

// SaveERD replaces the stored entity model
func (w *Workspace) SaveERD(ctx context.Context, d ERDDraft) {
	storage.SetItem(ctx, w.store, ERDKey, d)
}

// Catalog returns the ARM template catalog
func (w *Workspace) Catalog(ctx context.Context) []ArmTemplate {
	return storage.GetItem(ctx, w.store, CatalogKey, []ArmTemplate{})
}

// AddTemplate stores t, generating an id when it has none. A template with
// an existing id replaces it.
func (w *Workspace) AddTemplate(ctx context.Context, t ArmTemplate) ArmTemplate {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Source == "" {
		t.Source = TemplateFromCatalog
	}
	t.UpdatedAt = w.now().UTC().Format(time.RFC3339)

	catalog := w.Catalog(ctx)
	if i := slices.IndexFunc(catalog, func(c ArmTemplate) bool { return c.ID == t.ID }); i >= 0 {
		catalog[i] = t
	} else {
		catalog = append(catalog, t)
	}
	storage.SetItem(ctx, w.store, CatalogKey, catalog)
	return t
}

// RemoveTemplate deletes the template with id
func (w *Workspace) RemoveTemplate(ctx context.Context, id string) error {
	catalog := w.Catalog(ctx)
	i := slices.IndexFunc(catalog, func(c ArmTemplate) bool { return c.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	storage.SetItem(ctx, w.store, CatalogKey, slices.Delete(catalog, i, i+1))
	return nil
}
