package requirements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makermate/internal/solution"
	"makermate/internal/storage"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(storage.NewMemoryStore())
}

func TestRepository_ImportLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	repo.Import(ctx, []Requirement{
		{ID: "R1", Title: "Login", Category: "security"},
		{ID: "R2", Title: "Logout"},
	})
	merged := repo.Import(ctx, []Requirement{
		{ID: "R1", Title: "Sign in"},
		{ID: "R3", Title: "Reset password"},
	})

	require.Len(t, merged, 3)
	assert.Equal(t, []string{"R1", "R2", "R3"}, []string{merged[0].ID, merged[1].ID, merged[2].ID})
	assert.Equal(t, "Sign in", merged[0].Title)
	assert.Empty(t, merged[0].Category, "replaced records are not field-merged")
	assert.Equal(t, merged, repo.List(ctx))
}

func TestRepository_GetDelete(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	repo.Save(ctx, []Requirement{{ID: "R1", Title: "a"}, {ID: "R2", Title: "b"}})

	r, err := repo.Get(ctx, "R2")
	require.NoError(t, err)
	assert.Equal(t, "b", r.Title)

	require.NoError(t, repo.Delete(ctx, "R1"))
	assert.Len(t, repo.List(ctx), 1)

	_, err = repo.Get(ctx, "R1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "R1"), ErrNotFound)
}

func TestRepository_SaveEdit(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	repo.Save(ctx, []Requirement{{ID: "R1", Title: "a", Metadata: map[string]any{"Owner": "alice"}}})

	r, err := repo.SaveEdit(ctx, "R1", Edit{
		Category: "Methodology",
		Response: "We comply.",
		AI:       AIDrafts{Hybrid: "Apps plus Functions"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Methodology", r.Category)
	assert.Equal(t, "We comply.", r.Metadata["response"])
	assert.Equal(t, "alice", r.Metadata["Owner"])

	stored, err := repo.Get(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, AIDrafts{Hybrid: "Apps plus Functions"}, stored.Drafts())
	assert.Equal(t, "Methodology", stored.EffectiveCategory())

	r, err = repo.SaveEdit(ctx, "R1", Edit{})
	require.NoError(t, err)
	assert.Empty(t, r.Category)
	assert.Equal(t, map[string]any{"Owner": "alice"}, r.Metadata)
}

func TestRepository_SaveEditDropsEmptyMetadata(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	repo.Save(ctx, []Requirement{{ID: "R1", Title: "a"}})

	_, err := repo.SaveEdit(ctx, "R1", Edit{Response: "x"})
	require.NoError(t, err)
	r, err := repo.SaveEdit(ctx, "R1", Edit{})
	require.NoError(t, err)
	assert.Nil(t, r.Metadata)

	_, err = repo.SaveEdit(ctx, "missing", Edit{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ClearEdits(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	repo.Save(ctx, []Requirement{{ID: "R1", Title: "a", Category: "x", Metadata: map[string]any{"Owner": "alice"}}})

	r, err := repo.ClearEdits(ctx, "R1")
	require.NoError(t, err)
	assert.Empty(t, r.Category)
	assert.Nil(t, r.Metadata)
}

func TestRepository_ApplyTripleOptions(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	repo.Save(ctx, []Requirement{
		{ID: "R1", Title: "a", Metadata: map[string]any{"response": "kept"}},
		{ID: "R2", Title: "b"},
	})

	n := repo.ApplyTripleOptions(ctx, []solution.TripleItem{
		{RequirementID: "R1", Responses: solution.TripleResponses{
			PowerPlatformOnly: solution.OptionDetail{ArchitectureSummary: "pp"},
			Hybrid:            solution.OptionDetail{ArchitectureSummary: "hy"},
			AzureOnly:         solution.OptionDetail{ArchitectureSummary: "az"},
		}},
		{RequirementID: "unknown", Responses: solution.TripleResponses{
			Hybrid: solution.OptionDetail{ArchitectureSummary: "ignored"},
		}},
	})
	assert.Equal(t, 1, n)

	r, err := repo.Get(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, AIDrafts{PowerPlatformOnly: "pp", Hybrid: "hy", AzureOnly: "az"}, r.Drafts())
	assert.Equal(t, "kept", r.Metadata["response"])

	r, err = repo.Get(ctx, "R2")
	require.NoError(t, err)
	assert.Nil(t, r.Metadata)
}

func TestFilterAndPage(t *testing.T) {
	reqs := []Requirement{
		{ID: "1", Category: "Methodology"},
		{ID: "2", Metadata: map[string]any{"category": "method"}},
		{ID: "3", Category: "security"},
	}
	assert.Len(t, Filter(reqs, false), 3)
	kept := Filter(reqs, true)
	require.Len(t, kept, 1)
	assert.Equal(t, "3", kept[0].ID)

	many := make([]Requirement, 30)
	items, page, total := Page(many, 9, 0)
	assert.Equal(t, 2, page)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 5)

	items, page, total = Page(nil, 3, 10)
	assert.Empty(t, items)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, total)
}

func TestInputs(t *testing.T) {
	got := Inputs([]Requirement{{ID: "R1", Title: "t", Description: "d", Category: "c"}})
	assert.Equal(t, []solution.RequirementInput{{ID: "R1", Title: "t", Description: "d"}}, got)
}
