package requirements

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	existing := []Requirement{
		{ID: "R1", Title: "Login", Category: "Security", Metadata: map[string]any{"owner": "ops"}},
		{ID: "R2", Title: "Export"},
	}
	incoming := []Requirement{
		{ID: "R3", Title: "Audit"},
		{ID: "R1", Title: "Sign in"},
	}

	want := []Requirement{
		{ID: "R1", Title: "Sign in"},
		{ID: "R2", Title: "Export"},
		{ID: "R3", Title: "Audit"},
	}
	if diff := cmp.Diff(want, Merge(existing, incoming)); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DuplicateIncomingLastWins(t *testing.T) {
	got := Merge(nil, []Requirement{
		{ID: "R1", Title: "first"},
		{ID: "R1", Title: "second"},
	})

	want := []Requirement{{ID: "R1", Title: "second"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	reqs := []Requirement{{ID: "A", Title: "a"}, {ID: "B", Description: "b"}}

	once := Merge(reqs, reqs)
	twice := Merge(once, reqs)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("re-merging changed the set (-once +twice):\n%s", diff)
	}
	if len(once) != 2 {
		t.Errorf("expected 2 requirements, got %d", len(once))
	}
}
