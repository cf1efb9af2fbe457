// Package requirements imports tabular requirement lists, maps their columns
// onto a fixed schema and keeps the result in a local store keyed by id.
package requirements

import (
	"strings"
)

// StorageKey holds the flat requirement array
const StorageKey = "mm.sa.requirements.v1"

// Requirement is a single solution requirement
type Requirement struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Category           string         `json:"category,omitempty"`
	Priority           string         `json:"priority,omitempty"`
	Source             string         `json:"source,omitempty"`
	AcceptanceCriteria string         `json:"acceptanceCriteria,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// EffectiveCategory prefers the category field over metadata.category
func (r Requirement) EffectiveCategory() string {
	if r.Category != "" {
		return r.Category
	}
	if s, ok := r.Metadata["category"].(string); ok {
		return s
	}
	return ""
}

// Merge overlays incoming onto existing by id. A shared id replaces the
// whole existing record in place; new ids are appended in incoming order.
func Merge(existing, incoming []Requirement) []Requirement {
	index := make(map[string]int, len(existing)+len(incoming))
	out := make([]Requirement, 0, len(existing)+len(incoming))

	add := func(r Requirement) {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			return
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range existing {
		add(r)
	}
	for _, r := range incoming {
		add(r)
	}
	return out
}

// Filter drops methodology requirements when hideMethodology is set
func Filter(reqs []Requirement, hideMethodology bool) []Requirement {
	if !hideMethodology {
		return reqs
	}
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		cat := strings.ToLower(r.EffectiveCategory())
		if cat == "methodology" || cat == "method" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Page returns one page of reqs. page is clamped to [1, totalPages] and a
// non-positive size defaults to 25.
func Page(reqs []Requirement, page, size int) (items []Requirement, clamped, totalPages int) {
	if size <= 0 {
		size = 25
	}
	totalPages = max(1, (len(reqs)+size-1)/size)
	clamped = min(max(page, 1), totalPages)

	start := (clamped - 1) * size
	end := min(start+size, len(reqs))
	return reqs[start:end], clamped, totalPages
}
