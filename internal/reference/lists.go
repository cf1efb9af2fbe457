package reference

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"makermate/internal/logging"
)

// Warnings shown when a list falls back to the embedded copy
const (
	ResourcesFallbackWarning = "Using embedded examples (failed to load resources)."
	SnippetsFallbackWarning  = "Using embedded examples (failed to load or validate public JSON)."
)

// Resource is a video channel or blog
type Resource struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Type    string `json:"type" yaml:"type"` // youtube | blog
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// Snippet is a copyable Power Fx example
type Snippet struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Tags        []string `json:"tags" yaml:"tags"`
	Code        string   `json:"code" yaml:"code"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Source      string   `json:"source,omitempty" yaml:"source,omitempty"`
	Tested      *bool    `json:"tested,omitempty" yaml:"tested,omitempty"`
}

// EmbeddedResources returns the built-in resource list
func EmbeddedResources() []Resource {
	var out []Resource
	loadEmbedded("resources.yaml", &out)
	return out
}

// EmbeddedSnippets returns the built-in snippet list
func EmbeddedSnippets() []Snippet {
	var out []Snippet
	loadEmbedded("snippets.yaml", &out)
	return out
}

// LoadResources reads resources from location. An empty location serves the
// embedded list; a failed read or validation serves it with a warning.
func (f *Fetcher) LoadResources(ctx context.Context, location string) ([]Resource, string) {
	if location == "" {
		return EmbeddedResources(), ""
	}
	list, err := f.readResources(ctx, location)
	if err != nil {
		logging.Warningf("reference: resources from %s: %v", location, err)
		return EmbeddedResources(), ResourcesFallbackWarning
	}
	return list, ""
}

func (f *Fetcher) readResources(ctx context.Context, location string) ([]Resource, error) {
	b, err := f.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	var list []Resource
	if err := decode(location, b, &list); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	for i, r := range list {
		if r.ID == "" || r.Title == "" || r.URL == "" || (r.Type != "youtube" && r.Type != "blog") {
			return nil, fmt.Errorf("%w: resource %d", ErrInvalidSchema, i)
		}
	}
	return list, nil
}

// LoadSnippets reads snippets from location with the same fallback rules as
// LoadResources. Every entry needs id, title, tags and code.
func (f *Fetcher) LoadSnippets(ctx context.Context, location string) ([]Snippet, string) {
	if location == "" {
		return EmbeddedSnippets(), ""
	}
	list, err := f.readSnippets(ctx, location)
	if err != nil {
		logging.Warningf("reference: snippets from %s: %v", location, err)
		return EmbeddedSnippets(), SnippetsFallbackWarning
	}
	return list, ""
}

func (f *Fetcher) readSnippets(ctx context.Context, location string) ([]Snippet, error) {
	b, err := f.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	var list []Snippet
	if err := decode(location, b, &list); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	for i, s := range list {
		if s.ID == "" || s.Title == "" || s.Tags == nil || s.Code == "" {
			return nil, fmt.Errorf("%w: snippet %d", ErrInvalidSchema, i)
		}
	}
	return list, nil
}

// SearchResources matches title, url or channel, case-insensitively
func SearchResources(list []Resource, query string) []Resource {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := []Resource{}
	for _, r := range list {
		if containsFold(r.Title, q) || containsFold(r.URL, q) || containsFold(r.Channel, q) {
			out = append(out, r)
		}
	}
	return out
}

// SearchSnippets matches title, any tag or code, case-insensitively
func SearchSnippets(list []Snippet, query string) []Snippet {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := []Snippet{}
	for _, s := range list {
		tagHit := slices.ContainsFunc(s.Tags, func(t string) bool { return containsFold(t, q) })
		if containsFold(s.Title, q) || tagHit || containsFold(s.Code, q) {
			out = append(out, s)
		}
	}
	return out
}
