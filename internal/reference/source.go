// Package reference loads the read-only lists shown by the toolkit: the
// product roadmap, learning resources and Power Fx snippets.
package reference

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data
var embedded embed.FS

const maxSourceBytes = 8 << 20

// ErrInvalidSchema is returned when a document decodes but fails validation
var ErrInvalidSchema = errors.New("invalid schema")

// Fetcher reads a list document from an http(s) URL or a local path
type Fetcher struct {
	Client *http.Client
}

// DefaultFetcher uses a 15s timeout
func DefaultFetcher() *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: 15 * time.Second}}
}

// Read returns the raw document at location
func (f *Fetcher) Read(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		b, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", location, err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return b, nil
}

// decode parses JSON, or YAML when location ends in .yaml/.yml
func decode(location string, b []byte, v any) error {
	p := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, v)
	default:
		return json.Unmarshal(b, v)
	}
}

func loadEmbedded(name string, v any) {
	b, err := embedded.ReadFile("data/" + name)
	if err != nil {
		panic(fmt.Sprintf("reference: missing embedded %s: %v", name, err))
	}
	if err := yaml.Unmarshal(b, v); err != nil {
		panic(fmt.Sprintf("reference: bad embedded %s: %v", name, err))
	}
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
