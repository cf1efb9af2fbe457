package storage

import (
	"context"
	"encoding/json"
	"errors"

	"makermate/internal/logging"
)

// Store is a string key-value persistence medium. Values written through the
// typed helpers are JSON documents.
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Change describes a write observed by a Watcher.
type Change struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Watcher is implemented by stores that can announce writes made by other
// hosts sharing the same medium. The channel closes when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// GetItem reads and decodes key. It never fails: a missing key, a read error
// or a document that does not decode into T all yield fallback.
func GetItem[T any](ctx context.Context, s Store, key string, fallback T) T {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Debugf("storage: read %s: %v", key, err)
		}
		return fallback
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logging.Debugf("storage: decode %s: %v", key, err)
		return fallback
	}
	return out
}

// SetItem encodes and writes value. Failures are logged and absorbed.
func SetItem[T any](ctx context.Context, s Store, key string, value T) {
	b, err := json.Marshal(value)
	if err != nil {
		logging.Debugf("storage: encode %s: %v", key, err)
		return
	}
	if err := s.Set(ctx, key, string(b)); err != nil {
		logging.Debugf("storage: write %s: %v", key, err)
	}
}

// RemoveItem deletes key. Failures are logged and absorbed.
func RemoveItem(ctx context.Context, s Store, key string) {
	if err := s.Remove(ctx, key); err != nil {
		logging.Debugf("storage: remove %s: %v", key, err)
	}
}

// GetString reads a raw (non-JSON) value, returning fallback when it is
// missing, unreadable or empty.
func GetString(ctx context.Context, s Store, key, fallback string) string {
	raw, err := s.Get(ctx, key)
	if err != nil || raw == "" {
		return fallback
	}
	return raw
}

// SetString writes a raw value, absorbing failures.
func SetString(ctx context.Context, s Store, key, value string) {
	if err := s.Set(ctx, key, value); err != nil {
		logging.Debugf("storage: write %s: %v", key, err)
	}
}
