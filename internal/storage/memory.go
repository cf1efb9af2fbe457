package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. Writes are announced to
// watchers in the same process.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]string
	watchers map[chan Change]struct{}
	closed   bool
	done     chan struct{}
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]string),
		watchers: make(map[chan Change]struct{}),
		done:     make(chan struct{}),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrStoreClosed
	}
	v, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.items[key] = value
	m.broadcast(Change{Key: key, Value: value})
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.items, key)
	m.broadcast(Change{Key: key, Deleted: true})
	return nil
}

// Len returns the number of stored keys
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	for ch := range m.watchers {
		close(ch)
		delete(m.watchers, ch)
	}
	return nil
}

// Watch delivers every subsequent write until ctx is done or the store is
// closed. Slow consumers miss changes rather than blocking writers.
func (m *MemoryStore) Watch(ctx context.Context) (<-chan Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	ch := make(chan Change, 16)
	m.watchers[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-m.done:
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[ch]; ok {
			delete(m.watchers, ch)
			close(ch)
		}
	}()

	return ch, nil
}

// broadcast must be called with m.mu held.
func (m *MemoryStore) broadcast(c Change) {
	for ch := range m.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}
