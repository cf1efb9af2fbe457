package estimating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"makermate/internal/logging"
	"makermate/internal/storage"
)

// StorageKey holds the whole estimating state as one document
const StorageKey = "mm.estimating.v1"

// ErrItemNotFound is returned when no plan item has the given id
var ErrItemNotFound = errors.New("plan item not found")

// LicensingDataset is a single slot replaced wholesale on every upload or fetch
type LicensingDataset struct {
	VersionTag string          `json:"versionTag,omitempty"`
	SourceURL  string          `json:"sourceUrl,omitempty"`
	FetchedAt  string          `json:"fetchedAt,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// State is the persisted document
type State struct {
	PlanningItems []PlanItem        `json:"planningItems"`
	Licensing     *LicensingDataset `json:"licensing"`
}

func (s State) clone() State {
	out := State{PlanningItems: slices.Clone(s.PlanningItems)}
	if s.Licensing != nil {
		l := *s.Licensing
		out.Licensing = &l
	}
	return out
}

// Store is the evented estimating state. Every change is persisted and
// announced to subscribers.
type Store struct {
	store storage.Store

	mu        sync.Mutex
	state     State
	syncing   bool
	own       map[string]int // documents written here and not yet echoed back
	listeners map[int]func(State)
	nextID    int
}

// NewStore loads the state from store. When nothing is stored the
// worksheet starts from DefaultPlanItems.
func NewStore(ctx context.Context, store storage.Store) *Store {
	s := &Store{
		store:     store,
		own:       map[string]int{},
		listeners: map[int]func(State){},
	}
	s.state = storage.GetItem(ctx, store, StorageKey, State{PlanningItems: DefaultPlanItems()})
	if s.state.PlanningItems == nil {
		s.state.PlanningItems = []PlanItem{}
	}
	return s
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// SetPlanning replaces the worksheet
func (s *Store) SetPlanning(ctx context.Context, items []PlanItem) {
	s.apply(ctx, func(st *State) bool {
		st.PlanningItems = append([]PlanItem{}, items...)
		return true
	})
}

// SetLicensing replaces the licensing slot; nil clears it
func (s *Store) SetLicensing(ctx context.Context, ds *LicensingDataset) {
	s.apply(ctx, func(st *State) bool {
		st.Licensing = nil
		if ds != nil {
			l := *ds
			st.Licensing = &l
		}
		return true
	})
}

// AddItem appends item, generating a custom id when it has none
func (s *Store) AddItem(ctx context.Context, item PlanItem) PlanItem {
	if item.ID == "" {
		item.ID = "custom-" + uuid.NewString()
	}
	if item.Category == "" {
		item.Category = CategoryOther
	}
	if !item.Size.Valid() {
		item.Size = SizeM
	}
	s.apply(ctx, func(st *State) bool {
		st.PlanningItems = append(st.PlanningItems, item)
		return true
	})
	return item
}

// UpdateItem replaces the item with the same id
func (s *Store) UpdateItem(ctx context.Context, item PlanItem) error {
	found := s.apply(ctx, func(st *State) bool {
		i := slices.IndexFunc(st.PlanningItems, func(p PlanItem) bool { return p.ID == item.ID })
		if i < 0 {
			return false
		}
		st.PlanningItems[i] = item
		return true
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrItemNotFound, item.ID)
	}
	return nil
}

// RemoveItem deletes the item with id
func (s *Store) RemoveItem(ctx context.Context, id string) error {
	found := s.apply(ctx, func(st *State) bool {
		before := len(st.PlanningItems)
		st.PlanningItems = slices.DeleteFunc(st.PlanningItems, func(p PlanItem) bool { return p.ID == id })
		return len(st.PlanningItems) != before
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return nil
}

// apply persists and announces the mutated state. Nothing happens when
// mutate reports no change.
func (s *Store) apply(ctx context.Context, mutate func(*State) bool) bool {
	s.mu.Lock()
	next := s.state.clone()
	if !mutate(&next) {
		s.mu.Unlock()
		return false
	}
	s.state = next
	b, err := json.Marshal(next)
	if err == nil && s.syncing {
		s.own[string(b)]++
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if err != nil {
		logging.Debugf("estimating: encode: %v", err)
	} else if err := s.store.Set(ctx, StorageKey, string(b)); err != nil {
		logging.Debugf("estimating: persist: %v", err)
	}
	notify(listeners, next)
	return true
}

// Sync follows writes made by other hosts sharing the store until ctx is
// done. It returns immediately when the store cannot announce changes.
func (s *Store) Sync(ctx context.Context) error {
	w, ok := s.store.(storage.Watcher)
	if !ok {
		return nil
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch store: %w", err)
	}

	s.mu.Lock()
	s.syncing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.syncing = false
		clear(s.own)
		s.mu.Unlock()
	}()

	for c := range changes {
		if c.Key != StorageKey || c.Deleted || c.Value == "" {
			continue
		}
		s.applyExternal(c.Value)
	}
	return nil
}

func (s *Store) applyExternal(raw string) {
	var next State
	if err := json.Unmarshal([]byte(raw), &next); err != nil {
		logging.Debugf("estimating: ignoring undecodable state: %v", err)
		return
	}

	s.mu.Lock()
	if n := s.own[raw]; n > 0 {
		if n == 1 {
			delete(s.own, raw)
		} else {
			s.own[raw] = n - 1
		}
		s.mu.Unlock()
		return
	}
	if next.PlanningItems == nil {
		next.PlanningItems = []PlanItem{}
	}
	s.state = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, next.clone())
}

// snapshotListeners must be called with s.mu held.
func (s *Store) snapshotListeners() []func(State) {
	out := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st.clone())
	}
}
