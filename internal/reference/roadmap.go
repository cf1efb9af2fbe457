package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"makermate/internal/logging"
	"makermate/internal/storage"
)

// Storage keys of the roadmap cache and the notify window preference
const (
	RoadmapCacheKey   = "mm.roadmap.cache.v1"
	RoadmapCacheAtKey = "mm.roadmap.cacheAt"
	NotifyWindowKey   = "mm.notifyWindowMonths"
)

const (
	DefaultRoadmapTTL      = 6 * time.Hour
	DefaultRefreshInterval = 30 * time.Minute

	RoadmapFallbackWarning = "Using embedded examples (failed to load roadmap)."
)

// RoadmapItem is one planned or shipped feature
type RoadmapItem struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Area        string `json:"area" yaml:"area"`
	Status      string `json:"status" yaml:"status"`
	Due         string `json:"due" yaml:"due"` // ISO date
	Link        string `json:"link,omitempty" yaml:"link,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DueTime parses Due as RFC 3339 or a plain date
func (it RoadmapItem) DueTime() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, it.Due); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// URL returns Link, or a roadmap search for the title and area
func (it RoadmapItem) URL() string {
	if strings.TrimSpace(it.Link) != "" {
		return it.Link
	}
	return "https://roadmap.microsoft.com/?search=" + url.QueryEscape(it.Title+" "+it.Area)
}

// RoadmapSamples are served when neither the source nor the cache is usable
func RoadmapSamples(now time.Time) []RoadmapItem {
	return []RoadmapItem{
		{
			ID: "rm1", Title: "Power Fx improvements", Area: "Power Apps", Status: "In development",
			Due: now.UTC().Format(time.RFC3339), Link: "https://roadmap.microsoft.com",
			Description: "Enhancements to Power Fx functions, performance, and editor experience.",
		},
		{
			ID: "rm2", Title: "Dataverse performance", Area: "Dataverse", Status: "Planned",
			Due:         now.AddDate(0, 1, 0).UTC().Format(time.RFC3339),
			Description: "Query optimisations and improved concurrency for high-throughput apps.",
		},
	}
}

// RoadmapSource fetches the current roadmap
type RoadmapSource func(ctx context.Context) ([]RoadmapItem, error)

// FetchRoadmap reads a JSON or YAML roadmap document from location
func (f *Fetcher) FetchRoadmap(location string) RoadmapSource {
	return func(ctx context.Context) ([]RoadmapItem, error) {
		b, err := f.Read(ctx, location)
		if err != nil {
			return nil, err
		}
		var items []RoadmapItem
		if err := decode(location, b, &items); err != nil {
			return nil, fmt.Errorf("failed to decode roadmap: %w", err)
		}
		return items, nil
	}
}

// RoadmapSourceFor fetches from location, or serves the samples when no
// location is configured
func RoadmapSourceFor(location string) RoadmapSource {
	if strings.TrimSpace(location) == "" {
		return func(context.Context) ([]RoadmapItem, error) {
			return RoadmapSamples(time.Now()), nil
		}
	}
	return DefaultFetcher().FetchRoadmap(location)
}

// RoadmapCache serves the roadmap from the store while fresh and refreshes
// it from the source. Payloads cached by other hosts sharing the store are
// picked up by Run.
type RoadmapCache struct {
	store    storage.Store
	source   RoadmapSource
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger

	mu      sync.RWMutex
	items   []RoadmapItem
	warning string
}

// NewRoadmapCache creates a cache with the default TTL and refresh interval
func NewRoadmapCache(store storage.Store, source RoadmapSource) *RoadmapCache {
	return &RoadmapCache{
		store:    store,
		source:   source,
		ttl:      DefaultRoadmapTTL,
		interval: DefaultRefreshInterval,
		now:      time.Now,
		log:      logging.Named("roadmap"),
	}
}

// SetRefreshInterval changes the Run period; call before Run
func (c *RoadmapCache) SetRefreshInterval(d time.Duration) { c.interval = d }

// Items returns the last loaded roadmap and its warning, if any
func (c *RoadmapCache) Items() ([]RoadmapItem, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items, c.warning
}

// Load serves the cached roadmap when it is younger than the TTL and
// refreshes otherwise.
func (c *RoadmapCache) Load(ctx context.Context) ([]RoadmapItem, string) {
	cached, ok := c.cached(ctx)
	if ok {
		c.apply(cached, "")
		if c.now().Sub(c.cachedAt(ctx)) <= c.ttl {
			return c.Items()
		}
	}
	c.Refresh(ctx)
	return c.Items()
}

// Refresh fetches from the source and caches the result. On failure the
// cache is kept; with no cache the embedded samples are served with a
// warning.
func (c *RoadmapCache) Refresh(ctx context.Context) {
	items, err := c.source(ctx)
	if err == nil {
		storage.SetItem(ctx, c.store, RoadmapCacheKey, items)
		storage.SetString(ctx, c.store, RoadmapCacheAtKey, strconv.FormatInt(c.now().UnixMilli(), 10))
		c.apply(items, "")
		return
	}

	c.log.Warnw("roadmap refresh failed", "error", err)
	if cached, ok := c.cached(ctx); ok {
		c.apply(cached, "")
		return
	}
	c.apply(RoadmapSamples(c.now()), RoadmapFallbackWarning)
}

// Run refreshes on every interval and applies cache writes from other
// hosts until ctx is done.
func (c *RoadmapCache) Run(ctx context.Context) error {
	var changes <-chan storage.Change
	if w, ok := c.store.(storage.Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			return fmt.Errorf("failed to watch store: %w", err)
		}
		changes = ch
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Refresh(ctx)
		case ch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if ch.Key != RoadmapCacheKey || ch.Deleted {
				continue
			}
			var items []RoadmapItem
			if err := json.Unmarshal([]byte(ch.Value), &items); err != nil {
				c.log.Debugw("ignoring undecodable roadmap payload", "error", err)
				continue
			}
			c.apply(items, "")
		}
	}
}

func (c *RoadmapCache) cached(ctx context.Context) ([]RoadmapItem, bool) {
	items := storage.GetItem[[]RoadmapItem](ctx, c.store, RoadmapCacheKey, nil)
	return items, items != nil
}

func (c *RoadmapCache) cachedAt(ctx context.Context) time.Time {
	ms, err := strconv.ParseInt(storage.GetString(ctx, c.store, RoadmapCacheAtKey, "0"), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (c *RoadmapCache) apply(items []RoadmapItem, warning string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.warning = warning
}

// NotifyWindow returns the stored notify window in months; invalid or
// negative values read as 1
func NotifyWindow(ctx context.Context, store storage.Store) int {
	n, err := strconv.Atoi(storage.GetString(ctx, store, NotifyWindowKey, "1"))
	if err != nil || n < 0 {
		return 1
	}
	return n
}

// SetNotifyWindow stores the notify window in months
func SetNotifyWindow(ctx context.Context, store storage.Store, months int) {
	storage.SetString(ctx, store, NotifyWindowKey, strconv.Itoa(months))
}

// AnnotatedItem carries the due flags computed for a given day
type AnnotatedItem struct {
	RoadmapItem
	DueThisOrPrev bool `json:"dueThisOrPrev"`
	DueSoon       bool `json:"dueSoon"`
}

// monthsBetween counts calendar month boundaries from a to b
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// Annotate flags items due this month or within the previous notifyMonths
// months (DueThisOrPrev) and items due within the next notifyMonths months
// (DueSoon). Items with an unparsable date get neither flag.
func Annotate(items []RoadmapItem, now time.Time, notifyMonths int) []AnnotatedItem {
	out := make([]AnnotatedItem, 0, len(items))
	for _, it := range items {
		a := AnnotatedItem{RoadmapItem: it}
		if due, ok := it.DueTime(); ok {
			delta := monthsBetween(now, due.In(now.Location()))
			a.DueThisOrPrev = delta <= 0 && delta >= -notifyMonths
			a.DueSoon = delta > 0 && delta <= notifyMonths
		}
		out = append(out, a)
	}
	return out
}

// FilterRoadmap keeps items in area (all when empty) whose title, area or
// status contains query
func FilterRoadmap(items []RoadmapItem, query, area string) []RoadmapItem {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []RoadmapItem{}
	for _, it := range items {
		if area != "" && it.Area != area {
			continue
		}
		if q != "" && !containsFold(it.Title, q) && !containsFold(it.Area, q) && !containsFold(it.Status, q) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Areas lists distinct areas in first-seen order
func Areas(items []RoadmapItem) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, it := range items {
		if !seen[it.Area] {
			seen[it.Area] = true
			out = append(out, it.Area)
		}
	}
	return out
}
