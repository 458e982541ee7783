// Package cache holds small in-memory caches for derived catalog data.
// Everything here is rebuildable from the database; losing an entry only
// costs a query.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks cache effectiveness counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Entries int
}

// Tags caches tag-name lists keyed by an owner id (channel id or episode
// guid). Entries expire after a TTL so a stale list self-heals even if an
// invalidation is missed.
type Tags struct {
	mu     sync.RWMutex
	items  map[string]tagEntry
	ttl    time.Duration
	hits   int64
	misses int64
	sets   int64
}

type tagEntry struct {
	names  []string
	expiry time.Time
}

// NewTags creates a tag cache. A non-positive ttl falls back to 30 minutes.
func NewTags(ttl time.Duration) *Tags {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Tags{
		items: make(map[string]tagEntry),
		ttl:   ttl,
	}
}

// Get returns the cached tag list for key, or ok=false on a miss.
func (t *Tags) Get(key string) ([]string, bool) {
	t.mu.RLock()
	entry, exists := t.items[key]
	t.mu.RUnlock()

	if !exists || time.Now().After(entry.expiry) {
		atomic.AddInt64(&t.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&t.hits, 1)

	// Hand out a copy so callers cannot mutate the cached slice.
	names := make([]string, len(entry.names))
	copy(names, entry.names)
	return names, true
}

// Set stores the tag list for key.
func (t *Tags) Set(key string, names []string) {
	stored := make([]string, len(names))
	copy(stored, names)

	t.mu.Lock()
	t.items[key] = tagEntry{names: stored, expiry: time.Now().Add(t.ttl)}
	t.mu.Unlock()
	atomic.AddInt64(&t.sets, 1)
}

// Delete drops one key.
func (t *Tags) Delete(key string) {
	t.mu.Lock()
	delete(t.items, key)
	t.mu.Unlock()
}

// Clear drops everything. Called after bulk catalog writes where working
// out the affected keys is not worth it.
func (t *Tags) Clear() {
	t.mu.Lock()
	t.items = make(map[string]tagEntry)
	t.mu.Unlock()
}

// Stats returns current counters.
func (t *Tags) Stats() Stats {
	t.mu.RLock()
	entries := len(t.items)
	t.mu.RUnlock()
	return Stats{
		Hits:    atomic.LoadInt64(&t.hits),
		Misses:  atomic.LoadInt64(&t.misses),
		Sets:    atomic.LoadInt64(&t.sets),
		Entries: entries,
	}
}
