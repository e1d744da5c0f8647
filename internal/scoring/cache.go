// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

// EntryState describes the lifecycle state of a cache slot.
// A slot starts EMPTY, becomes POPULATED on store, and degrades to
// EXPIRED when its TTL lapses, its snapshot version is superseded, or a
// busting interaction invalidates it. EXPIRED entries are never served.
type EntryState int

const (
	// StateEmpty means no entry exists for the key.
	StateEmpty EntryState = iota
	// StatePopulated means a valid entry was served.
	StatePopulated
	// StateExpired means an entry existed but could not be served.
	StateExpired
)

// String returns a human-readable state name.
func (s EntryState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// cacheEntry holds a cached recommendation response.
type cacheEntry struct {
	response        *Response
	userID          int64
	generatedAt     time.Time
	expiresAt       time.Time
	snapshotVersion string
}

// Cache is the recommendation cache. Entries are keyed per user,
// strategy, and request context, carry a TTL, and are fenced on the
// snapshot version they were computed against. Interactions whose weight
// reaches the busting threshold invalidate all of a user's entries.
type Cache struct {
	cfg CacheConfig

	mu      sync.RWMutex
	entries map[string]*cacheEntry

	// byUser indexes entry keys per user for event invalidation.
	byUser map[int64]map[string]struct{}
}

// NewCache creates a recommendation cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}

	return &Cache{
		cfg:     cfg,
		entries: make(map[string]*cacheEntry),
		byUser:  make(map[int64]map[string]struct{}),
	}
}

// Key builds the cache key for a request.
// The request context is hashed order-independently.
func (c *Cache) Key(userID int64, strategy Strategy, reqContext map[string]string) string {
	return fmt.Sprintf("rec:%d:%s:%d", userID, strategy.String(), hashContext(reqContext))
}

// hashContext produces a stable hash of the context map.
func hashContext(reqContext map[string]string) uint64 {
	if len(reqContext) == 0 {
		return 0
	}

	keys := make([]string, 0, len(reqContext))
	for k := range reqContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(reqContext[k]))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// Get returns the cached response for key if it is still servable
// against the given snapshot version. The returned state reports why a
// lookup missed: StateEmpty for no entry, StateExpired for an entry that
// aged out or was fenced off.
func (c *Cache) Get(key, snapshotVersion string) (*Response, EntryState) {
	if !c.cfg.Enabled {
		return nil, StateEmpty
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, StateEmpty
	}

	if time.Now().After(entry.expiresAt) || entry.snapshotVersion != snapshotVersion {
		c.removeLocked(key, entry)
		return nil, StateExpired
	}

	return copyResponse(entry.response), StatePopulated
}

// Put stores a response under key. Storing is idempotent: concurrent
// writers for the same key overwrite each other with equivalent data.
func (c *Cache) Put(key string, userID int64, resp *Response, snapshotVersion string) {
	if !c.cfg.Enabled {
		return
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.cfg.MaxEntries {
		c.evictExpiredLocked(now)
	}
	if len(c.entries) >= c.cfg.MaxEntries {
		// Still full of live entries. Skip rather than evict hot data.
		return
	}

	c.entries[key] = &cacheEntry{
		response:        resp,
		userID:          userID,
		generatedAt:     now,
		expiresAt:       now.Add(c.cfg.TTL),
		snapshotVersion: snapshotVersion,
	}

	if c.byUser[userID] == nil {
		c.byUser[userID] = make(map[string]struct{})
	}
	c.byUser[userID][key] = struct{}{}
}

// RecordInteraction applies the cache-busting rule for a new interaction:
// entries for the user are invalidated when the interaction weight meets
// the configured threshold. A purchase always busts; a view never does.
// Returns true if entries were invalidated.
func (c *Cache) RecordInteraction(userID int64, weight float64) bool {
	if !c.cfg.Enabled {
		return false
	}
	if weight < c.cfg.BustWeightThreshold {
		return false
	}

	c.InvalidateUser(userID)
	return true
}

// InvalidateUser removes all cached entries for a user.
func (c *Cache) InvalidateUser(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.byUser[userID] {
		delete(c.entries, key)
	}
	delete(c.byUser, userID)
}

// InvalidateAll removes every cached entry, typically after a snapshot
// reload.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.byUser = make(map[int64]map[string]struct{})
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// removeLocked deletes an entry and its user index. Must hold mu.
func (c *Cache) removeLocked(key string, entry *cacheEntry) {
	delete(c.entries, key)
	if keys, ok := c.byUser[entry.userID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byUser, entry.userID)
		}
	}
}

// evictExpiredLocked removes expired entries. Must hold mu.
func (c *Cache) evictExpiredLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			c.removeLocked(key, entry)
		}
	}
}

// copyResponse creates a copy of a cached response so callers can mark
// metadata without mutating the cached value.
func copyResponse(resp *Response) *Response {
	items := make([]ScoredItem, len(resp.Items))
	copy(items, resp.Items)

	return &Response{
		Items:    items,
		Metadata: resp.Metadata,
	}
}
