package rbac

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	adminID    uuid.UUID
	paths      AllowedPaths
	insertedAt time.Time
	element    *list.Element
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// PermissionCache is an in-memory LRU cache with TTL for resolved
// allow-lists, keyed by admin ID. A zero TTL disables caching.
type PermissionCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64

	// generation advances on every invalidation. A resolution that started
	// under an older generation must not be stored.
	generation uint64
}

// NewPermissionCache creates a cache holding at most maxSize admins
func NewPermissionCache(maxSize int, ttl time.Duration) *PermissionCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &PermissionCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Enabled reports whether entries are retained at all
func (c *PermissionCache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns the cached allow-list for an admin
func (c *PermissionCache) Get(adminID uuid.UUID) (AllowedPaths, bool) {
	if !c.Enabled() {
		return AllowedPaths{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[adminID]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(adminID)
		}
		return AllowedPaths{}, false
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.paths, true
}

// Generation returns the current invalidation generation. Capture it before
// reading grants and pass it to Set.
func (c *PermissionCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Set stores an allow-list for an admin that was resolved under generation.
// It is a no-op when an invalidation happened since then.
func (c *PermissionCache) Set(adminID uuid.UUID, paths AllowedPaths, generation uint64) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}

	if entry, exists := c.entries[adminID]; exists {
		entry.paths = paths
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		adminID:    adminID,
		paths:      paths,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(adminID)
	c.entries[adminID] = entry
}

// Invalidate removes one admin's entry
func (c *PermissionCache) Invalidate(adminID uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.removeEntry(adminID)
}

// Clear removes all entries from the cache
func (c *PermissionCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns cache statistics
func (c *PermissionCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// removeEntry must be called with lock held
func (c *PermissionCache) removeEntry(adminID uuid.UUID) {
	if entry, exists := c.entries[adminID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, adminID)
	}
}

// evictLRU must be called with lock held
func (c *PermissionCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	adminID := back.Value.(uuid.UUID)
	c.lruList.Remove(back)
	delete(c.entries, adminID)
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (c *PermissionCache) CleanupExpired() int {
	if !c.Enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for adminID, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			c.removeEntry(adminID)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker periodically drops expired entries until stopCh closes
func (c *PermissionCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
