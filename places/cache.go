// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"fmt"
	"sync"
	"time"

	"github.com/vireak/prasat/spatial"
	"github.com/vireak/prasat/utils"
)

// SearchCache is a read-through cache for provider search results, keyed by
// the full query parameters. Caching is a caller policy: the adapter never
// caches on its own, the owner constructs the cache with an explicit TTL.
type SearchCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	places    []Place
	expiresAt time.Time
}

// NewSearchCache creates a cache whose entries expire after ttl.
func NewSearchCache(ttl time.Duration) *SearchCache {
	return &SearchCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Key builds a cache key from the search parameters.
func Key(query string, near *spatial.Coordinate, radiusKm float64, limit int) string {
	lat, lng := 0.0, 0.0
	if near != nil {
		lat, lng = near.Lat, near.Lng
	}

	return fmt.Sprintf("%s|%.6f|%.6f|%.1f|%d", utils.LowerASCIIFolding(query), lat, lng, radiusKm, limit)
}

// Get returns the cached result for key, or false if missing or expired.
func (c *SearchCache) Get(key string) ([]Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)

		return nil, false
	}

	return entry.places, true
}

// Put stores places under key with the cache's TTL.
func (c *SearchCache) Put(key string, result []Place) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		places:    result,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len returns the number of live entries, expired ones included until read.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
