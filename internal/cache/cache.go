// Package cache holds the per-run result cache and the deduplicated set of
// discovered names. Both are safe for concurrent use by task-completion
// callbacks; neither survives a reset.
package cache

import (
	"sync"

	"github.com/prefixlab/namescout/internal/types"
)

// ResultCache maps queried prefixes to their result sets. Stores are
// write-once: the first result for a prefix wins and later stores are
// ignored, which keeps re-stores idempotent and guarantees no prefix is
// queried twice within a run.
type ResultCache struct {
	mu      sync.RWMutex
	results map[string]types.ResultSet
}

// NewResultCache creates an empty result cache
func NewResultCache() *ResultCache {
	return &ResultCache{
		results: make(map[string]types.ResultSet),
	}
}

// Lookup returns the cached result set for a prefix, if present.
func (c *ResultCache) Lookup(prefix string) (types.ResultSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rs, ok := c.results[prefix]
	return rs, ok
}

// Store records a result set for a prefix. Returns false if the prefix was
// already cached (the existing entry is kept).
func (c *ResultCache) Store(prefix string, rs types.ResultSet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[prefix]; exists {
		return false
	}
	c.results[prefix] = rs
	return true
}

// Contains reports whether a prefix has a cached result.
func (c *ResultCache) Contains(prefix string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.results[prefix]
	return ok
}

// Len returns the number of cached prefixes.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// Reset clears the cache.
func (c *ResultCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]types.ResultSet)
}
