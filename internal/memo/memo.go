// Package memo caches expensive calls keyed by a hash of their inputs.
package memo

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Cache is a bounded LRU of computed values. Failed computations are not
// stored, so they run again on the next call.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	hits   int
	misses int
}

// New creates a cache holding at most size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = 16
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Key hashes the JSON encoding of parts into a stable cache key.
func Key(parts ...any) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			fmt.Fprintf(h, "%#v\n", p)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Do returns the cached value for key, or runs fn and caches its result.
// Calls for the same cache are serialized so fn runs at most once per key.
func (c *Cache) Do(key string, fn func() (any, error)) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.lru.Get(key); ok {
		c.hits++
		return v, true, nil
	}
	c.misses++
	v, err := fn()
	if err != nil {
		return nil, false, err
	}
	c.lru.Add(key, v)
	return v, false, nil
}

// Stats reports hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every entry.
func (c *Cache) Purge() { c.lru.Purge() }
