// Package cache holds the read-through cache for backend queries.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 256
	DefaultTTL  = 30 * time.Second
)

// QueryCache caches decoded query results under invalidation keys such as
// "projects", "project:<id>" or "ofertas:mine". Safe for concurrent use.
// Every Purge starts a new generation; results loaded during an older
// generation are never stored.
type QueryCache struct {
	mu  sync.Mutex
	gen uint64
	lru *expirable.LRU[string, any]
}

// NewQueryCache creates a cache. Non-positive arguments fall back to defaults.
func NewQueryCache(size int, ttl time.Duration) *QueryCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Get returns the cached value for key.
func (c *QueryCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores value under key.
func (c *QueryCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Invalidate drops every entry whose key equals one of the prefixes or
// starts with prefix followed by ':' or '?'.
func (c *QueryCache) Invalidate(prefixes ...string) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		for _, p := range prefixes {
			if matches(key, p) {
				if c.lru.Remove(key) {
					removed++
				}
				break
			}
		}
	}
	return removed
}

// Purge drops everything and starts a new generation.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
}

// Generation returns the current generation.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// setIn stores value only if no Purge happened since gen was read.
func (c *QueryCache) setIn(gen uint64, key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.lru.Add(key, value)
	return true
}

// Len returns the number of live entries.
func (c *QueryCache) Len() int {
	return c.lru.Len()
}

func matches(key, prefix string) bool {
	if key == prefix {
		return true
	}
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	next := key[len(prefix)]
	return next == ':' || next == '?' || strings.HasSuffix(prefix, ":")
}

// Fetch returns the cached value for key when it has type T, otherwise runs
// load and caches its result. Errors are never cached, and neither is a
// result that finishes after a Purge.
func Fetch[T any](c *QueryCache, key string, load func() (T, error)) (T, error) {
	var gen uint64
	if c != nil {
		gen = c.Generation()
		if v, ok := c.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	if c != nil {
		c.setIn(gen, key, v)
	}
	return v, nil
}
