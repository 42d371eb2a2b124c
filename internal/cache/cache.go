// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package cache provides an LRU cache of query results keyed by normalized
// query text, letting the pipeline short-circuit the embed-then-search path
// for repeated questions.
package cache

import (
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ragkit-dev/ragkit/internal/store"
)

// DefaultSize bounds the cache when no size is configured.
const DefaultSize = 256

// QueryCache is a closeable LRU of search results. After Close every lookup
// misses and every add is dropped; Close is idempotent.
type QueryCache struct {
	mu     sync.RWMutex
	closed bool
	lru    *lru.Cache[string, []store.Result]
}

// New creates a cache holding up to size entries.
func New(size int) (*QueryCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[string, []store.Result](size)
	if err != nil {
		return nil, err
	}
	return &QueryCache{lru: l}, nil
}

// Key derives the cache key for a query. Case and interior whitespace are
// folded so equivalent questions share an entry.
func Key(text string, topK int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return normalized + "\x00" + strconv.Itoa(topK)
}

// Get returns the cached results for key, if any.
func (c *QueryCache) Get(key string) ([]store.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false
	}
	return c.lru.Get(key)
}

// Add stores results under key.
func (c *QueryCache) Add(key string, results []store.Result) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.lru.Add(key, results)
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0
	}
	return c.lru.Len()
}

// Closed reports whether the cache has been closed.
func (c *QueryCache) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close releases cached entries. Idempotent, never fails.
func (c *QueryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.lru.Purge()
	return nil
}
