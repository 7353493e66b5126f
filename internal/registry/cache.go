// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"fmt"
	"sync"
)

// Source provides the authoritative author list, typically the store.
type Source interface {
	LoadAuthors(ctx context.Context) ([]Author, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Author, error)

// LoadAuthors calls f.
func (f SourceFunc) LoadAuthors(ctx context.Context) ([]Author, error) {
	return f(ctx)
}

// Cache is a lazily populated, explicitly invalidated registry snapshot. A
// snapshot returned by Get is never mutated; Invalidate only drops the
// cache's reference so the next Get reloads.
type Cache struct {
	src Source

	mu      sync.RWMutex
	authors []Author
	loaded  bool
}

// NewCache returns an empty cache backed by src.
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Get returns the cached snapshot, loading it on first access.
func (c *Cache) Get(ctx context.Context) ([]Author, error) {
	c.mu.RLock()
	if c.loaded {
		authors := c.authors
		c.mu.RUnlock()
		return authors, nil
	}
	c.mu.RUnlock()
	return c.Load(ctx)
}

// Load reloads the snapshot from the source unconditionally.
func (c *Cache) Load(ctx context.Context) ([]Author, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	authors, err := c.src.LoadAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading author registry: %w", err)
	}
	c.authors = Dedupe(authors)
	c.loaded = true
	return c.authors, nil
}

// Invalidate forgets the snapshot. Call it between runs after the source
// changed, never while matching is in flight.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.authors = nil
	c.loaded = false
	c.mu.Unlock()
}
