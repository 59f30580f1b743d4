package cache

import (
	"context"
	"sync"
	"time"

	"nodal/application/ports"
)

var _ ports.EmbeddingCache = (*MemoryCache)(nil)

// MemoryCache is a process-local embedding cache used when no Redis is
// configured
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	vector    []float64
	expiresAt time.Time
}

// NewMemoryCache creates a cache whose entries live for ttl. Call Close to
// stop the cleanup goroutine.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]cacheItem),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.cleanupExpired(time.Minute)
	return c
}

// Get returns a copy of the cached vector
func (c *MemoryCache) Get(ctx context.Context, model, text string) ([]float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[embeddingKey(model, text)]
	if !ok || c.now().After(item.expiresAt) {
		return nil, false, nil
	}
	return append([]float64(nil), item.vector...), true, nil
}

// Set stores a copy of vector
func (c *MemoryCache) Set(ctx context.Context, model, text string, vector []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[embeddingKey(model, text)] = cacheItem{
		vector:    append([]float64(nil), vector...),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Len returns the number of entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evict()
		}
	}
}

func (c *MemoryCache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}
