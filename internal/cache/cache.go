package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a byte cache with per-key TTL and prefix invalidation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
	Size(ctx context.Context) (int, error)
}

// Cache provides thread-safe in-memory caching with TTL
type Cache struct {
	items *gocache.Cache
	ttl   time.Duration
}

var _ Store = (*Cache)(nil)

// NewCache creates a new cache with the specified default TTL.
// Expired items are swept every cleanupInterval.
func NewCache(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		items: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Get retrieves an item from the cache
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := c.items.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	return data, ok, nil
}

// Set stores an item in the cache. A zero ttl uses the cache default.
func (c *Cache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, data, ttl)
	return nil
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.items.Delete(key)
}

// DeletePrefix removes every item whose key starts with prefix
func (c *Cache) DeletePrefix(_ context.Context, prefix string) error {
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
	return nil
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.items.Flush()
}

// Size returns the number of unexpired items in the cache
func (c *Cache) Size(_ context.Context) (int, error) {
	return len(c.items.Items()), nil
}

// TTL returns the default expiration
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
