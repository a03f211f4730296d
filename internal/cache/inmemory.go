package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
)

// InMemoryCache is a process-local cache backed by go-cache
type InMemoryCache struct {
	store *gocache.Cache
}

var (
	inMemoryInstance *InMemoryCache
	inMemoryOnce     sync.Once
)

// InitializeInMemoryCache initializes the singleton in-memory cache
func InitializeInMemoryCache() {
	inMemoryOnce.Do(func() {
		inMemoryInstance = &InMemoryCache{
			store: gocache.New(defaultExpiration, cleanupInterval),
		}
	})
}

// GetInMemoryCache returns the singleton in-memory cache
func GetInMemoryCache() *InMemoryCache {
	InitializeInMemoryCache()
	return inMemoryInstance
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultExpiration
	}
	c.store.Set(key, value, ttl)
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) {
	c.store.Delete(key)
}

func (c *InMemoryCache) DeleteByPrefix(ctx context.Context, prefix string) {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
}
