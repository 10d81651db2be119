package cache

import (
	"context"
	"time"

	"github.com/billix/billix/internal/logger"
	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
)

// InMemoryCache wraps go-cache behind the Cache interface
type InMemoryCache struct {
	store  *gocache.Cache
	logger *logger.Logger
}

// Initialize provides the process-wide cache for fx
func Initialize(logger *logger.Logger) Cache {
	return NewInMemoryCache(logger)
}

func NewInMemoryCache(logger *logger.Logger) *InMemoryCache {
	return &InMemoryCache{
		store:  gocache.New(defaultExpiration, cleanupInterval),
		logger: logger,
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	c.store.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) {
	c.store.Delete(key)
}

func (c *InMemoryCache) Flush(ctx context.Context) {
	c.store.Flush()
}
