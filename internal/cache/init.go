package cache

import (
	"github.com/recibo/recibo/internal/config"
	"github.com/recibo/recibo/internal/logger"
)

// CacheType represents the type of cache to use
type CacheType string

const (
	// CacheTypeInMemory represents an in-memory cache
	CacheTypeInMemory CacheType = "inmemory"

	// CacheTypeRedis represents a Redis-backed cache
	CacheTypeRedis CacheType = "redis"
)

// Initialize initializes the cache system based on the configured type
func Initialize(cfg *config.Configuration, log *logger.Logger) Cache {
	log.Infow("initializing cache system", "type", cfg.Cache.Type)

	var c Cache
	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		InitializeRedisCache(cfg, log)
		c = GetRedisCache()
	case CacheTypeInMemory:
		fallthrough
	default:
		InitializeInMemoryCache()
		c = GetInMemoryCache()
	}

	return c
}
