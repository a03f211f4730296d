package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recibo/recibo/internal/config"
	"github.com/recibo/recibo/internal/logger"
)

// RedisCache is a shared cache backed by Redis; values are stored as JSON
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

var (
	redisInstance *RedisCache
	redisOnce     sync.Once
)

// InitializeRedisCache initializes the singleton redis cache
func InitializeRedisCache(cfg *config.Configuration, log *logger.Logger) {
	redisOnce.Do(func() {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisInstance = &RedisCache{client: client, log: log}
	})
}

// GetRedisCache returns the singleton redis cache
func GetRedisCache() *RedisCache {
	return redisInstance
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnw("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.log.Warnw("redis set marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.log.Warnw("redis set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warnw("redis delete failed", "key", key, "error", err)
	}
}

func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Warnw("redis delete failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warnw("redis scan failed", "prefix", prefix, "error", err)
	}
}
