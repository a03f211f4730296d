package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is the interface all cache backends implement
type Cache interface {
	// Get retrieves a value; found is false on a miss
	Get(ctx context.Context, key string) (value interface{}, found bool)

	// Set stores a value with the given TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)

	// Delete removes a key
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes every key sharing the prefix
	DeleteByPrefix(ctx context.Context, prefix string)
}

// UnmarshalValue attempts to convert a cached value to the given type. It
// handles both the in-memory backend (stores live objects) and the redis
// backend (stores JSON strings).
func UnmarshalValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}

	if typed, ok := value.(*T); ok {
		return typed, true
	}

	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}

	return nil, false
}
