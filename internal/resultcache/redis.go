package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a shared backend for multi-process deployments. Values are
// stored as JSON under "<prefix><key>" with a fixed TTL.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache. prefix defaults to "verimail:".
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration) *Redis[T] {
	if prefix == "" {
		prefix = "verimail:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("resultcache: redis get: %w", err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("resultcache: decode cached value: %w", err)
	}
	return v, true, nil
}

func (r *Redis[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("resultcache: encode value: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("resultcache: redis set: %w", err)
	}
	return nil
}
