// Package resultcache abstracts the full-result cache so deployments can
// swap the in-process LRU for a shared Redis instance.
package resultcache

import (
	"context"

	"github.com/optimode/verimail/internal/ttlcache"
)

// Cache stores final validation results keyed by the orchestrator's
// suffix-inclusive cache key.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T) error
}

// Memory is the default in-process backend over the LRU+TTL cache.
type Memory[T any] struct {
	c *ttlcache.Cache[T]
}

// NewMemory wraps an LRU+TTL cache as a Cache.
func NewMemory[T any](c *ttlcache.Cache[T]) *Memory[T] {
	return &Memory[T]{c: c}
}

func (m *Memory[T]) Get(_ context.Context, key string) (T, bool, error) {
	v, ok := m.c.Get(key)
	return v, ok, nil
}

func (m *Memory[T]) Set(_ context.Context, key string, value T) error {
	m.c.Set(key, value)
	return nil
}

// Stats exposes the underlying cache counters.
func (m *Memory[T]) Stats() ttlcache.Stats {
	return m.c.Stats()
}
