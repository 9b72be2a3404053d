package research

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	sources []Source
	expires time.Time
}

// Cache is a read-through cache over another System. Entries are keyed by
// (query, scope) and expire after a fixed TTL. Concurrent fetches for the
// same key may both reach the inner system; the last writer wins, which is
// harmless because results for a given key are equivalent.
type Cache struct {
	inner System
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache wraps inner with a read-through cache using the given TTL.
func NewCache(inner System, ttl time.Duration) *Cache {
	return &Cache{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Search(ctx context.Context, query string, scope string, limit int) ([]Source, error) {
	key := cacheKey(query, scope)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expires) {
		return bounded(entry.sources, limit), nil
	}

	sources, err := c.inner.Search(ctx, query, scope, limit)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{
		sources: sources,
		expires: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return bounded(sources, limit), nil
}

func cacheKey(query string, scope string) string {
	return fmt.Sprintf("%s|%s", scope, query)
}

func bounded(sources []Source, limit int) []Source {
	if limit > 0 && len(sources) > limit {
		return sources[:limit]
	}
	return sources
}
