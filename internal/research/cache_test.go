package research_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/refinery/internal/research"
)

type countingSystem struct {
	calls   int
	sources []research.Source
	err     error
}

func (c *countingSystem) Search(ctx context.Context, query, scope string, limit int) ([]research.Source, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.sources, nil
}

func sources(n int) []research.Source {
	out := make([]research.Source, n)
	for i := range out {
		out[i] = research.Source{Title: "doc", Relevance: 0.5}
	}
	return out
}

func TestCacheReadThrough(t *testing.T) {
	inner := &countingSystem{sources: sources(2)}
	cache := research.NewCache(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.Search(ctx, "rate limiting", "corpus", 5)
		if err != nil {
			t.Fatalf("Search error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d sources", len(got))
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1 for repeated key", inner.calls)
	}
}

func TestCacheKeyIncludesScope(t *testing.T) {
	inner := &countingSystem{sources: sources(1)}
	cache := research.NewCache(inner, time.Minute)
	ctx := context.Background()

	if _, err := cache.Search(ctx, "rate limiting", "corpus", 5); err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if _, err := cache.Search(ctx, "rate limiting", "history", 5); err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2: same query in different scopes must not collide", inner.calls)
	}
}

func TestCacheExpiry(t *testing.T) {
	inner := &countingSystem{sources: sources(1)}
	cache := research.NewCache(inner, time.Millisecond)
	ctx := context.Background()

	if _, err := cache.Search(ctx, "retention policy", "corpus", 5); err != nil {
		t.Fatalf("Search error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := cache.Search(ctx, "retention policy", "corpus", 5); err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 after TTL expiry", inner.calls)
	}
}

func TestCacheErrorNotCached(t *testing.T) {
	inner := &countingSystem{err: errors.New("connector down")}
	cache := research.NewCache(inner, time.Minute)
	ctx := context.Background()

	if _, err := cache.Search(ctx, "audit log", "corpus", 5); err == nil {
		t.Fatal("expected error")
	}

	inner.err = nil
	inner.sources = sources(1)

	got, err := cache.Search(ctx, "audit log", "corpus", 5)
	if err != nil {
		t.Fatalf("Search error after recovery: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d sources after recovery", len(got))
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2: failures must not populate the cache", inner.calls)
	}
}

func TestCacheLimitBounds(t *testing.T) {
	inner := &countingSystem{sources: sources(10)}
	cache := research.NewCache(inner, time.Minute)
	ctx := context.Background()

	got, err := cache.Search(ctx, "deployment checklist", "corpus", 3)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d sources, want limit 3", len(got))
	}

	// A later call with a wider limit is served from the cached full set.
	got, err = cache.Search(ctx, "deployment checklist", "corpus", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("got %d sources, want full cached set", len(got))
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}
