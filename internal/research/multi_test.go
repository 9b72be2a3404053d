package research_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JaimeStill/refinery/internal/research"
)

func TestRouterDispatch(t *testing.T) {
	corpus := &countingSystem{sources: sources(2)}
	history := &countingSystem{sources: sources(1)}

	router := research.NewRouter(map[string]research.System{
		research.ScopeCorpus:  corpus,
		research.ScopeHistory: history,
	})
	ctx := context.Background()

	got, err := router.Search(ctx, "rate limiting", research.ScopeHistory, 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d sources from history", len(got))
	}
	if corpus.calls != 0 || history.calls != 1 {
		t.Errorf("dispatch = corpus %d / history %d", corpus.calls, history.calls)
	}
}

func TestRouterUnknownScope(t *testing.T) {
	router := research.NewRouter(map[string]research.System{
		research.ScopeCorpus: &countingSystem{},
	})

	_, err := router.Search(context.Background(), "anything", "wiki", 5)
	if !errors.Is(err, research.ErrUnknownScope) {
		t.Errorf("error = %v, want ErrUnknownScope", err)
	}
}

func TestRouterSkipsNilConnectors(t *testing.T) {
	router := research.NewRouter(map[string]research.System{
		research.ScopeCorpus:  &countingSystem{},
		research.ScopeHistory: nil,
	})

	_, err := router.Search(context.Background(), "anything", research.ScopeHistory, 5)
	if !errors.Is(err, research.ErrUnknownScope) {
		t.Errorf("error = %v, want ErrUnknownScope for nil connector", err)
	}
}
