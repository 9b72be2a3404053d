package tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/refinery/internal/tracker"
)

func testServer(t *testing.T, posts *int, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/records" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing Idempotency-Key header")
		}

		*posts++

		if status != http.StatusCreated {
			w.WriteHeader(status)
			return
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"key": fmt.Sprintf("REF-%d", *posts),
			"url": "https://tracker.test/REF-1",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, baseURL string, registry tracker.Registry) *tracker.REST {
	t.Helper()

	cfg := &tracker.Config{BaseURL: baseURL}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	return tracker.NewREST(cfg, registry, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func record(key string) tracker.CreateRecord {
	return tracker.CreateRecord{
		Summary:        "Add request rate limiting",
		Body:           "Limit per-client request rates on the public API.",
		Labels:         []string{"api"},
		Priority:       "high",
		IssueType:      "feature",
		IdempotencyKey: key,
	}
}

func TestCreateIdempotent(t *testing.T) {
	var posts int
	srv := testServer(t, &posts, http.StatusCreated)
	client := testClient(t, srv.URL, tracker.NewMemoryRegistry())
	ctx := context.Background()

	first, err := client.Create(ctx, record("abc123"))
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	second, err := client.Create(ctx, record("abc123"))
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	if posts != 1 {
		t.Errorf("posts = %d, want 1: duplicate key must not hit the tracker", posts)
	}
	if first.Key != second.Key {
		t.Errorf("keys differ: %s vs %s", first.Key, second.Key)
	}
}

func TestCreateDistinctKeys(t *testing.T) {
	var posts int
	srv := testServer(t, &posts, http.StatusCreated)
	client := testClient(t, srv.URL, tracker.NewMemoryRegistry())
	ctx := context.Background()

	if _, err := client.Create(ctx, record("key-one")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := client.Create(ctx, record("key-two")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if posts != 2 {
		t.Errorf("posts = %d, want 2 for distinct keys", posts)
	}
}

func TestCreateMissingKey(t *testing.T) {
	var posts int
	srv := testServer(t, &posts, http.StatusCreated)
	client := testClient(t, srv.URL, tracker.NewMemoryRegistry())

	_, err := client.Create(context.Background(), record(""))
	if !errors.Is(err, tracker.ErrMissingKey) {
		t.Errorf("error = %v, want ErrMissingKey", err)
	}
	if posts != 0 {
		t.Errorf("posts = %d, want 0", posts)
	}
}

func TestCreateRemoteFailure(t *testing.T) {
	var posts int
	srv := testServer(t, &posts, http.StatusInternalServerError)
	client := testClient(t, srv.URL, tracker.NewMemoryRegistry())
	ctx := context.Background()

	_, err := client.Create(ctx, record("abc123"))
	if !errors.Is(err, tracker.ErrRemote) {
		t.Fatalf("error = %v, want ErrRemote", err)
	}

	// The failed attempt must not reserve the key.
	registry := tracker.NewMemoryRegistry()
	client = testClient(t, srv.URL, registry)
	if _, err := client.Create(ctx, record("abc123")); !errors.Is(err, tracker.ErrRemote) {
		t.Fatalf("error = %v, want ErrRemote on retry", err)
	}
	if _, ok, _ := registry.Lookup(ctx, "abc123"); ok {
		t.Error("failed create reserved the idempotency key")
	}
}

func TestAnnotateAndUpdate(t *testing.T) {
	type call struct {
		method string
		path   string
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := testClient(t, srv.URL, tracker.NewMemoryRegistry())
	ctx := context.Background()

	if err := client.Annotate(ctx, "REF-9", "proceeded below quality target"); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if err := client.Update(ctx, "REF-9", map[string]any{"priority": "critical"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := []call{
		{http.MethodPost, "/api/records/REF-9/comments"},
		{http.MethodPatch, "/api/records/REF-9"},
	}
	for i, c := range calls {
		if i >= len(want) || c != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, c, want[i])
		}
	}

	if err := client.Annotate(ctx, "", "text"); !errors.Is(err, tracker.ErrMissingKey) {
		t.Errorf("Annotate with empty key: %v, want ErrMissingKey", err)
	}
}

func TestMemoryRegistryFirstWriterWins(t *testing.T) {
	registry := tracker.NewMemoryRegistry()
	ctx := context.Background()

	if err := registry.Resolve(ctx, "k", tracker.RecordRef{Key: "REF-1"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := registry.Resolve(ctx, "k", tracker.RecordRef{Key: "REF-2"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	ref, ok, err := registry.Lookup(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Lookup = %v, %v, %v", ref, ok, err)
	}
	if ref.Key != "REF-1" {
		t.Errorf("ref = %s, want first writer REF-1", ref.Key)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &tracker.Config{BaseURL: "https://tracker.test"}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.Project != "REF" || cfg.Timeout != "30s" {
		t.Errorf("defaults = %s/%s", cfg.Project, cfg.Timeout)
	}

	missing := &tracker.Config{}
	if err := missing.Finalize(); err == nil {
		t.Error("expected error for missing base_url")
	}
}
