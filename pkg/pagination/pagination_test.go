package pagination_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/JaimeStill/refinery/pkg/pagination"
	"github.com/JaimeStill/refinery/pkg/query"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := pagination.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.DefaultPageSize != 20 || cfg.MaxPageSize != 100 {
			t.Errorf("defaults = %d/%d", cfg.DefaultPageSize, cfg.MaxPageSize)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_PAGE_SIZE", "25")
		t.Setenv("TEST_MAX_PAGE", "250")

		cfg := pagination.Config{}
		err := cfg.Finalize(&pagination.ConfigEnv{
			DefaultPageSize: "TEST_PAGE_SIZE",
			MaxPageSize:     "TEST_MAX_PAGE",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if cfg.DefaultPageSize != 25 || cfg.MaxPageSize != 250 {
			t.Errorf("env overrides = %d/%d", cfg.DefaultPageSize, cfg.MaxPageSize)
		}
	})

	t.Run("default exceeds max", func(t *testing.T) {
		cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "default_page_size") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestPageRequestNormalize(t *testing.T) {
	cfg := defaultConfig()

	tests := []struct {
		name         string
		req          pagination.PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"zero values get defaults", pagination.PageRequest{}, 1, 20},
		{"negative page corrected", pagination.PageRequest{Page: -3, PageSize: 10}, 1, 10},
		{"page size clamped to max", pagination.PageRequest{Page: 2, PageSize: 400}, 2, 100},
		{"valid values preserved", pagination.PageRequest{Page: 4, PageSize: 50}, 4, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(cfg)
			if tt.req.Page != tt.wantPage || tt.req.PageSize != tt.wantPageSize {
				t.Errorf("normalized = %d/%d, want %d/%d",
					tt.req.Page, tt.req.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	cfg := defaultConfig()

	values := url.Values{
		"page":      {"2"},
		"page_size": {"15"},
		"search":    {"rate limiting"},
		"sort":      {"status,-created_at"},
	}

	req := pagination.PageRequestFromQuery(values, cfg)

	if req.Page != 2 || req.PageSize != 15 {
		t.Errorf("page = %d/%d", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "rate limiting" {
		t.Errorf("Search = %v", req.Search)
	}
	if len(req.Sort) != 2 {
		t.Fatalf("Sort length = %d, want 2", len(req.Sort))
	}
	if req.Sort[0].Field != "status" || req.Sort[0].Descending {
		t.Errorf("Sort[0] = %v", req.Sort[0])
	}
	if req.Sort[1].Field != "created_at" || !req.Sort[1].Descending {
		t.Errorf("Sort[1] = %v", req.Sort[1])
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		wantTotalPages int
	}{
		{"exact division", 60, 3},
		{"remainder", 61, 4},
		{"empty result", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"x"}, tt.total, 1, 20)
			if result.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantTotalPages)
			}
		})
	}

	t.Run("nil data becomes empty slice", func(t *testing.T) {
		result := pagination.NewPageResult[string](nil, 0, 1, 20)
		if result.Data == nil || len(result.Data) != 0 {
			t.Errorf("Data = %v", result.Data)
		}
	})
}

func TestSortFieldsUnmarshal(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var sf pagination.SortFields
		if err := json.Unmarshal([]byte(`"status,-created_at"`), &sf); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if len(sf) != 2 || sf[1] != (query.SortField{Field: "created_at", Descending: true}) {
			t.Errorf("sf = %v", sf)
		}
	})

	t.Run("array form", func(t *testing.T) {
		var sf pagination.SortFields
		input := `[{"Field":"status","Descending":false}]`
		if err := json.Unmarshal([]byte(input), &sf); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if len(sf) != 1 || sf[0].Field != "status" {
			t.Errorf("sf = %v", sf)
		}
	})
}
