package executions_test

import (
	"net/url"
	"testing"

	"github.com/JaimeStill/refinery/internal/executions"
)

func TestFiltersFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus *string
		wantReason *string
	}{
		{"empty", "", nil, nil},
		{"status only", "status=completed", ptr("completed"), nil},
		{"both", "status=escalated&reason=compliance_floor", ptr("escalated"), ptr("compliance_floor")},
		{"blank values ignored", "status=&reason=", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}

			f := executions.FiltersFromQuery(values)
			checkPtr(t, "status", f.Status, tt.wantStatus)
			checkPtr(t, "reason", f.Reason, tt.wantReason)
		})
	}
}

func ptr(s string) *string { return &s }

func checkPtr(t *testing.T, name string, got, want *string) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %q, want nil", name, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %q", name, *want)
	case want != nil && got != nil && *got != *want:
		t.Errorf("%s = %q, want %q", name, *got, *want)
	}
}
