package pipeline_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/refinery/internal/pipeline"
)

func TestMergeCriteria(t *testing.T) {
	a := pipeline.Artifact{
		AcceptanceCriteria: []string{"returns 429 when limit exceeded"},
	}

	a.MergeCriteria([]string{
		"returns 429 when limit exceeded",
		"  limit resets after window  ",
		"",
		"headers include retry-after",
	})

	want := []string{
		"returns 429 when limit exceeded",
		"limit resets after window",
		"headers include retry-after",
	}

	if diff := cmp.Diff(want, a.AcceptanceCriteria); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeLabels(t *testing.T) {
	a := pipeline.Artifact{Labels: []string{"api"}}

	a.MergeLabels([]string{"API", "Rate-Limiting", "", "api"})

	want := []string{"api", "rate-limiting"}
	if diff := cmp.Diff(want, a.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestReviseNarrative(t *testing.T) {
	t.Run("longer revision replaces", func(t *testing.T) {
		a := pipeline.Artifact{Narrative: "short"}
		a.ReviseNarrative("a much longer narrative", false)
		if a.Narrative != "a much longer narrative" {
			t.Errorf("narrative = %q", a.Narrative)
		}
	})

	t.Run("shorter revision ignored", func(t *testing.T) {
		a := pipeline.Artifact{Narrative: "the established longer narrative"}
		a.ReviseNarrative("terse", false)
		if a.Narrative != "the established longer narrative" {
			t.Errorf("narrative = %q", a.Narrative)
		}
	})

	t.Run("regenerate bypasses length guard", func(t *testing.T) {
		a := pipeline.Artifact{Narrative: "the established longer narrative"}
		a.ReviseNarrative("rewritten", true)
		if a.Narrative != "rewritten" {
			t.Errorf("narrative = %q", a.Narrative)
		}
	})

	t.Run("empty revision ignored", func(t *testing.T) {
		a := pipeline.Artifact{Narrative: "kept"}
		a.ReviseNarrative("   ", true)
		if a.Narrative != "kept" {
			t.Errorf("narrative = %q", a.Narrative)
		}
	})
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		artifact pipeline.Artifact
		want     bool
	}{
		{
			"complete",
			pipeline.Artifact{
				Summary:            "s",
				Narrative:          "n",
				AcceptanceCriteria: []string{"a", "b", "c"},
			},
			true,
		},
		{
			"missing summary",
			pipeline.Artifact{
				Narrative:          "n",
				AcceptanceCriteria: []string{"a", "b", "c"},
			},
			false,
		},
		{
			"too few criteria",
			pipeline.Artifact{
				Summary:            "s",
				Narrative:          "n",
				AcceptanceCriteria: []string{"a", "b"},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.artifact.Ready(3); got != tt.want {
				t.Errorf("Ready = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdempotencyKey(t *testing.T) {
	base := pipeline.Artifact{
		Summary:            "Add rate limiting",
		Narrative:          "As an operator I want request limits",
		AcceptanceCriteria: []string{"a", "b", "c"},
		Priority:           pipeline.PriorityHigh,
		IssueType:          pipeline.IssueTypeFeature,
	}

	t.Run("stable across calls", func(t *testing.T) {
		if base.IdempotencyKey() != base.IdempotencyKey() {
			t.Error("key not deterministic")
		}
	})

	t.Run("ignores mutable fields", func(t *testing.T) {
		annotated := base.Clone()
		annotated.Labels = []string{"api"}
		annotated.TechnicalNotes = "use a token bucket"
		annotated.ComplianceNotes = "no PII involved"

		if base.IdempotencyKey() != annotated.IdempotencyKey() {
			t.Error("key changed when only mutable fields differ")
		}
	})

	t.Run("changes with immutable fields", func(t *testing.T) {
		revised := base.Clone()
		revised.Summary = "Add request throttling"

		if base.IdempotencyKey() == revised.IdempotencyKey() {
			t.Error("key identical after summary change")
		}
	})
}

func TestClone(t *testing.T) {
	a := pipeline.Artifact{
		AcceptanceCriteria: []string{"a"},
		Labels:             []string{"x"},
	}

	c := a.Clone()
	c.MergeCriteria([]string{"b"})
	c.MergeLabels([]string{"y"})

	if len(a.AcceptanceCriteria) != 1 || len(a.Labels) != 1 {
		t.Errorf("clone mutation leaked into original: %+v", a)
	}
}
