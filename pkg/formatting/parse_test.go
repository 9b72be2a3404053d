package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/refinery/pkg/formatting"
)

type reply struct {
	Summary string             `json:"summary"`
	Scores  map[string]float64 `json:"scores"`
}

func TestParse(t *testing.T) {
	t.Run("direct JSON", func(t *testing.T) {
		got, err := formatting.Parse[reply](`{"summary":"Add rate limiting","scores":{"testability":0.8}}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Summary != "Add rate limiting" || got.Scores["testability"] != 0.8 {
			t.Errorf("Parse = %+v", got)
		}
	})

	t.Run("direct JSON with whitespace", func(t *testing.T) {
		got, err := formatting.Parse[reply]("  \n{\"summary\":\"padded\"}\n  ")
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Summary != "padded" {
			t.Errorf("Summary = %q, want padded", got.Summary)
		}
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		input := "```json\n{\"summary\":\"fenced\"}\n```"
		got, err := formatting.Parse[reply](input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Summary != "fenced" {
			t.Errorf("Summary = %q, want fenced", got.Summary)
		}
	})

	t.Run("markdown fenced without language tag", func(t *testing.T) {
		input := "```\n{\"summary\":\"bare\"}\n```"
		got, err := formatting.Parse[reply](input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Summary != "bare" {
			t.Errorf("Summary = %q, want bare", got.Summary)
		}
	})

	t.Run("markdown fenced with surrounding prose", func(t *testing.T) {
		input := "Here is the refined draft:\n```json\n{\"summary\":\"wrapped\"}\n```\nLet me know if it needs changes."
		got, err := formatting.Parse[reply](input)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Summary != "wrapped" {
			t.Errorf("Summary = %q, want wrapped", got.Summary)
		}
	})

	t.Run("prose without JSON returns ErrParseFailed", func(t *testing.T) {
		_, err := formatting.Parse[reply]("I could not produce a structured answer.")
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("error = %v, want ErrParseFailed", err)
		}
	})

	t.Run("empty string returns ErrParseFailed", func(t *testing.T) {
		_, err := formatting.Parse[reply]("")
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("error = %v, want ErrParseFailed", err)
		}
	})

	t.Run("broken JSON inside fence returns ErrParseFailed", func(t *testing.T) {
		_, err := formatting.Parse[reply]("```json\n{\"summary\":\n```")
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("error = %v, want ErrParseFailed", err)
		}
	})

	t.Run("parses into map type", func(t *testing.T) {
		got, err := formatting.Parse[map[string]any](`{"status":"escalated"}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got["status"] != "escalated" {
			t.Errorf("got[status] = %v", got["status"])
		}
	})
}
