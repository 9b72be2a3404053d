package prompts_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/refinery/internal/prompts"
)

func TestParseStage(t *testing.T) {
	for _, stage := range prompts.Stages() {
		got, err := prompts.ParseStage(string(stage))
		if err != nil {
			t.Errorf("ParseStage(%q) error: %v", stage, err)
		}
		if got != stage {
			t.Errorf("ParseStage(%q) = %q", stage, got)
		}
	}

	for _, invalid := range []string{"", "review", "DRAFT", "finalized"} {
		if _, err := prompts.ParseStage(invalid); !errors.Is(err, prompts.ErrInvalidStage) {
			t.Errorf("ParseStage(%q) error = %v, want ErrInvalidStage", invalid, err)
		}
	}
}

func TestStageUnmarshalJSON(t *testing.T) {
	var stage prompts.Stage
	if err := json.Unmarshal([]byte(`"technical"`), &stage); err != nil {
		t.Fatalf("unmarshal valid stage: %v", err)
	}
	if stage != prompts.StageTechnical {
		t.Errorf("stage = %q", stage)
	}

	if err := json.Unmarshal([]byte(`"review"`), &stage); !errors.Is(err, prompts.ErrInvalidStage) {
		t.Errorf("error = %v, want ErrInvalidStage", err)
	}
}

func TestDefaultsDefinedForAllStages(t *testing.T) {
	for _, stage := range prompts.Stages() {
		instructions, err := prompts.DefaultInstructions(stage)
		if err != nil {
			t.Errorf("DefaultInstructions(%s) error: %v", stage, err)
		}
		if strings.TrimSpace(instructions) == "" {
			t.Errorf("DefaultInstructions(%s) empty", stage)
		}

		spec, err := prompts.Spec(stage)
		if err != nil {
			t.Errorf("Spec(%s) error: %v", stage, err)
		}
		if !strings.Contains(spec, "{") {
			t.Errorf("Spec(%s) does not describe a JSON object", stage)
		}
	}
}
