package pipeline

import (
	"context"
	"fmt"

	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/pkg/formatting"
)

type qualityResponse struct {
	AcceptanceCriteria []string           `json:"acceptance_criteria"`
	Labels             []string           `json:"labels"`
	TestingNotes       string             `json:"testing_notes"`
	Scores             map[string]float64 `json:"scores"`
	Feedback           string             `json:"feedback"`
}

// runQuality reviews the ticket for testability: coverage planning, edge
// cases, and automation feasibility. It contributes acceptance criteria and
// testing guidance; its feedback drives the technical refinement loop.
func runQuality(ctx context.Context, rt *Runtime, exec *Execution, feedback string, regenerate bool) (Artifact, QualityAssessment, error) {
	sources := gatherResearch(ctx, rt, exec, StageQuality, exec.Artifact.Summary)

	artifact := exec.Artifact.Clone()
	prompt, err := ComposePrompt(ctx, rt.Prompts, prompts.StageQuality, promptContext{
		Request:  exec.Request,
		Artifact: &artifact,
		Research: sources,
		Feedback: feedback,
	})
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: quality: %w", ErrStageFailed, err)
	}

	raw, err := rt.Completer.Complete(ctx, prompt)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: quality: %w", ErrStageFailed, err)
	}

	parsed, err := formatting.Parse[qualityResponse](raw)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: quality: %w", ErrStageFailed, err)
	}

	artifact.MergeCriteria(parsed.AcceptanceCriteria)
	artifact.MergeLabels(parsed.Labels)
	if parsed.TestingNotes != "" {
		artifact.TechnicalNotes = appendSection(artifact.TechnicalNotes, "Testing", parsed.TestingNotes)
	}

	qa := assess(parsed.Scores, qualityDimensions, rt.Config.Weights(StageQuality), rt.Config.Gate(StageQuality), parsed.Feedback)
	return artifact, qa, nil
}

func appendSection(existing, header, text string) string {
	if existing == "" {
		return fmt.Sprintf("%s: %s", header, text)
	}
	return fmt.Sprintf("%s\n\n%s: %s", existing, header, text)
}
