package pipeline

import (
	"context"
	"fmt"

	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/pkg/formatting"
)

type technicalResponse struct {
	TechnicalNotes     string             `json:"technical_notes"`
	Narrative          string             `json:"narrative"`
	AcceptanceCriteria []string           `json:"acceptance_criteria"`
	Labels             []string           `json:"labels"`
	Scores             map[string]float64 `json:"scores"`
	Feedback           string             `json:"feedback"`
}

// runTechnical reviews the draft for technical accuracy, complexity, and
// architectural fit. It extends the artifact with implementation notes and
// additional criteria; its feedback drives the draft refinement loop.
func runTechnical(ctx context.Context, rt *Runtime, exec *Execution, feedback string, regenerate bool) (Artifact, QualityAssessment, error) {
	sources := gatherResearch(ctx, rt, exec, StageTechnical, exec.Artifact.Summary)

	artifact := exec.Artifact.Clone()
	prompt, err := ComposePrompt(ctx, rt.Prompts, prompts.StageTechnical, promptContext{
		Request:  exec.Request,
		Artifact: &artifact,
		Research: sources,
		Feedback: feedback,
	})
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: technical: %w", ErrStageFailed, err)
	}

	raw, err := rt.Completer.Complete(ctx, prompt)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: technical: %w", ErrStageFailed, err)
	}

	parsed, err := formatting.Parse[technicalResponse](raw)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: technical: %w", ErrStageFailed, err)
	}

	if parsed.TechnicalNotes != "" {
		artifact.TechnicalNotes = parsed.TechnicalNotes
	}
	artifact.ReviseNarrative(parsed.Narrative, regenerate)
	artifact.MergeCriteria(parsed.AcceptanceCriteria)
	artifact.MergeLabels(parsed.Labels)

	qa := assess(parsed.Scores, technicalDimensions, rt.Config.Weights(StageTechnical), rt.Config.Gate(StageTechnical), parsed.Feedback)
	return artifact, qa, nil
}
