package pipeline

import (
	"context"
	"fmt"

	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/pkg/formatting"
)

type complianceResponse struct {
	ComplianceNotes string             `json:"compliance_notes"`
	Labels          []string           `json:"labels"`
	Scores          map[string]float64 `json:"scores"`
	Feedback        string             `json:"feedback"`
}

// runCompliance checks the ticket against regulatory and policy constraints.
// Compliance is the only stage whose notes field it alone may populate, and
// the only stage that escalates rather than rejects: failures here require
// human sign-off.
func runCompliance(ctx context.Context, rt *Runtime, exec *Execution, feedback string, _ bool) (Artifact, QualityAssessment, error) {
	sources := gatherResearch(ctx, rt, exec, StageCompliance, exec.Artifact.Summary)

	artifact := exec.Artifact.Clone()
	prompt, err := ComposePrompt(ctx, rt.Prompts, prompts.StageCompliance, promptContext{
		Request:  exec.Request,
		Artifact: &artifact,
		Research: sources,
		Feedback: feedback,
	})
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: compliance: %w", ErrStageFailed, err)
	}

	raw, err := rt.Completer.Complete(ctx, prompt)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: compliance: %w", ErrStageFailed, err)
	}

	parsed, err := formatting.Parse[complianceResponse](raw)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: compliance: %w", ErrStageFailed, err)
	}

	if parsed.ComplianceNotes != "" {
		artifact.ComplianceNotes = parsed.ComplianceNotes
	}
	artifact.MergeLabels(parsed.Labels)

	qa := assess(parsed.Scores, complianceDimensions, rt.Config.Weights(StageCompliance), rt.Config.Gate(StageCompliance), parsed.Feedback)
	return artifact, qa, nil
}
