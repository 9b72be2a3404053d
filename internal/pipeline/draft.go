package pipeline

import (
	"context"
	"fmt"

	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/pkg/formatting"
)

type draftResponse struct {
	Summary            string             `json:"summary"`
	Narrative          string             `json:"narrative"`
	AcceptanceCriteria []string           `json:"acceptance_criteria"`
	Labels             []string           `json:"labels"`
	Priority           string             `json:"priority"`
	IssueType          string             `json:"issue_type"`
	BusinessValue      string             `json:"business_value"`
	Scores             map[string]float64 `json:"scores"`
	Feedback           string             `json:"feedback"`
}

// runDraft turns the raw request into a structured ticket draft: summary,
// user story narrative, initial acceptance criteria, labels, and
// classification. When regenerate is set the draft rewrites its own prior
// output in response to reviewer feedback.
func runDraft(ctx context.Context, rt *Runtime, exec *Execution, feedback string, regenerate bool) (Artifact, QualityAssessment, error) {
	sources := gatherResearch(ctx, rt, exec, StageDraft, exec.Request.Text)

	var current *Artifact
	if regenerate {
		artifact := exec.Artifact.Clone()
		current = &artifact
	}

	prompt, err := ComposePrompt(ctx, rt.Prompts, prompts.StageDraft, promptContext{
		Request:  exec.Request,
		Artifact: current,
		Research: sources,
		Feedback: feedback,
	})
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: draft: %w", ErrStageFailed, err)
	}

	raw, err := rt.Completer.Complete(ctx, prompt)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: draft: %w", ErrStageFailed, err)
	}

	parsed, err := formatting.Parse[draftResponse](raw)
	if err != nil {
		return Artifact{}, QualityAssessment{}, fmt.Errorf("%w: draft: %w", ErrStageFailed, err)
	}

	artifact := applyDraft(exec.Artifact, parsed, regenerate)
	qa := assess(parsed.Scores, draftDimensions, rt.Config.Weights(StageDraft), rt.Config.Gate(StageDraft), parsed.Feedback)
	return artifact, qa, nil
}

func applyDraft(base Artifact, resp draftResponse, regenerate bool) Artifact {
	artifact := base.Clone()

	if resp.Summary != "" {
		artifact.Summary = resp.Summary
	}
	artifact.ReviseNarrative(resp.Narrative, regenerate)

	// A regenerated draft may rewrite its own criteria, but never with a
	// shorter list than it previously produced.
	if regenerate && len(resp.AcceptanceCriteria) >= len(artifact.AcceptanceCriteria) {
		artifact.AcceptanceCriteria = nil
	}
	artifact.MergeCriteria(resp.AcceptanceCriteria)
	artifact.MergeLabels(resp.Labels)

	if p := parsePriority(resp.Priority); p != "" {
		artifact.Priority = p
	}
	if t := parseIssueType(resp.IssueType); t != "" {
		artifact.IssueType = t
	}
	if resp.BusinessValue != "" {
		artifact.BusinessValue = resp.BusinessValue
	}

	if artifact.Priority == "" {
		artifact.Priority = PriorityMedium
	}
	if artifact.IssueType == "" {
		artifact.IssueType = IssueTypeTask
	}

	return artifact
}

func parsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(s)
	default:
		return ""
	}
}

func parseIssueType(s string) IssueType {
	switch IssueType(s) {
	case IssueTypeFeature, IssueTypeBug, IssueTypeTask, IssueTypeSpike:
		return IssueType(s)
	default:
		return ""
	}
}
