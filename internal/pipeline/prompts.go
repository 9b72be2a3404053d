package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/internal/research"
)

// promptContext carries the variable sections appended to a stage prompt.
type promptContext struct {
	Request  Request
	Artifact *Artifact
	Research []research.Source
	Feedback string
}

// ComposePrompt builds a stage prompt from tunable instructions, the
// immutable output-contract spec, the original request, the current artifact
// state, any research context, and refinement feedback when present.
func ComposePrompt(
	ctx context.Context,
	ps prompts.System,
	stage prompts.Stage,
	pc promptContext,
) (string, error) {
	instructions, err := ps.Instructions(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := ps.Spec(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	sb.WriteString("\n\nOriginal request:\n\n")
	sb.WriteString(pc.Request.Text)

	if len(pc.Request.Context) > 0 {
		sb.WriteString("\n\nCaller context:\n")
		for k, v := range pc.Request.Context {
			fmt.Fprintf(&sb, "- %s: %s\n", k, v)
		}
	}

	if pc.Artifact != nil {
		artifactJSON, err := json.MarshalIndent(pc.Artifact, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serialize artifact: %w", err)
		}
		sb.WriteString("\n\nCurrent ticket state:\n\n")
		sb.Write(artifactJSON)
	}

	if len(pc.Research) > 0 {
		sb.WriteString("\n\nResearch context:\n")
		for _, src := range pc.Research {
			fmt.Fprintf(&sb, "\n[%s] (relevance %.2f)\n%s\n", src.Title, src.Relevance, src.Content)
		}
	}

	if pc.Feedback != "" {
		sb.WriteString("\n\nReviewer feedback to address:\n\n")
		sb.WriteString(pc.Feedback)
	}

	return sb.String(), nil
}
