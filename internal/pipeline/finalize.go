package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/refinery/internal/tracker"
)

// FinalizeNode formats the vetted artifact into a tracker record and writes
// it through the sink, retrying with backoff up to the configured bound. The
// idempotency key derived from the artifact's immutable fields guards every
// attempt against double submission, so a retry after a partial failure can
// never create a duplicate record.
func FinalizeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		exec, err := extractExecution(s)
		if err != nil {
			return s, fmt.Errorf("finalize: %w", err)
		}

		finalizeGate(ctx, rt, exec)

		rt.Logger.InfoContext(
			ctx, "finalize complete",
			"execution_id", exec.ID,
			"status", exec.Status,
			"record_ref", exec.RecordRef,
		)
		return s, nil
	})
}

func finalizeGate(ctx context.Context, rt *Runtime, exec *Execution) {
	if !exec.Artifact.Ready(rt.Config.MinCriteria) {
		exec.Resolve(StatusRejected, ReasonQualityGate)
		return
	}

	key := exec.Artifact.IdempotencyKey()
	exec.IdempotencyKey = key

	record := buildRecord(exec.Artifact, key)

	ref, err := createWithRetry(ctx, rt, record)
	if err != nil {
		rt.Logger.ErrorContext(
			ctx, "record creation failed",
			"execution_id", exec.ID,
			"idempotency_key", key,
			"error", err,
		)
		exec.Resolve(StatusFailed, ReasonCreationError)
		return
	}

	exec.RecordRef = &RecordRef{Key: ref.Key, URL: ref.URL}

	if note := degradedNote(exec); note != "" {
		if err := rt.Tracker.Annotate(ctx, ref.Key, note); err != nil {
			rt.Logger.WarnContext(
				ctx, "record annotation failed",
				"execution_id", exec.ID,
				"record_key", ref.Key,
				"error", err,
			)
		}
	}

	exec.Resolve(StatusCompleted, "")
}

// degradedNote summarizes stages that proceeded below their quality target
// after exhausting their refinement budget, so reviewers of the created
// record can see which assessments to double-check.
func degradedNote(exec *Execution) string {
	var degraded []string
	for _, sr := range exec.Stages {
		if sr.Degraded {
			degraded = append(degraded, fmt.Sprintf(
				"%s (composite %.2f)", sr.Stage, sr.Assessment.Composite,
			))
		}
	}
	if len(degraded) == 0 {
		return ""
	}
	return "Refinement proceeded below the quality target for: " +
		strings.Join(degraded, ", ") + "."
}

func createWithRetry(ctx context.Context, rt *Runtime, record tracker.CreateRecord) (*tracker.RecordRef, error) {
	backoff := rt.Config.SinkBackoffDuration()

	var lastErr error
	for attempt := 1; attempt <= rt.Config.SinkRetries; attempt++ {
		ref, err := rt.Tracker.Create(ctx, record)
		if err == nil {
			return ref, nil
		}
		lastErr = err

		rt.Logger.WarnContext(
			ctx, "sink create attempt failed",
			"attempt", attempt,
			"idempotency_key", record.IdempotencyKey,
			"error", err,
		)

		if attempt == rt.Config.SinkRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("%w: %w", ErrCreationFailed, lastErr)
}

func buildRecord(a Artifact, key string) tracker.CreateRecord {
	var sb strings.Builder
	sb.WriteString(a.Narrative)

	sb.WriteString("\n\n## Acceptance Criteria\n")
	for _, c := range a.AcceptanceCriteria {
		fmt.Fprintf(&sb, "- %s\n", c)
	}

	if a.BusinessValue != "" {
		sb.WriteString("\n## Business Value\n")
		sb.WriteString(a.BusinessValue)
		sb.WriteString("\n")
	}
	if a.TechnicalNotes != "" {
		sb.WriteString("\n## Technical Notes\n")
		sb.WriteString(a.TechnicalNotes)
		sb.WriteString("\n")
	}
	if a.ComplianceNotes != "" {
		sb.WriteString("\n## Compliance Notes\n")
		sb.WriteString(a.ComplianceNotes)
		sb.WriteString("\n")
	}

	return tracker.CreateRecord{
		Summary:        a.Summary,
		Body:           sb.String(),
		Labels:         a.Labels,
		Priority:       string(a.Priority),
		IssueType:      string(a.IssueType),
		IdempotencyKey: key,
	}
}
