package pipeline

import (
	"context"
	"fmt"
	"strings"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// Execute runs the refinement pipeline for a single request. It builds the
// stage graph (draft → technical → quality → compliance → finalize, with
// terminal outcomes routed to resolve), executes it, and returns the
// completed execution. Expected business outcomes — validation rejection,
// quality-gate rejection, compliance escalation, creation failure — are
// reported through the execution status, never as errors; a non-nil error
// means the graph itself could not run.
func Execute(ctx context.Context, rt *Runtime, req Request) (*Execution, error) {
	exec := NewExecution(req)

	if strings.TrimSpace(req.Text) == "" {
		exec.Resolve(StatusRejected, ReasonValidation)
		return exec, nil
	}

	graph, err := buildGraph(rt)
	if err != nil {
		exec.Resolve(StatusFailed, ReasonStageError)
		return exec, fmt.Errorf("build graph: %w", err)
	}

	initial := state.New(nil).Set(KeyExecution, exec)

	if _, err := graph.Execute(ctx, initial); err != nil {
		exec.Resolve(StatusFailed, ReasonStageError)
		return exec, fmt.Errorf("execute graph: %w", err)
	}

	return exec, nil
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("refinery-pipeline")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := map[string]state.StateNode{
		"draft":      DraftNode(rt),
		"technical":  TechnicalNode(rt),
		"quality":    QualityNode(rt),
		"compliance": ComplianceNode(rt),
		"finalize":   FinalizeNode(rt),
		"resolve":    ResolveNode(rt),
	}

	for name, node := range nodes {
		if err := graph.AddNode(name, node); err != nil {
			return nil, err
		}
	}

	// Each gate either advances or resolves the execution to a terminal
	// status; the edge conditions route accordingly.
	sequence := []string{"draft", "technical", "quality", "compliance", "finalize"}
	for i := 0; i < len(sequence)-1; i++ {
		if err := graph.AddEdge(sequence[i], sequence[i+1], advancing); err != nil {
			return nil, err
		}
		if err := graph.AddEdge(sequence[i], "resolve", state.Not(advancing)); err != nil {
			return nil, err
		}
	}

	if err := graph.AddEdge("finalize", "resolve", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("draft"); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint("resolve"); err != nil {
		return nil, err
	}

	return graph, nil
}

func advancing(s state.State) bool {
	exec, err := extractExecution(s)
	if err != nil {
		return false
	}
	return !exec.Status.Terminal()
}

func extractExecution(s state.State) (*Execution, error) {
	val, ok := s.Get(KeyExecution)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyExecution)
	}

	exec, ok := val.(*Execution)
	if !ok {
		return nil, fmt.Errorf("%s is not *Execution", KeyExecution)
	}

	return exec, nil
}

// DraftNode runs the draft stage with its quality gate. A draft in the
// refine band has no predecessor to loop back to, so it revises itself with
// its own assessment feedback, bounded by the draft revision cap.
func DraftNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		exec, err := extractExecution(s)
		if err != nil {
			return s, fmt.Errorf("draft: %w", err)
		}

		draftGate(ctx, rt, exec)

		rt.Logger.InfoContext(
			ctx, "draft gate complete",
			"execution_id", exec.ID,
			"status", exec.Status,
			"criteria", len(exec.Artifact.AcceptanceCriteria),
		)
		return s, nil
	})
}

// TechnicalNode runs the technical review gate with its bounded refinement
// loop back to the draft stage.
func TechnicalNode(rt *Runtime) state.StateNode {
	return reviewNode(rt, StageTechnical, StageDraft, func() int { return rt.Config.TechnicalIterations })
}

// QualityNode runs the quality review gate with its bounded refinement loop
// back to the technical review stage.
func QualityNode(rt *Runtime) state.StateNode {
	return reviewNode(rt, StageQuality, StageTechnical, func() int { return rt.Config.QualityIterations })
}

func reviewNode(rt *Runtime, stage, predecessor StageName, limit func() int) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		exec, err := extractExecution(s)
		if err != nil {
			return s, fmt.Errorf("%s: %w", stage, err)
		}

		reviewGate(ctx, rt, exec, stage, predecessor, limit())

		rt.Logger.InfoContext(
			ctx, "review gate complete",
			"execution_id", exec.ID,
			"stage", stage,
			"status", exec.Status,
			"iterations", exec.Iterations[pairKey(stage, predecessor)],
		)
		return s, nil
	})
}

// ComplianceNode runs the compliance gate. Compliance has three independent
// checks: below floor escalates, below the escalation threshold escalates,
// and only at or above target does the workflow auto-proceed.
func ComplianceNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		exec, err := extractExecution(s)
		if err != nil {
			return s, fmt.Errorf("compliance: %w", err)
		}

		complianceGate(ctx, rt, exec)

		rt.Logger.InfoContext(
			ctx, "compliance gate complete",
			"execution_id", exec.ID,
			"status", exec.Status,
		)
		return s, nil
	})
}

// ResolveNode freezes the execution: the final composite score is aggregated
// once, only for completed executions.
func ResolveNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		exec, err := extractExecution(s)
		if err != nil {
			return s, fmt.Errorf("resolve: %w", err)
		}

		if exec.Status == StatusCompleted {
			exec.FinalScore = aggregate(exec, rt.Config)
		}

		rt.Logger.InfoContext(
			ctx, "execution resolved",
			"execution_id", exec.ID,
			"status", exec.Status,
			"reason", exec.Reason,
			"final_score", exec.FinalScore,
		)
		return s, nil
	})
}

func draftGate(ctx context.Context, rt *Runtime, exec *Execution) {
	artifact, qa, err := runDraft(ctx, rt, exec, "", false)
	if err != nil {
		failStage(ctx, rt, exec, StageDraft, err)
		return
	}

	exec.Artifact = artifact
	exec.Record(StageDraft, 1, artifact, qa, false)

	switch qa.Band {
	case BandPass:
		return
	case BandReject:
		exec.Resolve(StatusRejected, ReasonQualityGate)
		return
	}

	// Refine band: bounded self-revision.
	gate := rt.Config.Gate(StageDraft)
	best := qa.Composite
	bestArtifact := artifact
	key := pairKey(StageDraft, StageDraft)

	for i := 1; i <= rt.Config.DraftRevisions && qa.Band == BandRefine; i++ {
		exec.Iterations[key]++

		artifact, qa, err = runDraft(ctx, rt, exec, qa.Feedback, true)
		if err != nil {
			failStage(ctx, rt, exec, StageDraft, err)
			return
		}

		exec.Artifact = artifact
		exec.Record(StageDraft, i+1, artifact, qa, false)

		if qa.Composite > best {
			best = qa.Composite
			bestArtifact = artifact
		}
	}

	if qa.Band == BandPass {
		return
	}

	if best >= gate.Floor {
		exec.Artifact = bestArtifact
		exec.Stages[len(exec.Stages)-1].Degraded = true
		return
	}

	exec.Resolve(StatusRejected, ReasonQualityGate)
}

// reviewGate applies the transition rule for a review stage: pass advances,
// first-attempt reject terminates, and refine enters a bounded loop that
// re-invokes the predecessor with the reviewer's feedback before re-running
// the review. On cap exhaustion the best composite seen proceeds with a
// degraded annotation when it clears the floor, otherwise the execution is
// rejected.
func reviewGate(ctx context.Context, rt *Runtime, exec *Execution, stage, predecessor StageName, iterationCap int) {
	run := stageRunner(stage)
	rerun := stageRunner(predecessor)

	artifact, qa, err := run(ctx, rt, exec, "", false)
	if err != nil {
		failStage(ctx, rt, exec, stage, err)
		return
	}

	exec.Artifact = artifact
	exec.Record(stage, 1, artifact, qa, false)

	switch qa.Band {
	case BandPass:
		return
	case BandReject:
		exec.Resolve(StatusRejected, ReasonQualityGate)
		return
	}

	gate := rt.Config.Gate(stage)
	best := qa.Composite
	bestArtifact := artifact
	key := pairKey(stage, predecessor)

	for i := 1; i <= iterationCap && qa.Band == BandRefine; i++ {
		exec.Iterations[key]++

		refined, pQA, err := rerun(ctx, rt, exec, qa.Feedback, true)
		if err != nil {
			failStage(ctx, rt, exec, predecessor, err)
			return
		}
		exec.Artifact = refined
		exec.Record(predecessor, attemptCount(exec, predecessor), refined, pQA, false)

		artifact, qa, err = run(ctx, rt, exec, "", false)
		if err != nil {
			failStage(ctx, rt, exec, stage, err)
			return
		}
		exec.Artifact = artifact
		exec.Record(stage, i+1, artifact, qa, false)

		if qa.Composite > best {
			best = qa.Composite
			bestArtifact = artifact
		}
	}

	if qa.Band == BandPass {
		return
	}

	if best >= gate.Floor {
		exec.Artifact = bestArtifact
		exec.Stages[len(exec.Stages)-1].Degraded = true
		return
	}

	exec.Resolve(StatusRejected, ReasonQualityGate)
}

func complianceGate(ctx context.Context, rt *Runtime, exec *Execution) {
	artifact, qa, err := runCompliance(ctx, rt, exec, "", false)
	if err != nil {
		failStage(ctx, rt, exec, StageCompliance, err)
		return
	}

	exec.Artifact = artifact
	exec.Record(StageCompliance, 1, artifact, qa, false)

	cfg := rt.Config
	switch {
	case qa.Composite < cfg.Compliance.Floor:
		exec.Resolve(StatusEscalated, ReasonComplianceFloor)
	case qa.Composite < cfg.ComplianceEscalation:
		exec.Resolve(StatusEscalated, ReasonComplianceEscalation)
	}
}

func failStage(ctx context.Context, rt *Runtime, exec *Execution, stage StageName, err error) {
	rt.Logger.ErrorContext(
		ctx, "stage execution failed",
		"execution_id", exec.ID,
		"stage", stage,
		"error", err,
		"stages_completed", len(exec.Stages),
	)
	exec.Resolve(StatusFailed, ReasonStageError)
}

func pairKey(stage, predecessor StageName) string {
	return fmt.Sprintf("%s:%s", stage, predecessor)
}

func attemptCount(exec *Execution, stage StageName) int {
	count := 0
	for _, sr := range exec.Stages {
		if sr.Stage == stage {
			count++
		}
	}
	return count + 1
}
