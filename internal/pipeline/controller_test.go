package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/JaimeStill/refinery/internal/pipeline"
	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/internal/research"
	"github.com/JaimeStill/refinery/internal/tracker"
)

type fakeCompleter struct {
	responses []string
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if f.calls >= len(f.responses) {
		return "", fmt.Errorf("unexpected completion call %d", f.calls+1)
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

// staticPrompts serves the hardcoded stage defaults without a database.
type staticPrompts struct {
	prompts.System
}

func (staticPrompts) Instructions(ctx context.Context, stage prompts.Stage) (string, error) {
	return prompts.DefaultInstructions(stage)
}

func (staticPrompts) Spec(ctx context.Context, stage prompts.Stage) (string, error) {
	return prompts.Spec(stage)
}

type fakeResearch struct {
	sources []research.Source
	err     error
}

func (f *fakeResearch) Search(ctx context.Context, query, scope string, limit int) ([]research.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sources, nil
}

type fakeTracker struct {
	mu          sync.Mutex
	calls       int
	keys        []string
	annotations []string
	err         error
}

func (f *fakeTracker) Create(ctx context.Context, record tracker.CreateRecord) (*tracker.RecordRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.keys = append(f.keys, record.IdempotencyKey)

	if f.err != nil {
		return nil, f.err
	}
	return &tracker.RecordRef{Key: "REF-42", URL: "https://tracker.test/REF-42"}, nil
}

func (f *fakeTracker) Annotate(ctx context.Context, key string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.annotations = append(f.annotations, text)
	return nil
}

func (f *fakeTracker) Update(ctx context.Context, key string, fields map[string]any) error {
	return nil
}

func testConfig(t *testing.T) *pipeline.Config {
	t.Helper()

	cfg := &pipeline.Config{
		SinkRetries: 2,
		SinkBackoff: "1ms",
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	return cfg
}

func testRuntime(t *testing.T, completer *fakeCompleter, rs research.System, tr *fakeTracker) *pipeline.Runtime {
	t.Helper()

	return &pipeline.Runtime{
		Completer: completer,
		Research:  rs,
		Tracker:   tr,
		Prompts:   staticPrompts{},
		Config:    testConfig(t),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func scoreMap(stage pipeline.StageName, v float64) map[string]float64 {
	scores := make(map[string]float64)
	for _, dim := range pipeline.Dimensions(stage) {
		scores[dim] = v
	}
	return scores
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(data)
}

func draftReply(t *testing.T, score float64) string {
	return marshal(t, map[string]any{
		"summary":   "Add request rate limiting",
		"narrative": "As a platform operator, I want per-client request limits, so that one tenant cannot exhaust shared capacity.",
		"acceptance_criteria": []string{
			"requests beyond the limit receive 429",
			"limits reset after the configured window",
			"limit state survives service restart",
		},
		"labels":         []string{"api", "reliability"},
		"priority":       "high",
		"issue_type":     "feature",
		"business_value": "Protects shared capacity from noisy tenants.",
		"scores":         scoreMap(pipeline.StageDraft, score),
		"feedback":       "clarify the reset window semantics",
	})
}

func technicalReply(t *testing.T, score float64) string {
	return marshal(t, map[string]any{
		"technical_notes":     "Token bucket per client key, stored in the shared cache.",
		"narrative":           "As a platform operator, I want per-client request limits, so that one tenant cannot exhaust shared capacity.",
		"acceptance_criteria": []string{"bucket refill rate is configurable"},
		"labels":              []string{"ratelimit"},
		"scores":              scoreMap(pipeline.StageTechnical, score),
		"feedback":            "draft omits the multi-instance coordination requirement",
	})
}

func qualityReply(t *testing.T, score float64) string {
	return marshal(t, map[string]any{
		"acceptance_criteria": []string{"burst traffic at the limit boundary is covered by tests"},
		"labels":              []string{"testing"},
		"testing_notes":       "Load test at, below, and above the limit; verify 429 bodies.",
		"scores":              scoreMap(pipeline.StageQuality, score),
		"feedback":            "criteria lack observable failure-path checks",
	})
}

func complianceReply(t *testing.T, score float64) string {
	return marshal(t, map[string]any{
		"compliance_notes": "No regulated data involved; standard change approval applies.",
		"labels":           []string{},
		"scores":           scoreMap(pipeline.StageCompliance, score),
		"feedback":         "",
	})
}

func request() pipeline.Request {
	return pipeline.Request{Text: "we need rate limiting on the public API"}
}

func TestExecuteHappyPath(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		technicalReply(t, 0.9),
		qualityReply(t, 0.9),
		complianceReply(t, 0.9),
	}}
	sink := &fakeTracker{}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, nil, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", exec.Status, exec.Reason)
	}
	if sink.calls != 1 {
		t.Errorf("sink calls = %d, want 1", sink.calls)
	}
	if exec.RecordRef == nil || exec.RecordRef.Key != "REF-42" {
		t.Errorf("record ref = %+v", exec.RecordRef)
	}
	if exec.IdempotencyKey == "" {
		t.Error("idempotency key not set")
	}
	if len(sink.annotations) != 0 {
		t.Errorf("annotations = %v, want none on a clean pass", sink.annotations)
	}
	if len(exec.Stages) != 4 {
		t.Errorf("stage history length = %d, want 4", len(exec.Stages))
	}

	// All composites 0.9, role weights sum to 1, no research consulted.
	if math.Abs(exec.FinalScore-0.9) > 1e-9 {
		t.Errorf("final score = %v, want 0.9", exec.FinalScore)
	}
}

func TestExecuteEmptyRequest(t *testing.T) {
	completer := &fakeCompleter{}
	sink := &fakeTracker{}

	exec, err := pipeline.Execute(
		context.Background(),
		testRuntime(t, completer, nil, sink),
		pipeline.Request{Text: "   "},
	)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusRejected || exec.Reason != pipeline.ReasonValidation {
		t.Errorf("outcome = %s/%s, want rejected/validation_error", exec.Status, exec.Reason)
	}
	if completer.calls != 0 {
		t.Errorf("completer calls = %d, want 0", completer.calls)
	}
	if sink.calls != 0 {
		t.Errorf("sink calls = %d, want 0", sink.calls)
	}
}

func TestExecuteRefinementLoop(t *testing.T) {
	// Technical lands in the refine band, the draft is regenerated with the
	// reviewer's feedback, and the re-review passes.
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		technicalReply(t, 0.7),
		draftReply(t, 0.92),
		technicalReply(t, 0.85),
		qualityReply(t, 0.9),
		complianceReply(t, 0.9),
	}}
	sink := &fakeTracker{}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, nil, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", exec.Status, exec.Reason)
	}
	if got := exec.Iterations["technical:draft"]; got != 1 {
		t.Errorf("technical:draft iterations = %d, want 1", got)
	}

	counts := map[pipeline.StageName]int{}
	for _, sr := range exec.Stages {
		counts[sr.Stage]++
	}
	if counts[pipeline.StageDraft] != 2 || counts[pipeline.StageTechnical] != 2 {
		t.Errorf("stage attempts = %v", counts)
	}
}

func TestExecuteIterationCapDegrades(t *testing.T) {
	// Technical never reaches target but stays above floor; after the cap
	// the best attempt proceeds flagged as degraded.
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		technicalReply(t, 0.7),
		draftReply(t, 0.9),
		technicalReply(t, 0.72),
		draftReply(t, 0.9),
		technicalReply(t, 0.71),
		qualityReply(t, 0.9),
		complianceReply(t, 0.9),
	}}
	sink := &fakeTracker{}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, nil, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", exec.Status, exec.Reason)
	}
	if got := exec.Iterations["technical:draft"]; got != 2 {
		t.Errorf("technical:draft iterations = %d, want cap 2", got)
	}

	degraded := false
	for _, sr := range exec.Stages {
		if sr.Stage == pipeline.StageTechnical && sr.Degraded {
			degraded = true
		}
	}
	if !degraded {
		t.Error("no technical attempt flagged degraded after cap exhaustion")
	}
	if len(sink.annotations) != 1 {
		t.Errorf("annotations = %v, want one degraded-quality note", sink.annotations)
	}
}

func TestExecuteFirstAttemptReject(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		technicalReply(t, 0.4),
	}}
	sink := &fakeTracker{}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, nil, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusRejected || exec.Reason != pipeline.ReasonQualityGate {
		t.Errorf("outcome = %s/%s, want rejected/quality_gate", exec.Status, exec.Reason)
	}
	if sink.calls != 0 {
		t.Errorf("sink calls = %d, want 0", sink.calls)
	}
}

func TestExecuteComplianceEscalation(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		wantReason string
	}{
		{"below floor", 0.5, pipeline.ReasonComplianceFloor},
		{"below escalation threshold", 0.8, pipeline.ReasonComplianceEscalation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{responses: []string{
				draftReply(t, 0.9),
				technicalReply(t, 0.9),
				qualityReply(t, 0.9),
				complianceReply(t, tt.score),
			}}
			sink := &fakeTracker{}

			exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, nil, sink), request())
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}

			if exec.Status != pipeline.StatusEscalated || exec.Reason != tt.wantReason {
				t.Errorf("outcome = %s/%s, want escalated/%s", exec.Status, exec.Reason, tt.wantReason)
			}
			if sink.calls != 0 {
				t.Errorf("sink calls = %d, want 0: escalation must not create records", sink.calls)
			}
		})
	}
}

func TestExecuteResearchFailureTolerated(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		technicalReply(t, 0.9),
		qualityReply(t, 0.9),
		complianceReply(t, 0.9),
	}}
	sink := &fakeTracker{}
	rs := &fakeResearch{err: errors.New("connector down")}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, rs, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusCompleted {
		t.Errorf("status = %s (%s), want completed despite research outage", exec.Status, exec.Reason)
	}
	if len(exec.Research) != 0 {
		t.Errorf("research usage recorded despite failures: %+v", exec.Research)
	}
}

func TestExecuteResearchBonuses(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		technicalReply(t, 0.9),
		qualityReply(t, 0.9),
		complianceReply(t, 0.9),
	}}
	sink := &fakeTracker{}
	rs := &fakeResearch{sources: []research.Source{
		{Title: "prior limiter ticket", Content: "…", Relevance: 0.9},
		{Title: "gateway design note", Content: "…", Relevance: 0.4},
	}}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, rs, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", exec.Status, exec.Reason)
	}
	if len(exec.Research) == 0 {
		t.Fatal("no research usage recorded")
	}
	if exec.FinalScore <= 0.9 {
		t.Errorf("final score = %v, want research bonus above base 0.9", exec.FinalScore)
	}
	if exec.FinalScore > 1.0 {
		t.Errorf("final score = %v exceeds 1.0", exec.FinalScore)
	}
}

func TestExecuteSinkFailure(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		technicalReply(t, 0.9),
		qualityReply(t, 0.9),
		complianceReply(t, 0.9),
	}}
	sink := &fakeTracker{err: errors.New("tracker unavailable")}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, nil, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusFailed || exec.Reason != pipeline.ReasonCreationError {
		t.Errorf("outcome = %s/%s, want failed/creation_error", exec.Status, exec.Reason)
	}
	if sink.calls != 2 {
		t.Errorf("sink calls = %d, want bounded retries 2", sink.calls)
	}

	// Every attempt carried the same idempotency key.
	for _, key := range sink.keys {
		if key != sink.keys[0] {
			t.Errorf("idempotency key varied across retries: %v", sink.keys)
		}
	}
}

func TestExecuteStageError(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		draftReply(t, 0.9),
		"not json at all",
	}}
	sink := &fakeTracker{}

	exec, err := pipeline.Execute(context.Background(), testRuntime(t, completer, nil, sink), request())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if exec.Status != pipeline.StatusFailed || exec.Reason != pipeline.ReasonStageError {
		t.Errorf("outcome = %s/%s, want failed/stage_error", exec.Status, exec.Reason)
	}

	// The draft result is preserved for audit even though technical failed.
	if len(exec.Stages) != 1 || exec.Stages[0].Stage != pipeline.StageDraft {
		t.Errorf("stage history = %+v", exec.Stages)
	}
}
