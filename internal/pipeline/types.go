package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/refinery/internal/research"
)

// State bag keys used by the pipeline graph.
const (
	KeyExecution = "execution"
)

// Priority represents the urgency classification of a ticket.
type Priority string

// Valid ticket priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IssueType represents the category of work a ticket describes.
type IssueType string

// Valid issue types.
const (
	IssueTypeFeature IssueType = "feature"
	IssueTypeBug     IssueType = "bug"
	IssueTypeTask    IssueType = "task"
	IssueTypeSpike   IssueType = "spike"
)

// Artifact is the evolving ticket record passed between stages. Stages return
// new values rather than mutating their input; merge rules are additive, so a
// later stage never shrinks the acceptance criteria list or the narrative of
// its predecessor unless a refinement loop regenerates that stage's own output.
type Artifact struct {
	Summary            string    `json:"summary"`
	Narrative          string    `json:"narrative"`
	AcceptanceCriteria []string  `json:"acceptance_criteria"`
	Labels             []string  `json:"labels"`
	Priority           Priority  `json:"priority"`
	IssueType          IssueType `json:"issue_type"`
	BusinessValue      string    `json:"business_value"`
	TechnicalNotes     string    `json:"technical_notes"`
	ComplianceNotes    string    `json:"compliance_notes"`
}

// Band categorizes a composite score against a stage's floor and target thresholds.
type Band string

// Quality bands.
const (
	BandPass   Band = "pass"
	BandRefine Band = "refine"
	BandReject Band = "reject"
)

// QualityAssessment holds the per-dimension scores, the weight table applied,
// and the derived composite score and band for one stage invocation.
type QualityAssessment struct {
	Dimensions map[string]float64 `json:"dimension_scores"`
	Weights    map[string]float64 `json:"weights"`
	Composite  float64            `json:"composite"`
	Band       Band               `json:"band"`
	Feedback   string             `json:"feedback,omitempty"`
}

// StageName identifies a pipeline stage.
type StageName string

// Pipeline stages in execution order.
const (
	StageDraft      StageName = "draft"
	StageTechnical  StageName = "technical"
	StageQuality    StageName = "quality"
	StageCompliance StageName = "compliance"
	StageFinalize   StageName = "finalize"
)

// Status is the lifecycle state of a workflow execution.
type Status string

// Execution statuses. StatusRunning is transient; the other four are terminal.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusEscalated Status = "escalated"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a final outcome.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Machine-readable reason codes attached to terminal statuses.
const (
	ReasonValidation           = "validation_error"
	ReasonQualityGate          = "quality_gate"
	ReasonComplianceFloor      = "compliance_floor"
	ReasonComplianceEscalation = "compliance_escalation"
	ReasonStageError           = "stage_error"
	ReasonCreationError        = "creation_error"
)

// StageResult is one stage invocation snapshot, appended to the execution
// history in order. Refinement attempts are appended, never overwritten, so
// the full history is reconstructable for audit.
type StageResult struct {
	Stage      StageName         `json:"stage"`
	Attempt    int               `json:"attempt"`
	Artifact   Artifact          `json:"artifact"`
	Assessment QualityAssessment `json:"assessment"`
	Degraded   bool              `json:"degraded,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// SourceUse records a research source consulted during a stage, feeding the
// workflow-level research bonuses.
type SourceUse struct {
	Stage     StageName `json:"stage"`
	Title     string    `json:"title"`
	Scope     string    `json:"scope"`
	Relevance float64   `json:"relevance"`
}

// Request is the sole input to a workflow execution.
type Request struct {
	Text    string            `json:"request_text"`
	Context map[string]string `json:"context,omitempty"`
}

// RecordRef points at the record created in the issue tracker.
type RecordRef struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Execution is one workflow run: the append-only stage history, bounded
// iteration counts per stage pair, research usage, and the terminal outcome.
// It is owned exclusively by the controller while running and becomes
// immutable once Status is terminal.
type Execution struct {
	ID             uuid.UUID      `json:"id"`
	Request        Request        `json:"request"`
	Artifact       Artifact       `json:"artifact"`
	Stages         []StageResult  `json:"stage_history"`
	Iterations     map[string]int `json:"iteration_counts"`
	Research       []SourceUse    `json:"research,omitempty"`
	Status         Status         `json:"status"`
	Reason         string         `json:"reason,omitempty"`
	FinalScore     float64        `json:"final_composite_score"`
	RecordRef      *RecordRef     `json:"created_record_ref,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    time.Time      `json:"completed_at"`
}

// NewExecution creates a running execution for the given request.
func NewExecution(req Request) *Execution {
	return &Execution{
		ID:         uuid.New(),
		Request:    req,
		Iterations: make(map[string]int),
		Status:     StatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
}

// Record appends a stage result snapshot to the execution history.
func (e *Execution) Record(stage StageName, attempt int, artifact Artifact, qa QualityAssessment, degraded bool) {
	e.Stages = append(e.Stages, StageResult{
		Stage:      stage,
		Attempt:    attempt,
		Artifact:   artifact,
		Assessment: qa,
		Degraded:   degraded,
		Timestamp:  time.Now().UTC(),
	})
}

// Consult appends the research sources used by a stage.
func (e *Execution) Consult(stage StageName, scope string, sources []research.Source) {
	for _, src := range sources {
		e.Research = append(e.Research, SourceUse{
			Stage:     stage,
			Title:     src.Title,
			Scope:     scope,
			Relevance: src.Relevance,
		})
	}
}

// Resolve transitions the execution to a terminal status with a reason code.
// It is a no-op if the execution is already terminal.
func (e *Execution) Resolve(status Status, reason string) {
	if e.Status.Terminal() {
		return
	}
	e.Status = status
	e.Reason = reason
	e.CompletedAt = time.Now().UTC()
}

// Latest returns the most recent assessment for the named stage, or nil when
// the stage has not run.
func (e *Execution) Latest(stage StageName) *StageResult {
	for i := len(e.Stages) - 1; i >= 0; i-- {
		if e.Stages[i].Stage == stage {
			return &e.Stages[i]
		}
	}
	return nil
}
