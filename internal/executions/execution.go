// Package executions implements the refinement execution domain for
// Refinery. It runs the refinement pipeline against submitted requests,
// persists the resulting execution envelope, and provides querying over
// prior runs.
package executions

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/refinery/internal/pipeline"
)

// Execution represents a stored refinement run. It mirrors the executions
// table schema; the stage history, iteration counts, and research usage are
// stored as JSON documents.
type Execution struct {
	ID             uuid.UUID              `json:"id"`
	RequestText    string                 `json:"request_text"`
	Summary        string                 `json:"summary"`
	Status         string                 `json:"status"`
	Reason         string                 `json:"reason"`
	FinalScore     float64                `json:"final_composite_score"`
	RecordKey      *string                `json:"record_key"`
	RecordURL      *string                `json:"record_url"`
	IdempotencyKey *string                `json:"idempotency_key"`
	Artifact       pipeline.Artifact      `json:"artifact"`
	Stages         []pipeline.StageResult `json:"stage_history"`
	Iterations     map[string]int         `json:"iteration_counts"`
	Research       []pipeline.SourceUse   `json:"research"`
	CreatedAt      time.Time              `json:"created_at"`
	CompletedAt    time.Time              `json:"completed_at"`
}

// RunCommand carries the data needed to start a refinement execution.
type RunCommand struct {
	Text    string            `json:"request_text"`
	Context map[string]string `json:"context,omitempty"`
}
