package executions

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/refinery/pkg/query"
	"github.com/JaimeStill/refinery/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "executions", "e").
	Project("id", "ID").
	Project("request_text", "RequestText").
	Project("summary", "Summary").
	Project("status", "Status").
	Project("reason", "Reason").
	Project("final_score", "FinalScore").
	Project("record_key", "RecordKey").
	Project("record_url", "RecordURL").
	Project("idempotency_key", "IdempotencyKey").
	Project("artifact", "Artifact").
	Project("stage_history", "Stages").
	Project("iteration_counts", "Iterations").
	Project("research", "Research").
	Project("created_at", "CreatedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for execution queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Status *string `json:"status,omitempty"`
	Reason *string `json:"reason,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Reason", f.Reason)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if r := values.Get("reason"); r != "" {
		f.Reason = &r
	}

	return f
}

func scanExecution(s repository.Scanner) (Execution, error) {
	var e Execution
	var artifactRaw, stagesRaw, iterationsRaw, researchRaw []byte

	err := s.Scan(
		&e.ID,
		&e.RequestText,
		&e.Summary,
		&e.Status,
		&e.Reason,
		&e.FinalScore,
		&e.RecordKey,
		&e.RecordURL,
		&e.IdempotencyKey,
		&artifactRaw,
		&stagesRaw,
		&iterationsRaw,
		&researchRaw,
		&e.CreatedAt,
		&e.CompletedAt,
	)

	if err != nil {
		return e, err
	}

	if len(artifactRaw) > 0 {
		if err := json.Unmarshal(artifactRaw, &e.Artifact); err != nil {
			return e, fmt.Errorf("unmarshal artifact: %w", err)
		}
	}

	if len(stagesRaw) > 0 {
		if err := json.Unmarshal(stagesRaw, &e.Stages); err != nil {
			return e, fmt.Errorf("unmarshal stage_history: %w", err)
		}
	}

	if len(iterationsRaw) > 0 {
		if err := json.Unmarshal(iterationsRaw, &e.Iterations); err != nil {
			return e, fmt.Errorf("unmarshal iteration_counts: %w", err)
		}
	}

	if len(researchRaw) > 0 {
		if err := json.Unmarshal(researchRaw, &e.Research); err != nil {
			return e, fmt.Errorf("unmarshal research: %w", err)
		}
	}

	return e, nil
}
