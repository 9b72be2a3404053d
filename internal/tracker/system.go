// Package tracker creates refinement records in an external issue tracker
// with idempotency guarantees across retries.
package tracker

import "context"

// CreateRecord carries the fields of a tracker record to be created.
type CreateRecord struct {
	Summary        string   `json:"summary"`
	Body           string   `json:"body"`
	Labels         []string `json:"labels,omitempty"`
	Priority       string   `json:"priority"`
	IssueType      string   `json:"issue_type"`
	IdempotencyKey string   `json:"idempotency_key"`
}

// RecordRef identifies a created tracker record.
type RecordRef struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// System writes to the issue tracker. Create is idempotent with respect to
// CreateRecord.IdempotencyKey: repeated calls with the same key return the
// reference of the first successful creation. Annotate appends a comment to
// an existing record; Update patches its fields.
type System interface {
	Create(ctx context.Context, record CreateRecord) (*RecordRef, error)
	Annotate(ctx context.Context, key string, text string) error
	Update(ctx context.Context, key string, fields map[string]any) error
}
