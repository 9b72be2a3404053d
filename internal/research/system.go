// Package research implements the context-search connectors for Refinery.
// It provides a document-corpus connector over blob storage, a
// historical-record connector over the executions store, and a read-through
// cache composing them behind a single System interface.
package research

import "context"

// Search scopes.
const (
	ScopeCorpus  = "corpus"
	ScopeHistory = "history"
)

// Source is one context snippet returned by a connector.
type Source struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// System defines the research connector contract. Implementations must
// return an empty slice for "no matches" and reserve errors for genuine
// transport failure.
type System interface {
	Search(ctx context.Context, query, scope string, limit int) ([]Source, error)
}
