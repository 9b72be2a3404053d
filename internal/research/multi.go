package research

import (
	"context"
	"fmt"
)

// Router dispatches searches to scope-specific connectors.
type Router struct {
	connectors map[string]System
}

// NewRouter creates a router over the given scope connectors. Scopes with a
// nil connector are omitted; searching them returns ErrUnknownScope.
func NewRouter(connectors map[string]System) *Router {
	registered := make(map[string]System, len(connectors))
	for scope, connector := range connectors {
		if connector != nil {
			registered[scope] = connector
		}
	}
	return &Router{connectors: registered}
}

func (r *Router) Search(ctx context.Context, query string, scope string, limit int) ([]Source, error) {
	connector, ok := r.connectors[scope]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}
	return connector.Search(ctx, query, scope, limit)
}
