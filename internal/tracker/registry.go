package tracker

import (
	"context"
	"sync"
)

// Registry records which idempotency keys have produced tracker records.
// Lookup returns the resolved reference for a key, if any. Resolve binds a
// key to the record it produced; binding the same key twice keeps the first
// reference.
type Registry interface {
	Lookup(ctx context.Context, key string) (*RecordRef, bool, error)
	Resolve(ctx context.Context, key string, ref RecordRef) error
}

// MemoryRegistry is an in-process Registry. Suitable for single-instance
// deployments and tests; durable deployments use the Postgres registry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]RecordRef
}

// NewMemoryRegistry creates an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]RecordRef)}
}

func (r *MemoryRegistry) Lookup(ctx context.Context, key string) (*RecordRef, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &ref, true, nil
}

func (r *MemoryRegistry) Resolve(ctx context.Context, key string, ref RecordRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return nil
	}
	r.entries[key] = ref
	return nil
}
