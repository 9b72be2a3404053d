package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JaimeStill/refinery/pkg/repository"
)

// PostgresRegistry persists idempotency keys in the submissions table. The
// unique constraint on idempotency_key makes Resolve first-writer-wins even
// across concurrent service instances.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry creates a registry backed by the given database.
func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

func (r *PostgresRegistry) Lookup(ctx context.Context, key string) (*RecordRef, bool, error) {
	const query = `
		SELECT record_key, record_url
		FROM submissions
		WHERE idempotency_key = $1`

	ref, err := repository.QueryOne(ctx, r.db, query, []any{key}, scanRecordRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup submission %s: %w", key, err)
	}

	return &ref, true, nil
}

func (r *PostgresRegistry) Resolve(ctx context.Context, key string, ref RecordRef) error {
	const query = `
		INSERT INTO submissions (idempotency_key, record_key, record_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (idempotency_key) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, key, ref.Key, ref.URL); err != nil {
		return fmt.Errorf("resolve submission %s: %w", key, err)
	}

	return nil
}

func scanRecordRef(s repository.Scanner) (RecordRef, error) {
	var ref RecordRef
	if err := s.Scan(&ref.Key, &ref.URL); err != nil {
		return RecordRef{}, err
	}
	return ref, nil
}
