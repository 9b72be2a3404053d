package executions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/refinery/internal/pipeline"
	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/internal/research"
	"github.com/JaimeStill/refinery/internal/tracker"
	"github.com/JaimeStill/refinery/pkg/pagination"
	"github.com/JaimeStill/refinery/pkg/query"
	"github.com/JaimeStill/refinery/pkg/repository"
)

type repo struct {
	db         *sql.DB
	rt         *pipeline.Runtime
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an execution repository implementing the System interface.
// It internally constructs the pipeline runtime from the provided
// dependencies.
func New(
	db *sql.DB,
	agent gaconfig.AgentConfig,
	cfg *pipeline.Config,
	logger *slog.Logger,
	pagination pagination.Config,
	researchSys research.System,
	trackerSys tracker.System,
	promptsSys prompts.System,
) System {
	rt := &pipeline.Runtime{
		Completer: pipeline.NewCompleter(agent),
		Research:  researchSys,
		Tracker:   trackerSys,
		Prompts:   promptsSys,
		Config:    cfg,
		Logger:    logger.With("workflow", "refine"),
	}
	return &repo{
		db:         db,
		rt:         rt,
		logger:     logger.With("system", "executions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Execution], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "RequestText", "Summary")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanExecution)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Execution, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanExecution)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &e, nil
}

func (r *repo) Run(ctx context.Context, cmd RunCommand) (*Execution, error) {
	result, err := pipeline.Execute(ctx, r.rt, pipeline.Request{
		Text:    cmd.Text,
		Context: cmd.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("run refinement: %w", err)
	}

	e, err := r.persist(ctx, result)
	if err != nil {
		return nil, err
	}

	r.logger.Info("execution completed",
		"id", e.ID,
		"status", e.Status,
		"reason", e.Reason,
		"final_score", e.FinalScore,
	)
	return e, nil
}

func (r *repo) persist(ctx context.Context, result *pipeline.Execution) (*Execution, error) {
	artifactJSON, err := json.Marshal(result.Artifact)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	stagesJSON, err := json.Marshal(result.Stages)
	if err != nil {
		return nil, fmt.Errorf("marshal stage_history: %w", err)
	}
	iterationsJSON, err := json.Marshal(result.Iterations)
	if err != nil {
		return nil, fmt.Errorf("marshal iteration_counts: %w", err)
	}
	researchJSON, err := json.Marshal(result.Research)
	if err != nil {
		return nil, fmt.Errorf("marshal research: %w", err)
	}

	var recordKey, recordURL, idempotencyKey *string
	if result.RecordRef != nil {
		recordKey = &result.RecordRef.Key
		recordURL = &result.RecordRef.URL
	}
	if result.IdempotencyKey != "" {
		idempotencyKey = &result.IdempotencyKey
	}

	insertQ := `
		INSERT INTO executions(
			id, request_text, summary, status, reason, final_score,
			record_key, record_url, idempotency_key,
			artifact, stage_history, iteration_counts, research,
			created_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, request_text, summary, status, reason, final_score,
				  record_key, record_url, idempotency_key,
				  artifact, stage_history, iteration_counts, research,
				  created_at, completed_at`

	insertArgs := []any{
		result.ID,
		result.Request.Text,
		result.Artifact.Summary,
		string(result.Status),
		result.Reason,
		result.FinalScore,
		recordKey,
		recordURL,
		idempotencyKey,
		artifactJSON,
		stagesJSON,
		iterationsJSON,
		researchJSON,
		result.CreatedAt,
		result.CompletedAt,
	}

	e, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Execution, error) {
		return repository.QueryOne(ctx, tx, insertQ, insertArgs, scanExecution)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &e, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM executions WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("execution deleted", "id", id)
	return nil
}
