package research

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/JaimeStill/refinery/pkg/repository"
)

// maxHistoryTerms bounds how many query terms participate in the SQL filter.
const maxHistoryTerms = 5

type historyRow struct {
	Summary     string
	RequestText string
	Status      string
}

// History searches prior refinement executions stored in Postgres. Rows are
// matched by case-insensitive term overlap against the request text and
// summary, then rescored and ranked on the Go side.
type History struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHistory creates a history connector over the given database.
func NewHistory(db *sql.DB, logger *slog.Logger) *History {
	return &History{
		db:     db,
		logger: logger.With("system", "research.history"),
	}
}

func (h *History) Search(ctx context.Context, query string, scope string, limit int) ([]Source, error) {
	terms := tokenize(query)
	if len(terms) > maxHistoryTerms {
		terms = terms[:maxHistoryTerms]
	}
	if len(terms) == 0 {
		return nil, nil
	}

	q, args := historyQuery(terms, limit)

	rows, err := repository.QueryMany(ctx, h.db, q, args, scanHistoryRow)
	if err != nil {
		return nil, fmt.Errorf("search execution history: %w", err)
	}

	var sources []Source
	for _, row := range rows {
		document := row.Summary + " " + row.RequestText
		score := relevance(query, document)
		if score <= 0 {
			continue
		}
		sources = append(sources, Source{
			Title:     fmt.Sprintf("prior execution: %s (%s)", row.Summary, row.Status),
			Content:   snippet(row.RequestText),
			Relevance: score,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Relevance > sources[j].Relevance
	})

	return bounded(sources, limit), nil
}

func historyQuery(terms []string, limit int) (string, []any) {
	var clauses []string
	var args []any

	for i, term := range terms {
		clauses = append(clauses, fmt.Sprintf(
			"(request_text ILIKE $%d OR summary ILIKE $%d)", i+1, i+1,
		))
		args = append(args, "%"+term+"%")
	}

	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT summary, request_text, status
		FROM executions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d`,
		strings.Join(clauses, " OR "), len(args),
	)

	return query, args
}

func scanHistoryRow(s repository.Scanner) (historyRow, error) {
	var row historyRow
	if err := s.Scan(&row.Summary, &row.RequestText, &row.Status); err != nil {
		return historyRow{}, err
	}
	return row, nil
}
