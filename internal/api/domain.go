package api

import (
	"github.com/JaimeStill/refinery/internal/executions"
	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/internal/research"
	"github.com/JaimeStill/refinery/internal/tracker"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Executions executions.System
	Prompts    prompts.System
}

// NewDomain creates all domain systems from the API runtime. The research
// router combines the blob-backed corpus connector and the Postgres-backed
// history connector behind a shared read-through cache; the tracker uses the
// Postgres idempotency registry so retried creates resolve to one record.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	promptsSystem := prompts.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	researchSystem := research.NewCache(
		research.NewRouter(map[string]research.System{
			research.ScopeCorpus: research.NewCorpus(
				runtime.Storage,
				runtime.Config.Research.CorpusPrefix,
				runtime.Logger,
			),
			research.ScopeHistory: research.NewHistory(db, runtime.Logger),
		}),
		runtime.Config.Research.CacheTTLDuration(),
	)

	trackerSystem := tracker.NewREST(
		&runtime.Config.Tracker,
		tracker.NewPostgresRegistry(db),
		runtime.Logger,
	)

	executionsSystem := executions.New(
		db,
		runtime.Agent,
		&runtime.Config.Pipeline,
		runtime.Logger,
		runtime.Pagination,
		researchSystem,
		trackerSystem,
		promptsSystem,
	)

	return &Domain{
		Executions: executionsSystem,
		Prompts:    promptsSystem,
	}
}
