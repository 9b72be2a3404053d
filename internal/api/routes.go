package api

import (
	"net/http"

	"github.com/JaimeStill/refinery/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Executions.Handler().Routes(),
	)

	routes.Register(
		mux,
		domain.Prompts.Handler().Routes(),
	)

	corpus := newCorpusHandler(
		runtime.Storage,
		runtime.Logger,
		runtime.Config.Storage.MaxListSize,
	)
	routes.Register(mux, corpus.routes())
}
