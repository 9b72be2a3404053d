package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/refinery/pkg/handlers"
	"github.com/JaimeStill/refinery/pkg/routes"
	"github.com/JaimeStill/refinery/pkg/storage"
)

// corpusHandler manages the reference document corpus that research-backed
// pipeline stages draw from.
type corpusHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newCorpusHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int32,
) *corpusHandler {
	return &corpusHandler{
		store:       store,
		logger:      logger.With("handler", "corpus"),
		maxListSize: maxListSize,
	}
}

func (h *corpusHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/corpus",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
			{Method: "PUT", Pattern: "/documents/{key...}", Handler: h.upload},
			{Method: "DELETE", Pattern: "/documents/{key...}", Handler: h.remove},
		},
	}
}

func (h *corpusHandler) list(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	max := h.maxListSize
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			handlers.RespondError(
				w, h.logger,
				http.StatusBadRequest,
				fmt.Errorf("invalid max_results: %q", v),
			)
			return
		}
		max = min(int32(n), h.maxListSize)
	}

	keys, err := h.store.List(r.Context(), prefix, max)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusInternalServerError, err,
		)
		return
	}

	if keys == nil {
		keys = []string{}
	}

	handlers.RespondJSON(w, http.StatusOK, keys)
}

func (h *corpusHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

func (h *corpusHandler) upload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	if err := h.store.Upload(r.Context(), key, r.Body, contentType); err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	h.logger.Info("corpus document uploaded", "key", key)
	handlers.RespondJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *corpusHandler) remove(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if err := h.store.Delete(r.Context(), key); err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	h.logger.Info("corpus document deleted", "key", key)
	handlers.RespondJSON(w, http.StatusNoContent, nil)
}
