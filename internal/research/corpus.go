package research

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/refinery/pkg/storage"
)

const (
	// maxCorpusScan bounds how many blobs a single search will read.
	maxCorpusScan = 50
	// maxSourceBytes bounds how much of each blob is read for scoring.
	maxSourceBytes = 64 * 1024
	// maxSnippet bounds the content excerpt returned per source.
	maxSnippet = 1200
	// downloadWorkers bounds concurrent blob downloads per search.
	downloadWorkers = 4
)

// Corpus searches reference documents held in blob storage. Blobs are read,
// scored against the query by term overlap, and returned ranked by relevance.
// An unavailable or empty container yields an empty result rather than an
// error so callers can degrade gracefully.
type Corpus struct {
	store  storage.System
	prefix string
	logger *slog.Logger
}

// NewCorpus creates a corpus connector over the given storage system.
func NewCorpus(store storage.System, prefix string, logger *slog.Logger) *Corpus {
	return &Corpus{
		store:  store,
		prefix: prefix,
		logger: logger.With("system", "research.corpus"),
	}
}

func (c *Corpus) Search(ctx context.Context, query string, scope string, limit int) ([]Source, error) {
	keys, err := c.store.List(ctx, c.prefix, maxCorpusScan)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var sources []Source

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(downloadWorkers)

	for _, key := range keys {
		group.Go(func() error {
			content, err := c.read(gctx, key)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil
				}
				c.logger.WarnContext(gctx, "corpus blob read failed", "key", key, "error", err)
				return nil
			}

			score := relevance(query, content)
			if score <= 0 {
				return nil
			}

			mu.Lock()
			sources = append(sources, Source{
				Title:     path.Base(key),
				Content:   snippet(content),
				Relevance: score,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Relevance > sources[j].Relevance
	})

	return bounded(sources, limit), nil
}

func (c *Corpus) read(ctx context.Context, key string) (string, error) {
	body, err := c.store.Download(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxSourceBytes))
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func snippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxSnippet {
		return content
	}
	return content[:maxSnippet]
}
