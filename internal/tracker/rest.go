package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type createPayload struct {
	Project   string   `json:"project"`
	Summary   string   `json:"summary"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Priority  string   `json:"priority"`
	IssueType string   `json:"issue_type"`
}

type createResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// REST creates records through the tracker's HTTP API. Each Create consults
// the registry first so retried or replayed submissions with the same
// idempotency key return the original record instead of creating another.
type REST struct {
	client   *http.Client
	registry Registry
	baseURL  string
	token    string
	project  string
	logger   *slog.Logger
}

// NewREST creates a tracker client from the given configuration.
func NewREST(cfg *Config, registry Registry, logger *slog.Logger) *REST {
	return &REST{
		client:   &http.Client{Timeout: cfg.TimeoutDuration()},
		registry: registry,
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		project:  cfg.Project,
		logger:   logger.With("system", "tracker"),
	}
}

func (r *REST) Create(ctx context.Context, record CreateRecord) (*RecordRef, error) {
	if record.IdempotencyKey == "" {
		return nil, ErrMissingKey
	}

	if ref, ok, err := r.registry.Lookup(ctx, record.IdempotencyKey); err != nil {
		return nil, err
	} else if ok {
		r.logger.InfoContext(
			ctx, "record already created for idempotency key",
			"idempotency_key", record.IdempotencyKey,
			"record_key", ref.Key,
		)
		return ref, nil
	}

	ref, err := r.post(ctx, record)
	if err != nil {
		return nil, err
	}

	if err := r.registry.Resolve(ctx, record.IdempotencyKey, *ref); err != nil {
		r.logger.WarnContext(
			ctx, "record created but registry resolve failed",
			"idempotency_key", record.IdempotencyKey,
			"record_key", ref.Key,
			"error", err,
		)
	}

	// Another instance may have won the key; return its record.
	if existing, ok, err := r.registry.Lookup(ctx, record.IdempotencyKey); err == nil && ok {
		return existing, nil
	}

	return ref, nil
}

func (r *REST) Annotate(ctx context.Context, key string, text string) error {
	if key == "" {
		return ErrMissingKey
	}
	return r.send(
		ctx, http.MethodPost,
		fmt.Sprintf("%s/api/records/%s/comments", r.baseURL, key),
		map[string]string{"text": text},
	)
}

func (r *REST) Update(ctx context.Context, key string, fields map[string]any) error {
	if key == "" {
		return ErrMissingKey
	}
	return r.send(
		ctx, http.MethodPatch,
		fmt.Sprintf("%s/api/records/%s", r.baseURL, key),
		fields,
	)
}

func (r *REST) send(ctx context.Context, method, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, detail)
	}
	return nil
}

func (r *REST) post(ctx context.Context, record CreateRecord) (*RecordRef, error) {
	payload := createPayload{
		Project:   r.project,
		Summary:   record.Summary,
		Body:      record.Body,
		Labels:    record.Labels,
		Priority:  record.Priority,
		IssueType: record.IssueType,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, r.baseURL+"/api/records", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", record.IdempotencyKey)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, detail)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if created.Key == "" {
		return nil, fmt.Errorf("%w: response missing record key", ErrRemote)
	}

	return &RecordRef{Key: created.Key, URL: created.URL}, nil
}
