// Package webhook posts change records as JSON to an HTTP endpoint, such as
// a dispatch board or a client portal. Requests carry the record id in an
// Idempotency-Key header so receivers can drop replays.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/droneops/core/model"
	"github.com/kilianp07/droneops/infra/logger"
)

// Config configures the webhook sink.
type Config struct {
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	TimeoutMS int               `json:"timeout_ms"`
	// Auth enables OAuth2 client credentials when set.
	Auth *AuthConfig `json:"auth"`
}

// Sink implements syncqueue.Sink over HTTP.
type Sink struct {
	url     string
	headers map[string]string
	client  *http.Client
	auth    *ClientCred
	log     logger.Logger
}

func New(cfg Config) (*Sink, error) {
	if cfg.URL == "" {
		return nil, model.Validationf("webhook: url is required")
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Sink{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
		log:     logger.New("webhook_sink"),
	}
	if cfg.Auth != nil {
		if cfg.Auth.TokenURL == "" {
			return nil, model.Validationf("webhook: auth.token_url is required")
		}
		s.auth = NewClientCred(*cfg.Auth)
	}
	return s, nil
}

func (s *Sink) Name() string { return "webhook" }

// Apply posts rec. A 401 forces one token refresh and retry.
func (s *Sink) Apply(ctx context.Context, rec model.ChangeRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	status, err := s.post(ctx, rec.ID, body)
	if err == nil && status == http.StatusUnauthorized && s.auth != nil {
		s.log.Warnf("webhook: token rejected, refreshing")
		if _, err := s.auth.ForceRefresh(ctx); err != nil {
			return fmt.Errorf("%w: %v", model.ErrSyncFailure, err)
		}
		status, err = s.post(ctx, rec.ID, body)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrSyncFailure, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: webhook returned status %d", model.ErrSyncFailure, status)
	}
	s.log.Debugf("webhook: delivered change %s", rec.ID)
	return nil
}

func (s *Sink) post(ctx context.Context, id string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", id)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if s.auth != nil {
		if err := s.auth.SetAuthHeader(ctx, req); err != nil {
			return 0, err
		}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
