package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/verdicts"
)

const defaultSheetsBackoff = 500 * time.Millisecond

// SheetsRow is the body posted to the spreadsheet proxy. Header and Row
// have the same length and order.
type SheetsRow struct {
	ID     string   `json:"id"`
	Header []string `json:"header"`
	Row    []string `json:"row"`
}

// sheetsReply is the optional JSON reply of the proxy.
type sheetsReply struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

// SheetsSink appends records to a spreadsheet through an HTTP proxy.
// 5xx and 429 responses and transport errors are retried with exponential
// backoff; a 2xx reply of {"ok": false} is a permanent failure.
type SheetsSink struct {
	cfg     config.SheetsConfig
	client  *http.Client
	backoff time.Duration
	logger  *slog.Logger
}

// SheetsOption configures a SheetsSink.
type SheetsOption func(*SheetsSink)

// WithSheetsHTTPClient replaces the default HTTP client.
func WithSheetsHTTPClient(hc *http.Client) SheetsOption {
	return func(s *SheetsSink) { s.client = hc }
}

// WithSheetsBackoff sets the first retry delay; later retries double it.
func WithSheetsBackoff(d time.Duration) SheetsOption {
	return func(s *SheetsSink) { s.backoff = d }
}

// WithSheetsLogger sets the sink logger.
func WithSheetsLogger(l *slog.Logger) SheetsOption {
	return func(s *SheetsSink) { s.logger = l }
}

// NewSheetsSink creates a spreadsheet sink.
func NewSheetsSink(cfg config.SheetsConfig, opts ...SheetsOption) (*SheetsSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("sheets sink url is required")
	}
	if cfg.SecretHeader == "" {
		cfg.SecretHeader = config.DefaultSheetsSecretHeader
	}
	s := &SheetsSink{cfg: cfg, backoff: defaultSheetsBackoff}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: cfg.Timeout}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "sink.sheets")
	return s, nil
}

// Name implements Sink.
func (s *SheetsSink) Name() string { return "sheets" }

// Write implements Sink.
func (s *SheetsSink) Write(ctx context.Context, rec *verdicts.Record) error {
	body, err := json.Marshal(SheetsRow{ID: rec.ID, Header: verdicts.Header(), Row: rec.Row()})
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff << (attempt - 1)
			s.logger.Debug("retrying spreadsheet write", "attempt", attempt, "backoff", delay, "record_id", rec.ID)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = s.post(ctx, body)
		if lastErr == nil {
			s.logger.Debug("row appended", "record_id", rec.ID, "attempts", attempt+1)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			return lastErr
		}
		var rejected *RejectedError
		if errors.As(lastErr, &rejected) {
			return lastErr
		}
		s.logger.Warn("spreadsheet write failed", "attempt", attempt+1, "error", lastErr)
	}
	return lastErr
}

func (s *SheetsSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.cfg.Secret != "" {
		req.Header.Set(s.cfg.SecretHeader, s.cfg.Secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	// Proxies that answer with plain text are accepted as written.
	var reply sheetsReply
	if json.Unmarshal(data, &reply) == nil && reply.OK != nil && !*reply.OK {
		return &RejectedError{Message: reply.Error}
	}
	return nil
}
