package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy"
)

// maxGridBytes bounds a downloaded grid document.
const maxGridBytes = 8 << 20

// HTTPSource downloads the grid from a URL. It sends If-None-Match with the
// last ETag it saw and reports ErrNotModified on 304.
type HTTPSource struct {
	cfg    config.HTTPPolicyConfig
	client *http.Client

	mu   sync.Mutex
	etag string
}

// NewHTTPSource creates an HTTP source. A nil client gets one with
// cfg.Timeout.
func NewHTTPSource(cfg config.HTTPPolicyConfig, client *http.Client) *HTTPSource {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = config.DefaultPolicyHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSource{cfg: cfg, client: client}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http" }

// Describe implements Source.
func (s *HTTPSource) Describe() string { return s.cfg.URL }

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build grid request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	s.mu.Lock()
	etag := s.etag
	s.mu.Unlock()
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch grid %s: %w", s.cfg.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, ErrNotModified
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch grid %s: status %d: %s", s.cfg.URL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGridBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read grid body: %w", err)
	}
	if len(data) > maxGridBytes {
		return nil, fmt.Errorf("grid document exceeds %d bytes", maxGridBytes)
	}

	newTag := resp.Header.Get("ETag")
	s.mu.Lock()
	s.etag = newTag
	s.mu.Unlock()

	return &Snapshot{
		Data:      data,
		Format:    s.format(resp.Header.Get("Content-Type")),
		Version:   strings.Trim(newTag, `"`),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Reset implements Resetter.
func (s *HTTPSource) Reset() {
	s.mu.Lock()
	s.etag = ""
	s.mu.Unlock()
}

// format prefers the configured format, then the response content type,
// then the URL extension.
func (s *HTTPSource) format(contentType string) policy.Format {
	if s.cfg.Format != "" {
		return policy.Format(strings.ToLower(s.cfg.Format))
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") {
		return policy.FormatYAML
	}
	if strings.Contains(ct, "json") {
		return policy.FormatJSON
	}
	u := s.cfg.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return policy.FormatFromPath(u)
}
