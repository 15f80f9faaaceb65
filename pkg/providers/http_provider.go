package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/telemetry/metrics"
)

// unhealthyThreshold is the number of consecutive failures that marks a
// provider unhealthy.
const unhealthyThreshold = 3

// HTTPProvider is the base for HTTP adapters. It provides connection
// pooling, retries, typed errors, health tracking and request metrics.
// Adapters embed it and implement SendCompletion.
type HTTPProvider struct {
	config    ProviderConfig
	client    *http.Client
	collector *metrics.Collector
	logger    *slog.Logger

	health   ProviderHealth
	healthMu sync.RWMutex

	// healthURL is probed by HealthCheck; adapters may override it.
	healthURL string

	closeOnce          sync.Once
	stopHealthCheck    chan struct{}
	healthCheckStopped chan struct{}
	checkerStarted     bool
}

// NewHTTPProvider creates the HTTP base for an adapter. collector may be nil.
func NewHTTPProvider(config ProviderConfig, collector *metrics.Collector, logger *slog.Logger) *HTTPProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Backoff <= 0 {
		config.Backoff = time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	now := time.Now()
	return &HTTPProvider{
		config:    config,
		client:    &http.Client{Transport: transport, Timeout: config.Timeout},
		collector: collector,
		logger:    logger.With("component", "provider", "provider", config.Name),
		health: ProviderHealth{
			IsHealthy:             true,
			LastCheck:             now,
			LastSuccessfulRequest: now,
		},
		healthURL:          config.BaseURL,
		stopHealthCheck:    make(chan struct{}),
		healthCheckStopped: make(chan struct{}),
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the provider's type.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// Logger returns the provider's logger.
func (p *HTTPProvider) Logger() *slog.Logger {
	return p.logger
}

// SetHealthURL sets the URL probed by HealthCheck.
func (p *HTTPProvider) SetHealthURL(url string) {
	p.healthURL = url
}

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns detailed health information.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

func (p *HTTPProvider) updateHealth(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.LastCheck = time.Now()
	if success {
		if !p.health.IsHealthy {
			p.logger.Info("provider marked healthy", "previous_failures", p.health.ConsecutiveFailures)
		}
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = p.health.LastCheck
		return
	}

	p.health.ConsecutiveFailures++
	p.health.LastError = err
	if p.health.ConsecutiveFailures >= unhealthyThreshold && p.health.IsHealthy {
		p.health.IsHealthy = false
		p.logger.Warn("provider marked unhealthy",
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

func (p *HTTPProvider) recordAttempt(success bool) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.TotalRequests++
	if !success {
		p.health.FailedRequests++
	}
}

// RecordCompletion records the outcome of a completion in the metrics
// collector. Adapters call it once per SendCompletion.
func (p *HTTPProvider) RecordCompletion(model string, start time.Time, tokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
		p.collector.RecordProviderError(p.config.Name, ErrorType(err))
	}
	p.collector.RecordProviderRequest(p.config.Name, model, status, time.Since(start), tokens)
}

// DoRequest performs an HTTP request, retrying network errors and 5xx
// responses with exponential backoff. The caller closes the response body.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.config.Backoff << (attempt - 1)
			p.logger.Debug("retrying request",
				"attempt", attempt,
				"max_retries", p.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			p.recordAttempt(false)
			if ctx.Err() != nil {
				p.updateHealth(false, err)
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctx.Err()}
			}
			p.logger.Warn("request failed, will retry", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.recordAttempt(true)
			p.updateHealth(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		p.recordAttempt(false)

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			authErr := &AuthError{Provider: p.config.Name, Message: string(errorBody)}
			p.updateHealth(false, authErr)
			return nil, authErr

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   p.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest:
			return nil, &ProviderError{
				Provider:   p.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
		}

		lastErr = &ProviderError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
		if resp.StatusCode < 500 {
			break
		}
		p.logger.Warn("request returned error status, will retry",
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	p.updateHealth(false, lastErr)
	if _, ok := lastErr.(*ProviderError); !ok {
		lastErr = &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: lastErr}
	}
	return nil, lastErr
}

// DoJSONRequest marshals reqBody, performs the request and decodes the
// response into respBody.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: p.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}
	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    p.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}
	return nil
}

// Close stops the health checker and closes idle connections. It is safe
// to call more than once.
func (p *HTTPProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopHealthCheck)
		p.healthMu.RLock()
		started := p.checkerStarted
		p.healthMu.RUnlock()
		if started {
			select {
			case <-p.healthCheckStopped:
			case <-time.After(5 * time.Second):
				p.logger.Warn("health checker did not stop in time")
			}
		}
		p.client.CloseIdleConnections()
		p.logger.Debug("provider closed")
	})
	return nil
}

// parseRetryAfter parses a Retry-After header in delay-seconds or
// HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
