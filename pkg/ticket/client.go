package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mercator-hq/auditor/pkg/config"
)

const (
	// maxCommentPages bounds comment pagination.
	maxCommentPages = 50

	// maxBackoff caps the delay between retries, including Retry-After.
	maxBackoff = 30 * time.Second

	defaultBackoff = 500 * time.Millisecond
)

// Provider returns the audit context of a ticket.
type Provider interface {
	FetchContext(ctx context.Context, ticketID string) (*Context, error)
}

// Client reads tickets and comments from a Zendesk-compatible REST API.
// Transient failures (transport errors, 429, 5xx) are retried with
// exponential backoff.
type Client struct {
	cfg        config.TicketConfig
	baseURL    *url.URL
	httpClient *http.Client
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBackoff sets the first retry delay; later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a ticket API client.
func NewClient(cfg config.TicketConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ticket base_url %q", cfg.BaseURL)
	}

	c := &Client{
		cfg:     cfg,
		baseURL: base,
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = config.DefaultTicketTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "ticket.client")
	return c, nil
}

// FetchContext implements Provider.
func (c *Client) FetchContext(ctx context.Context, ticketID string) (*Context, error) {
	t, err := c.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := c.ListComments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return BuildContext(t, comments, c.cfg.Fields), nil
}

// GetTicket fetches a single ticket.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*Ticket, error) {
	if err := validateID(ticketID); err != nil {
		return nil, err
	}

	var body struct {
		Ticket *Ticket `json:"ticket"`
	}
	path := "/api/v2/tickets/" + ticketID + ".json"
	if err := c.getJSON(ctx, c.resolve(path, nil), path, &body); err != nil {
		return nil, notFound(err, ticketID)
	}
	if body.Ticket == nil {
		return nil, &APIError{Path: path, Message: `response has no "ticket" object`}
	}
	return body.Ticket, nil
}

// ListComments fetches every comment on a ticket, following next_page links.
func (c *Client) ListComments(ctx context.Context, ticketID string) ([]Comment, error) {
	if err := validateID(ticketID); err != nil {
		return nil, err
	}

	path := "/api/v2/tickets/" + ticketID + "/comments.json"
	query := url.Values{}
	if c.cfg.PageSize > 0 {
		query.Set("per_page", strconv.Itoa(c.cfg.PageSize))
	}
	next := c.resolve(path, query)

	var all []Comment
	for page := 0; next != ""; page++ {
		if page == maxCommentPages {
			c.logger.Warn("comment pagination truncated", "ticket_id", ticketID, "pages", page)
			break
		}

		var body struct {
			Comments []Comment `json:"comments"`
			NextPage *string   `json:"next_page"`
		}
		if err := c.getJSON(ctx, next, path, &body); err != nil {
			return nil, notFound(err, ticketID)
		}
		all = append(all, body.Comments...)

		next = ""
		if body.NextPage != nil && *body.NextPage != "" {
			u, err := url.Parse(*body.NextPage)
			if err != nil || u.Host != c.baseURL.Host {
				// Credentials are never sent to another host.
				return nil, &APIError{Path: path, Message: fmt.Sprintf("unexpected next_page %q", *body.NextPage)}
			}
			next = u.String()
		}
	}
	return all, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// getJSON performs a GET with retries and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, rawURL, path string, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, lastErr)
			c.logger.Debug("retrying ticket request", "path", path, "attempt", attempt, "backoff", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.doGet(ctx, rawURL, path, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return err
		}
		lastErr = err
		c.logger.Warn("ticket request failed, will retry", "path", path, "attempt", attempt+1, "error", err)
	}
	return lastErr
}

// retryAfterError carries a server-provided delay alongside the API error.
type retryAfterError struct {
	*APIError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.APIError }

func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	delay := c.backoff << (attempt - 1)
	var ra *retryAfterError
	if errors.As(lastErr, &ra) && ra.after > delay {
		delay = ra.after
	}
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}
	return delay
}

func (c *Client) doGet(ctx context.Context, rawURL, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Email != "" || c.cfg.APIToken != "" {
		req.SetBasicAuth(c.cfg.Email+"/token", c.cfg.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Path: path, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Path: path, Message: "invalid JSON response", Cause: err}
		}
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	message := strings.TrimSpace(string(msg))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: message}
	case http.StatusTooManyRequests:
		return &retryAfterError{
			APIError: &APIError{StatusCode: resp.StatusCode, Path: path, Message: message},
			after:    parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return &APIError{StatusCode: resp.StatusCode, Path: path, Message: message}
	}
}

func notFound(err error, ticketID string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return &NotFoundError{TicketID: ticketID}
	}
	return err
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("ticket id is required")
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return fmt.Errorf("ticket id %q is not numeric", id)
	}
	return nil
}

// parseRetryAfter parses delay-seconds or an HTTP date.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
