package providers

import "time"

// Message is a single chat message.
type Message struct {
	// Role identifies the sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic completion request.
type CompletionRequest struct {
	// Model is the model identifier, e.g. "gpt-4o-mini"
	Model string `json:"model"`

	// Messages is the conversation sent to the model
	Messages []Message `json:"messages"`

	// Temperature controls randomness; 0 asks for the most deterministic reply
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the generated reply
	MaxTokens int `json:"max_tokens,omitempty"`

	// JSONResponse asks the provider to constrain the reply to a JSON object
	// where the API supports it.
	JSONResponse bool `json:"-"`
}

// CompletionResponse is a provider-agnostic completion response.
type CompletionResponse struct {
	// ID is the provider's response identifier
	ID string `json:"id"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Content is the generated text
	Content string `json:"content"`

	// FinishReason indicates why generation stopped (stop, length, content_filter)
	FinishReason string `json:"finish_reason"`

	// Usage contains token consumption
	Usage TokenUsage `json:"usage"`

	// Created is the Unix timestamp when the response was created
	Created int64 `json:"created"`
}

// ProviderHealth tracks the health status of a provider.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the time of the last request or health check
	LastCheck time.Time

	// LastError is the most recent error (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failures
	ConsecutiveFailures int

	// LastSuccessfulRequest is the time of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the number of HTTP attempts sent to this provider
	TotalRequests int64

	// FailedRequests is the number of failed HTTP attempts
	FailedRequests int64
}

// ProviderConfig is the adapter-level view of config.ProviderConfig.
type ProviderConfig struct {
	// Name is the provider key in the configuration
	Name string

	// Type is the adapter type
	Type string

	// BaseURL is the API base URL
	BaseURL string

	// APIKey is the authentication key
	APIKey string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// MaxRetries is the maximum number of retries for transient failures
	MaxRetries int

	// HealthCheckInterval is how often StartHealthChecker probes the provider
	HealthCheckInterval time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration

	// Backoff is the base retry delay, doubled on every attempt.
	// Default: 1s
	Backoff time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)
