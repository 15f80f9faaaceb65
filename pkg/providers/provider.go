package providers

import "context"

// Provider is implemented by every text-generation adapter.
//
// All methods accept a context.Context and must return promptly once it is
// cancelled.
type Provider interface {
	// SendCompletion sends a completion request and returns the normalized
	// response. Transient failures are retried with exponential backoff.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck sends a lightweight request to verify the provider is
	// reachable. It returns nil when the provider responds.
	HealthCheck(ctx context.Context) error

	// GetName returns the configured provider name (the key in the
	// providers config section).
	GetName() string

	// GetType returns the adapter type, e.g. "openai".
	GetType() string

	// IsHealthy reports the current health status.
	IsHealthy() bool

	// GetHealth returns detailed health information.
	GetHealth() ProviderHealth

	// Close releases HTTP connections and stops the health checker.
	Close() error
}
