package providers

import (
	"testing"
	"time"

	"mercator-hq/auditor/pkg/providers"
)

// TestConfigWithURL returns an adapter config pointing at baseURL with
// short timeouts and millisecond retry backoff.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             baseURL,
		APIKey:              "test-key",
		Timeout:             5 * time.Second,
		MaxRetries:          2,
		HealthCheckInterval: 20 * time.Millisecond,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
		Backoff:             time.Millisecond,
	}
}

// WaitForCondition polls condition until it is true or timeout elapses.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, message)
		}
		<-ticker.C
	}
}
