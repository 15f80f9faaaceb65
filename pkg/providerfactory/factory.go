// Package providerfactory builds text-generation providers from the
// providers section of the configuration and manages their lifecycle.
package providerfactory

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/providers"
	"mercator-hq/auditor/pkg/providers/openai"
	"mercator-hq/auditor/pkg/telemetry/metrics"
)

// AdapterConfig converts a configuration entry to the adapter-level config.
// name is the entry's key in the providers map.
func AdapterConfig(name string, cfg config.ProviderConfig) providers.ProviderConfig {
	providerType := cfg.Type
	if providerType == "" {
		providerType = "openai"
	}
	return providers.ProviderConfig{
		Name:       name,
		Type:       providerType,
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}
}

// NewProvider creates the adapter for cfg.Type. Only "openai" is
// supported; it covers every OpenAI-compatible chat completions server.
// collector may be nil.
func NewProvider(cfg providers.ProviderConfig, collector *metrics.Collector, logger *slog.Logger) (providers.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case "", "openai":
		provider, err := openai.NewProvider(cfg, collector, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Name, err)
		}
		return provider, nil
	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type: %q (supported: openai)", cfg.Type),
		}
	}
}

// NewProviderWithHealthCheck creates a provider and starts its health
// checker, which runs until ctx is cancelled or the provider is closed.
func NewProviderWithHealthCheck(ctx context.Context, cfg providers.ProviderConfig, collector *metrics.Collector, logger *slog.Logger) (providers.Provider, error) {
	provider, err := NewProvider(cfg, collector, logger)
	if err != nil {
		return nil, err
	}

	type healthCheckStarter interface {
		StartHealthChecker(context.Context)
	}
	if hcs, ok := provider.(healthCheckStarter); ok {
		hcs.StartHealthChecker(ctx)
	}
	return provider, nil
}
