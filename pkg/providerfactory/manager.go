package providerfactory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/providers"
	"mercator-hq/auditor/pkg/telemetry/metrics"
)

// Manager owns the configured providers and their health checkers.
// It is safe for concurrent use.
type Manager struct {
	providers map[string]providers.Provider
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewManager creates an empty manager. collector may be nil.
func NewManager(collector *metrics.Collector, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		providers: make(map[string]providers.Provider),
		ctx:       ctx,
		cancel:    cancel,
		collector: collector,
		logger:    logger.With("component", "providers"),
	}
}

// AddProvider creates a provider with health checking and registers it,
// closing any provider previously registered under the same name.
func (m *Manager) AddProvider(cfg providers.ProviderConfig) error {
	provider, err := NewProviderWithHealthCheck(m.ctx, cfg, m.collector, m.logger)
	if err != nil {
		return fmt.Errorf("failed to add provider %q: %w", cfg.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.providers[cfg.Name]; ok {
		m.logger.Warn("replacing existing provider", "name", cfg.Name)
		existing.Close()
	}
	m.providers[cfg.Name] = provider

	m.logger.Info("provider added",
		"name", cfg.Name,
		"type", provider.GetType(),
		"total_providers", len(m.providers),
	)
	return nil
}

// LoadFromConfig registers every entry of the providers config section.
// All entries are attempted; the returned error joins the failures.
func (m *Manager) LoadFromConfig(configs map[string]config.ProviderConfig) error {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := m.AddProvider(AdapterConfig(name, configs[name])); err != nil {
			m.logger.Error("failed to load provider", "name", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetProvider returns a provider by name.
func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found", name)
	}
	return provider, nil
}

// GetProviderNames returns the registered names in sorted order.
func (m *Manager) GetProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the number of registered providers.
func (m *Manager) ProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// Close stops the health checkers and closes every provider.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()
	var errs []error
	for name, provider := range m.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	m.providers = make(map[string]providers.Provider)
	return errors.Join(errs...)
}

// GetHealthSummary returns the health of every registered provider.
func (m *Manager) GetHealthSummary() HealthSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := HealthSummary{
		Total:   len(m.providers),
		Details: make(map[string]providers.ProviderHealth, len(m.providers)),
	}
	for name, provider := range m.providers {
		health := provider.GetHealth()
		summary.Details[name] = health
		if health.IsHealthy {
			summary.Healthy++
		}
	}
	summary.Unhealthy = summary.Total - summary.Healthy
	return summary
}

// HealthSummary is an overview of provider health.
type HealthSummary struct {
	Total     int
	Healthy   int
	Unhealthy int
	Details   map[string]providers.ProviderHealth
}
