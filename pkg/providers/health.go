package providers

import (
	"context"
	"time"
)

const (
	defaultHealthCheckInterval = 30 * time.Second
	maxHealthCheckBackoff      = 5 * time.Minute
	healthCheckTimeout         = 5 * time.Second
)

// StartHealthChecker probes the provider periodically until ctx is
// cancelled or the provider is closed. While the provider is unhealthy the
// interval grows with the number of consecutive failures.
func (p *HTTPProvider) StartHealthChecker(ctx context.Context) {
	p.healthMu.Lock()
	if p.checkerStarted {
		p.healthMu.Unlock()
		return
	}
	p.checkerStarted = true
	p.healthMu.Unlock()

	go p.runHealthChecker(ctx)
}

func (p *HTTPProvider) runHealthChecker(ctx context.Context) {
	defer close(p.healthCheckStopped)

	interval := p.config.HealthCheckInterval
	if interval <= 0 {
		interval = defaultHealthCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Debug("health checker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopHealthCheck:
			return
		case <-ticker.C:
			p.performHealthCheck(ctx)
			if p.IsHealthy() {
				ticker.Reset(interval)
				continue
			}
			next := calculateBackoff(p.GetHealth().ConsecutiveFailures, interval)
			ticker.Reset(next)
			p.logger.Debug("health check backoff", "next_check_in", next)
		}
	}
}

func (p *HTTPProvider) performHealthCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := p.HealthCheck(checkCtx); err != nil {
		p.logger.Warn("health check failed", "error", err, "latency", time.Since(start))
		return
	}
	p.logger.Debug("health check passed", "latency", time.Since(start))
}

// calculateBackoff returns base * 2^failures, capped at 10x base and at
// five minutes.
func calculateBackoff(consecutiveFailures int, base time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return base
	}
	multiplier := 10
	if consecutiveFailures < 4 {
		multiplier = 1 << uint(consecutiveFailures)
	}
	backoff := base * time.Duration(multiplier)
	if backoff > maxHealthCheckBackoff {
		backoff = maxHealthCheckBackoff
	}
	return backoff
}

// HealthCheck sends a GET to the health URL (the base URL unless the
// adapter set another). Any 2xx response is healthy. DoRequest updates the
// health status.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	headers := make(map[string]string)
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}
	resp, err := p.DoRequest(ctx, "GET", p.healthURL, nil, headers)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
