package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/auditor/pkg/audit"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy/manager"
	"mercator-hq/auditor/pkg/policy/source"
	"mercator-hq/auditor/pkg/providerfactory"
	"mercator-hq/auditor/pkg/review"
	"mercator-hq/auditor/pkg/sink"
	"mercator-hq/auditor/pkg/telemetry/health"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/ticket"
	"mercator-hq/auditor/pkg/verdicts"
	"mercator-hq/auditor/pkg/verdicts/recorder"
	"mercator-hq/auditor/pkg/verdicts/retention"
	"mercator-hq/auditor/pkg/verdicts/storage"
)

// appOptions selects which collaborators newApp builds.
type appOptions struct {
	// skipSinks builds an audit service that forwards records nowhere.
	skipSinks bool
}

// app holds the long-lived components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	registry  *prometheus.Registry
	collector *metrics.Collector

	policy    *manager.Manager
	storage   verdicts.Storage
	recorder  *recorder.Recorder
	pruner    *retention.Pruner
	providers *providerfactory.Manager
	tickets   *ticket.Client
	service   *audit.Service
}

// newApp wires the audit pipeline from cfg. It does not load the grid; call
// a.policy.Load before auditing.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, a.registry)

	src, err := source.New(ctx, cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create grid source: %w", err)
	}
	if a.policy, err = manager.New(cfg.Policy, src, a.collector, logger); err != nil {
		return nil, fmt.Errorf("failed to create grid manager: %w", err)
	}

	serviceOpts := []audit.Option{audit.WithCollector(a.collector), audit.WithLogger(logger)}

	if cfg.Verdicts.Enabled {
		if a.storage, err = storage.Open(cfg.Verdicts, logger); err != nil {
			return nil, fmt.Errorf("failed to open verdict storage: %w", err)
		}
		a.recorder = recorder.NewRecorder(a.storage, cfg.Verdicts.Recorder, logger)
		a.pruner = retention.NewPruner(a.storage, cfg.Verdicts.Retention, a.collector, logger)
	}

	if !opts.skipSinks {
		var sinks []sink.Sink
		if a.recorder != nil {
			sinks = append(sinks, sink.NewStoreSink(a.recorder))
		}
		if cfg.Sinks.Sheets.Enabled {
			sheets, err := sink.NewSheetsSink(cfg.Sinks.Sheets, sink.WithSheetsLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("failed to create sheets sink: %w", err)
			}
			sinks = append(sinks, sheets)
		}
		serviceOpts = append(serviceOpts, audit.WithSinks(sinks...))
	}

	if cfg.Review.Enabled {
		a.providers = providerfactory.NewManager(a.collector, logger)
		if err := a.providers.LoadFromConfig(cfg.Providers); err != nil {
			return nil, fmt.Errorf("failed to load review providers: %w", err)
		}
		provider, err := a.providers.GetProvider(cfg.Review.Provider)
		if err != nil {
			return nil, fmt.Errorf("review provider: %w", err)
		}
		serviceOpts = append(serviceOpts, audit.WithReviewer(review.NewReviewer(provider, cfg.Review, logger)))
	}

	a.tickets, err = ticket.NewClient(cfg.Ticket, ticket.WithLogger(logger))
	switch {
	case errors.Is(err, ticket.ErrNotConfigured):
		logger.Info("ticket system not configured, only input audits are available")
	case err != nil:
		return nil, fmt.Errorf("failed to create ticket client: %w", err)
	default:
		serviceOpts = append(serviceOpts, audit.WithTickets(a.tickets))
	}

	if a.service, err = audit.NewService(a.policy, cfg.Audit, serviceOpts...); err != nil {
		return nil, err
	}
	return a, nil
}

// healthChecker registers readiness checks for the grid and, when enabled,
// verdict storage.
func (a *app) healthChecker() *health.Checker {
	checker := health.New(a.cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("policy", a.policy.ReadyCheck)
	if p, ok := a.storage.(health.Pinger); ok {
		checker.RegisterCheck("verdicts", health.PingCheck(p))
	}
	return checker
}

// Close flushes pending records and releases every component. It is safe
// on a partially built app.
func (a *app) Close() error {
	var errs []error
	if a.pruner != nil {
		a.pruner.Stop()
	}
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	if a.providers != nil {
		errs = append(errs, a.providers.Close())
	}
	if a.policy != nil {
		errs = append(errs, a.policy.Close())
	}
	return errors.Join(errs...)
}
