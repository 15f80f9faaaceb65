package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/policy/source"
	"mercator-hq/auditor/pkg/telemetry/metrics"
)

// Manager owns the active decision grid. Loads are serialized; readers get
// the table through an atomic pointer, so an audit keeps the snapshot it
// started with while a reload swaps in the next one.
type Manager struct {
	config   config.PolicyConfig
	source   source.Source
	metrics  *metrics.Collector
	logger   *slog.Logger
	debounce time.Duration

	table  atomic.Pointer[policy.Table]
	report atomic.Pointer[policy.LoadReport]

	// loadMu serializes load attempts.
	loadMu sync.Mutex

	mu          sync.RWMutex
	lastAttempt time.Time
	lastErr     error
	listeners   []func(ReloadEvent)

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// New creates a manager over src. collector may be nil.
func New(cfg config.PolicyConfig, src source.Source, collector *metrics.Collector, logger *slog.Logger) (*Manager, error) {
	if src == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config:   cfg,
		source:   src,
		metrics:  collector,
		logger:   logger.With("component", "policy.manager", "source", src.Describe()),
		debounce: DefaultDebounceInterval,
	}, nil
}

// SetDebounce overrides the file watcher quiet period. It must be called
// before Watch.
func (m *Manager) SetDebounce(d time.Duration) {
	m.debounce = d
}

// OnReload registers fn to run after every load attempt. Listeners run on
// the loading goroutine and must not call Load.
func (m *Manager) OnReload(fn func(ReloadEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Source returns the grid source.
func (m *Manager) Source() source.Source {
	return m.source
}

// Current returns the active table, or nil before the first successful load.
func (m *Manager) Current() *policy.Table {
	return m.table.Load()
}

// Report returns the parse report of the active table.
func (m *Manager) Report() *policy.LoadReport {
	return m.report.Load()
}

// Load fetches and parses the grid and installs it. On failure the previous
// table stays active and a *LoadError is returned.
func (m *Manager) Load(ctx context.Context) error {
	return m.reload(ctx, TriggerManual).Err
}

func (m *Manager) reload(ctx context.Context, trigger ReloadTrigger) ReloadEvent {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	start := time.Now()
	event := ReloadEvent{Trigger: trigger}

	table, report, err := source.Load(ctx, m.source)
	event.Report = report

	switch {
	case errors.Is(err, source.ErrNotModified):
		if current := m.Current(); current != nil {
			event.Version = current.Version()
			event.Rows = current.Len()
			m.logger.Debug("decision grid unchanged", "trigger", trigger.String(), "version", event.Version)
			return m.finish(event, start)
		}
		// A revision was cached without a table to show for it.
		m.resetSource()
		table, report, err = source.Load(ctx, m.source)
		event.Report = report
	}

	if err == nil && m.config.Strict && report != nil && len(report.Quarantined) > 0 {
		err = &StrictError{Quarantined: report.Quarantined}
	}

	if err != nil {
		// The source may have recorded a revision for a document we rejected.
		m.resetSource()

		event.Err = &LoadError{Source: m.source.Describe(), Cause: err}
		m.metrics.RecordPolicyLoad(m.source.Name(), err, time.Since(start))

		if current := m.Current(); current != nil {
			event.Version = current.Version()
			event.Rows = current.Len()
			m.logger.Error("decision grid reload failed, keeping previous table",
				"trigger", trigger.String(),
				"version", event.Version,
				"error", err,
			)
		} else {
			m.logger.Error("decision grid load failed", "trigger", trigger.String(), "error", err)
		}
		return m.finish(event, start)
	}

	m.table.Store(table)
	m.report.Store(report)

	event.Changed = true
	event.Version = table.Version()
	event.Rows = table.Len()

	m.metrics.RecordPolicyLoad(m.source.Name(), nil, time.Since(start))
	m.metrics.UpdatePolicyTable(table.Len(), len(report.Quarantined), len(report.Warnings))

	for _, issue := range report.Quarantined {
		m.logger.Warn("grid row quarantined", "row", issue.Index, "l1", issue.L1, "l2", issue.L2, "reason", issue.Reason)
	}
	for _, issue := range report.Warnings {
		m.logger.Warn("grid row warning", "row", issue.Index, "l1", issue.L1, "l2", issue.L2, "reason", issue.Reason)
	}

	m.logger.Info("decision grid loaded",
		"trigger", trigger.String(),
		"version", event.Version,
		"rows", event.Rows,
		"quarantined", len(report.Quarantined),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return m.finish(event, start)
}

func (m *Manager) finish(event ReloadEvent, start time.Time) ReloadEvent {
	event.Duration = time.Since(start)
	event.Timestamp = time.Now().UTC()

	m.mu.Lock()
	m.lastAttempt = event.Timestamp
	m.lastErr = event.Err
	listeners := append([]func(ReloadEvent){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
	return event
}

func (m *Manager) resetSource() {
	if r, ok := m.source.(source.Resetter); ok {
		r.Reset()
	}
}

// LastError returns the error of the most recent load attempt.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Status summarizes the active table and the last attempt.
func (m *Manager) Status() Status {
	m.mu.RLock()
	status := Status{
		Source:      m.source.Describe(),
		LastAttempt: m.lastAttempt,
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	if table := m.Current(); table != nil {
		status.Version = table.Version()
		status.Rows = table.Len()
		status.LoadedAt = table.LoadedAt()
	}
	status.Report = m.Report()
	return status
}

// ReadyCheck reports ErrNoTable until a grid has been loaded. It matches
// health.CheckFunc.
func (m *Manager) ReadyCheck(ctx context.Context) error {
	if m.Current() == nil {
		return ErrNoTable
	}
	return nil
}

// Watch reloads the grid until ctx is cancelled or Close is called. File
// sources reload on filesystem events; other sources are polled every
// policy.poll_interval.
func (m *Manager) Watch(ctx context.Context) error {
	if !m.config.Watch {
		return ErrWatchDisabled
	}

	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return ErrWatchRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchMu.Unlock()

	defer func() {
		m.watchMu.Lock()
		m.watchCancel = nil
		m.watchMu.Unlock()
		cancel()
	}()

	if fs, ok := m.source.(*source.FileSource); ok {
		return m.watchFile(ctx, fs.Path())
	}
	return m.poll(ctx)
}

func (m *Manager) watchFile(ctx context.Context, path string) error {
	watcher, err := NewFileWatcher(path, m.debounce, m.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			m.logger.Error("failed to stop grid file watcher", "error", err)
		}
	}()

	return watcher.Watch(ctx, func() {
		m.reload(ctx, TriggerFileEvent)
	})
}

func (m *Manager) poll(ctx context.Context) error {
	interval := m.config.PollInterval
	if interval <= 0 {
		interval = config.DefaultPolicyPollInterval
	}

	m.logger.Info("polling decision grid", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.reload(ctx, TriggerPoll)
		}
	}
}

// Close stops an active watch loop.
func (m *Manager) Close() error {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watchCancel != nil {
		m.watchCancel()
	}
	return nil
}
