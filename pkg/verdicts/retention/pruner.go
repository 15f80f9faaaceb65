package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/verdicts"
	"mercator-hq/auditor/pkg/verdicts/export"
)

// Pruner enforces the retention policy on verdict records.
type Pruner struct {
	storage   verdicts.Storage
	config    config.RetentionConfig
	collector *metrics.Collector
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a pruner. collector may be nil.
func NewPruner(storage verdicts.Storage, cfg config.RetentionConfig, collector *metrics.Collector, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pruner{
		storage:   storage,
		config:    cfg,
		collector: collector,
		logger:    logger.With("component", "verdicts.retention"),
		now:       time.Now,
	}
	p.scheduler = NewScheduler(p, logger)
	return p
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords. A negative or zero Days disables the age rule
// and a zero MaxRecords disables the count rule. It returns the total
// number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned records by age", "deleted_count", deleted, "retention_days", p.config.Days)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned records by count", "deleted_count", deleted, "max_records", p.config.MaxRecords)
	}

	p.collector.RecordVerdictsPruned(total)
	if total > 0 {
		p.logger.Info("verdict pruning completed",
			"total_deleted", total,
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

// Cutoff returns the oldest audit time kept by the age rule, or the zero
// time when the rule is disabled.
func (p *Pruner) Cutoff() time.Time {
	if p.config.Days <= 0 {
		return time.Time{}
	}
	return p.now().AddDate(0, 0, -p.config.Days)
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.Cutoff()
	query := &verdicts.Query{Until: &cutoff}

	if p.config.ArchivePath != "" {
		records, err := p.collect(ctx, query)
		if err != nil {
			return 0, verdicts.NewRetentionError(p.config.Days, err)
		}
		if err := p.archive(ctx, "age", records); err != nil {
			return 0, verdicts.NewRetentionError(p.config.Days, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, verdicts.NewRetentionError(p.config.Days, err)
	}
	return deleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &verdicts.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	excess := count - p.config.MaxRecords
	if excess > verdicts.MaxLimit {
		// Larger backlogs are cleared over several runs.
		excess = verdicts.MaxLimit
	}

	oldest, err := p.storage.Query(ctx, &verdicts.Query{
		SortBy:    "audited_at",
		SortOrder: "asc",
		Limit:     int(excess),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	if p.config.ArchivePath != "" {
		if err := p.archive(ctx, "count", oldest); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	// Records sharing the cutoff timestamp are deleted together.
	cutoff := oldest[len(oldest)-1].AuditedAt
	deleted, err := p.storage.Delete(ctx, &verdicts.Query{Until: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

func (p *Pruner) collect(ctx context.Context, query *verdicts.Query) ([]*verdicts.Record, error) {
	var all []*verdicts.Record
	for offset := 0; ; offset += verdicts.MaxLimit {
		q := *query
		q.SortOrder = "asc"
		q.Limit = verdicts.MaxLimit
		q.Offset = offset
		page, err := p.storage.Query(ctx, &q)
		if err != nil {
			return nil, fmt.Errorf("failed to query records for archiving: %w", err)
		}
		all = append(all, page...)
		if len(page) < verdicts.MaxLimit {
			return all, nil
		}
	}
}

// archive writes records to a timestamped JSON file in ArchivePath.
func (p *Pruner) archive(ctx context.Context, rule string, records []*verdicts.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("verdicts-%s-%s.json", rule, p.now().UTC().Format("2006-01-02-150405"))
	path := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export records to archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}

	p.logger.Info("verdict records archived", "archive_file", path, "record_count", len(records))
	return nil
}

// Start starts the cron scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the cron scheduler and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
