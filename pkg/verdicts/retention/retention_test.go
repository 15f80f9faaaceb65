package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/verdicts"
	"mercator-hq/auditor/pkg/verdicts/storage"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// seedDaysAgo stores one record per age, in days before now.
func seedDaysAgo(t *testing.T, s verdicts.Storage, ages ...int) {
	t.Helper()
	for _, age := range ages {
		rec := &verdicts.Record{
			ID:        fmt.Sprintf("age-%03d", age),
			AuditedAt: now.AddDate(0, 0, -age),
			Category:  "Compliant",
		}
		if err := s.Store(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestPruner(s verdicts.Storage, cfg config.RetentionConfig, collector *metrics.Collector) *Pruner {
	p := NewPruner(s, cfg, collector, nil)
	p.now = func() time.Time { return now }
	return p
}

func remainingIDs(t *testing.T, s verdicts.Storage) []string {
	t.Helper()
	records, err := s.Query(context.Background(), &verdicts.Query{SortOrder: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.RetentionConfig
		wantDeleted int64
		wantLeft    []string
	}{
		{
			name:        "by age",
			cfg:         config.RetentionConfig{Days: 30},
			wantDeleted: 2,
			wantLeft:    []string{"age-010", "age-001"},
		},
		{
			name:        "keep forever",
			cfg:         config.RetentionConfig{Days: -1},
			wantDeleted: 0,
			wantLeft:    []string{"age-400", "age-090", "age-010", "age-001"},
		},
		{
			name:        "by count",
			cfg:         config.RetentionConfig{Days: -1, MaxRecords: 1},
			wantDeleted: 3,
			wantLeft:    []string{"age-001"},
		},
		{
			name:        "age then count",
			cfg:         config.RetentionConfig{Days: 100, MaxRecords: 2},
			wantDeleted: 2,
			wantLeft:    []string{"age-010", "age-001"},
		},
		{
			name:        "count within limit",
			cfg:         config.RetentionConfig{MaxRecords: 10},
			wantDeleted: 0,
			wantLeft:    []string{"age-400", "age-090", "age-010", "age-001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			seedDaysAgo(t, s, 400, 90, 10, 1)

			deleted, err := newTestPruner(s, tt.cfg, nil).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Prune() deleted = %d, want %d", deleted, tt.wantDeleted)
			}
			if got := remainingIDs(t, s); fmt.Sprint(got) != fmt.Sprint(tt.wantLeft) {
				t.Errorf("remaining = %v, want %v", got, tt.wantLeft)
			}
		})
	}
}

func TestPruner_Archive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	s := storage.NewMemoryStorage()
	seedDaysAgo(t, s, 400, 200, 1)

	p := newTestPruner(s, config.RetentionConfig{Days: 30, ArchivePath: dir}, nil)
	if _, err := p.Prune(context.Background()); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "verdicts-age-*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("archive files = %v, %v", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var archived []verdicts.Record
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not a JSON array: %v", err)
	}
	if len(archived) != 2 || archived[0].ID != "age-400" {
		t.Errorf("archived = %+v", archived)
	}
}

func TestPruner_Metrics(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true, Namespace: "test", Subsystem: "auditor"}
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg, registry)

	s := storage.NewMemoryStorage()
	seedDaysAgo(t, s, 400, 300, 1)
	if _, err := newTestPruner(s, config.RetentionConfig{Days: 30}, collector).Prune(context.Background()); err != nil {
		t.Fatal(err)
	}

	expected := `
# HELP test_auditor_verdicts_pruned_total Total number of stored verdicts removed by retention
# TYPE test_auditor_verdicts_pruned_total counter
test_auditor_verdicts_pruned_total 2
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_auditor_verdicts_pruned_total"); err != nil {
		t.Error(err)
	}
}

func TestPruner_Cutoff(t *testing.T) {
	if got := newTestPruner(nil, config.RetentionConfig{Days: -1}, nil).Cutoff(); !got.IsZero() {
		t.Errorf("Cutoff() = %v, want zero when keeping forever", got)
	}
	want := now.AddDate(0, 0, -7)
	if got := newTestPruner(nil, config.RetentionConfig{Days: 7}, nil).Cutoff(); !got.Equal(want) {
		t.Errorf("Cutoff() = %v, want %v", got, want)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	p := newTestPruner(storage.NewMemoryStorage(), config.RetentionConfig{Days: 30, PruneSchedule: "0 3 * * *"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Fatal("scheduler should be running")
	}
	next := p.NextPruning()
	if next == nil || next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextPruning() = %v, want 03:00", next)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}

	p.Stop()
	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("scheduler should be stopped")
	}
	if p.NextPruning() != nil {
		t.Error("NextPruning() should be nil when stopped")
	}
}

func TestScheduler_InvalidAndEmptySchedule(t *testing.T) {
	p := newTestPruner(storage.NewMemoryStorage(), config.RetentionConfig{PruneSchedule: "every day"}, nil)
	if err := p.Start(context.Background()); err == nil {
		t.Error("invalid schedule should fail")
	}

	p = newTestPruner(storage.NewMemoryStorage(), config.RetentionConfig{}, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Errorf("empty schedule should be a no-op, got %v", err)
	}
	if p.scheduler.IsRunning() {
		t.Error("empty schedule should not start the scheduler")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	p := newTestPruner(storage.NewMemoryStorage(), config.RetentionConfig{PruneSchedule: "@hourly"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for p.scheduler.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
