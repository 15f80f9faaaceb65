package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/verdicts"
	"mercator-hq/auditor/pkg/verdicts/storage"
)

func resetQueryFlags() {
	queryFlags.filterFlags = filterFlags{}
	queryFlags.limit = 0
	queryFlags.offset = 0
	queryFlags.format = "text"
}

func resetExportFlags() {
	exportFlags.filterFlags = filterFlags{}
	exportFlags.format = "csv"
	exportFlags.output = "-"
	exportFlags.progress = false
}

// seedVerdicts stores three records: two recent, one a year old.
func seedVerdicts(t *testing.T, cfgPath string) {
	t.Helper()
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.Open(cfg.Verdicts, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	now := time.Now().UTC().Truncate(time.Second)
	records := []*verdicts.Record{
		{ID: "r1", TicketID: "100", BookingRef: "BK-1", AuditedAt: now.Add(-time.Hour), AuditDate: now.Format(time.DateOnly),
			Category: "Compliant", ValueTier: "<=125", Outcome: "Match", L1Reason: "Refund requested", L2Reason: "Partial refund approved"},
		{ID: "r2", TicketID: "200", BookingRef: "BK-2", AuditedAt: now.Add(-2 * time.Hour), AuditDate: now.Format(time.DateOnly),
			Category: "Non-Compliant", ValueTier: ">125", Outcome: "More Severe", L1Reason: "Tour cancelled", L2Reason: "Weather"},
		{ID: "r3", TicketID: "300", BookingRef: "BK-3", AuditedAt: now.AddDate(-1, 0, -1), AuditDate: now.AddDate(-1, 0, -1).Format(time.DateOnly),
			Category: "Non-Compliant", ValueTier: "unknown", Outcome: "Match", L1Reason: "Unknown", L2Reason: "Default"},
	}
	for _, rec := range records {
		if err := store.Store(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
}

func TestQueryVerdicts(t *testing.T) {
	cfgPath := writeConfig(t, "grid.json", "")
	useConfig(t, cfgPath)
	seedVerdicts(t, cfgPath)

	tests := []struct {
		name      string
		setup     func()
		wantIDs   []string
		wantTotal int64
		wantCode  int
	}{
		{name: "all newest first", setup: func() {}, wantIDs: []string{"r1", "r2", "r3"}, wantTotal: 3},
		{name: "category filter", setup: func() { queryFlags.category = "Non-Compliant" }, wantIDs: []string{"r2", "r3"}, wantTotal: 2},
		{name: "paginated", setup: func() { queryFlags.limit = 1; queryFlags.offset = 1 }, wantIDs: []string{"r2"}, wantTotal: 3},
		{name: "oldest first", setup: func() { queryFlags.sortOrder = "asc"; queryFlags.limit = 1 }, wantIDs: []string{"r3"}, wantTotal: 3},
		{name: "since", setup: func() { queryFlags.since = time.Now().UTC().AddDate(0, -1, 0).Format(time.DateOnly) }, wantIDs: []string{"r1", "r2"}, wantTotal: 2},
		{name: "bad since", setup: func() { queryFlags.since = "last week" }, wantCode: cli.ExitConfig},
		{name: "limit above max", setup: func() { queryFlags.limit = 20000 }, wantCode: cli.ExitConfig},
		{name: "bad sort field", setup: func() { queryFlags.sortBy = "explanation" }, wantCode: cli.ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetQueryFlags()
			queryFlags.format = "json"
			tt.setup()

			cmd, buf := newTestCmd()
			err := queryVerdicts(cmd, nil)
			if tt.wantCode != cli.ExitOK {
				if got := cli.ExitCode(err); got != tt.wantCode {
					t.Fatalf("exit code = %d, want %d (err: %v)", got, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("queryVerdicts() error = %v", err)
			}

			var got recordList
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON output: %v", err)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.Total, tt.wantTotal)
			}
			var ids []string
			for _, r := range got.Records {
				ids = append(ids, r.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestQueryVerdictsText(t *testing.T) {
	cfgPath := writeConfig(t, "grid.json", "")
	useConfig(t, cfgPath)
	seedVerdicts(t, cfgPath)
	resetQueryFlags()
	queryFlags.bookingRef = "BK-2"

	cmd, buf := newTestCmd()
	if err := queryVerdicts(cmd, nil); err != nil {
		t.Fatalf("queryVerdicts() error = %v", err)
	}
	for _, want := range []string{"BOOKING", "BK-2", "More Severe", "Tour cancelled / Weather", "1 of 1 record(s)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestQueryVerdictsDisabled(t *testing.T) {
	useConfig(t, writeConfig(t, "grid.json", "  enabled: false\n"))
	resetQueryFlags()

	cmd, _ := newTestCmd()
	if err := queryVerdicts(cmd, nil); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("queryVerdicts() error = %v, want config error", err)
	}
}

func TestExportVerdicts(t *testing.T) {
	cfgPath := writeConfig(t, "grid.json", "")
	useConfig(t, cfgPath)
	seedVerdicts(t, cfgPath)

	t.Run("csv to stdout", func(t *testing.T) {
		resetExportFlags()
		exportFlags.category = "Non-Compliant"

		cmd, buf := newTestCmd()
		if err := exportVerdicts(cmd, nil); err != nil {
			t.Fatalf("exportVerdicts() error = %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want header + 2:\n%s", len(lines), buf.String())
		}
		if !strings.HasPrefix(lines[0], "Booking Ref,Audit Date,Category") {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.HasPrefix(lines[1], "BK-2,") {
			t.Errorf("first row = %q", lines[1])
		}
	})

	t.Run("jsonl to file with progress", func(t *testing.T) {
		resetExportFlags()
		exportFlags.format = "jsonl"
		exportFlags.output = filepath.Join(t.TempDir(), "verdicts.jsonl")
		exportFlags.progress = true

		cmd, buf := newTestCmd()
		if err := exportVerdicts(cmd, nil); err != nil {
			t.Fatalf("exportVerdicts() error = %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("stdout should be empty when writing a file, got %q", buf.String())
		}

		f, err := os.Open(exportFlags.output)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		var ids []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var rec verdicts.Record
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
			}
			ids = append(ids, rec.ID)
		}
		if strings.Join(ids, ",") != "r1,r2,r3" {
			t.Errorf("exported ids = %v", ids)
		}
	})

	t.Run("json array", func(t *testing.T) {
		resetExportFlags()
		exportFlags.format = "json"
		exportFlags.ticketID = "nope"

		cmd, buf := newTestCmd()
		if err := exportVerdicts(cmd, nil); err != nil {
			t.Fatalf("exportVerdicts() error = %v", err)
		}
		var got []verdicts.Record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("empty export must still be a JSON array: %v\n%s", err, buf.String())
		}
		if len(got) != 0 {
			t.Errorf("got %d records, want 0", len(got))
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		resetExportFlags()
		exportFlags.format = "xlsx"

		cmd, _ := newTestCmd()
		if err := exportVerdicts(cmd, nil); cli.ExitCode(err) != cli.ExitConfig {
			t.Errorf("exportVerdicts() error = %v, want config error", err)
		}
	})
}

func TestPruneVerdicts(t *testing.T) {
	cfgPath := writeConfig(t, "grid.json", "")
	useConfig(t, cfgPath)
	seedVerdicts(t, cfgPath)

	pruneFlags.dryRun = true
	cmd, buf := newTestCmd()
	if err := pruneVerdicts(cmd, nil); err != nil {
		t.Fatalf("pruneVerdicts(--dry-run) error = %v", err)
	}
	if !strings.Contains(buf.String(), "1 record(s) audited before") {
		t.Errorf("dry run output = %q", buf.String())
	}

	pruneFlags.dryRun = false
	cmd, buf = newTestCmd()
	if err := pruneVerdicts(cmd, nil); err != nil {
		t.Fatalf("pruneVerdicts() error = %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Pruned 1 record(s)") {
		t.Errorf("prune output = %q", buf.String())
	}

	resetQueryFlags()
	queryFlags.format = "json"
	cmd, buf = newTestCmd()
	if err := queryVerdicts(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"total": 2`) {
		t.Errorf("remaining verdicts:\n%s", buf.String())
	}
}

func TestPruneVerdictsAgeRuleDisabled(t *testing.T) {
	useConfig(t, writeConfig(t, "grid.json", "  retention:\n    days: -1\n"))
	pruneFlags.dryRun = true
	defer func() { pruneFlags.dryRun = false }()

	cmd, buf := newTestCmd()
	if err := pruneVerdicts(cmd, nil); err != nil {
		t.Fatalf("pruneVerdicts() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Age retention disabled") {
		t.Errorf("output = %q", buf.String())
	}
}
