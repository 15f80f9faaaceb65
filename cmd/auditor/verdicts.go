package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/verdicts"
	"mercator-hq/auditor/pkg/verdicts/export"
	"mercator-hq/auditor/pkg/verdicts/retention"
	"mercator-hq/auditor/pkg/verdicts/storage"
)

var verdictsCmd = &cobra.Command{
	Use:   "verdicts",
	Short: "Query, export and prune stored verdicts",
	Long: `Query, export and prune the verdict records written by audits.

Filters shared by query and export:
  --since, --until   RFC 3339 timestamps or YYYY-MM-DD dates (until covers the whole day)
  --ticket           ticket ID
  --booking-ref      booking reference
  --category         Compliant, Non-Compliant, "Non-Compliant (Rule Missing)"
  --tier             "<=125", ">125" or unknown
  --outcome          Match, "Less Severe" or "More Severe"`,
}

// filterFlags are the record filters shared by query and export.
type filterFlags struct {
	since      string
	until      string
	ticketID   string
	bookingRef string
	category   string
	tier       string
	outcome    string
	sortBy     string
	sortOrder  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.since, "since", "", "only records audited at or after this time")
	cmd.Flags().StringVar(&f.until, "until", "", "only records audited at or before this time")
	cmd.Flags().StringVar(&f.ticketID, "ticket", "", "filter by ticket ID")
	cmd.Flags().StringVar(&f.bookingRef, "booking-ref", "", "filter by booking reference")
	cmd.Flags().StringVar(&f.category, "category", "", "filter by category")
	cmd.Flags().StringVar(&f.tier, "tier", "", "filter by value tier")
	cmd.Flags().StringVar(&f.outcome, "outcome", "", "filter by outcome")
	cmd.Flags().StringVar(&f.sortBy, "sort-by", "", "sort field: audited_at, audit_date, ticket_id, booking_ref, category, match_score")
	cmd.Flags().StringVar(&f.sortOrder, "sort-order", "", "sort order: asc, desc (default desc)")
}

func (f *filterFlags) query() (*verdicts.Query, error) {
	q := &verdicts.Query{
		TicketID:   f.ticketID,
		BookingRef: f.bookingRef,
		Category:   f.category,
		ValueTier:  f.tier,
		Outcome:    f.outcome,
		SortBy:     f.sortBy,
		SortOrder:  f.sortOrder,
	}
	var err error
	if q.Since, err = verdicts.ParseTime(f.since, false); err != nil {
		return nil, cli.NewConfigError("since", err.Error())
	}
	if q.Until, err = verdicts.ParseTime(f.until, true); err != nil {
		return nil, cli.NewConfigError("until", err.Error())
	}
	return q, nil
}

var queryFlags struct {
	filterFlags
	limit  int
	offset int
	format string
}

var verdictsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List stored verdicts",
	Long: `List stored verdicts matching the filters, newest first.

Examples:
  # Today's non-compliant verdicts
  auditor verdicts query --since 2026-06-01 --category Non-Compliant

  # Everything for one booking as JSON
  auditor verdicts query --booking-ref BK-4821 --format json`,
	RunE: queryVerdicts,
}

var exportFlags struct {
	filterFlags
	format   string
	output   string
	progress bool
}

var verdictsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored verdicts",
	Long: `Stream stored verdicts matching the filters to a file or stdout.

CSV columns follow the spreadsheet header. JSON is always a single array,
JSON Lines writes one record per line.

Examples:
  auditor verdicts export --format csv --output verdicts.csv
  auditor verdicts export --format jsonl --since 2026-05-01 --until 2026-05-31`,
	RunE: exportVerdicts,
}

var pruneFlags struct {
	dryRun bool
}

var verdictsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete verdicts older than verdicts.retention.days and, when
verdicts.retention.max_records is set, the oldest records above that count.
Deleted records are archived first when verdicts.retention.archive_path is set.

Examples:
  auditor verdicts prune
  auditor verdicts prune --dry-run`,
	RunE: pruneVerdicts,
}

func init() {
	rootCmd.AddCommand(verdictsCmd)
	verdictsCmd.AddCommand(verdictsQueryCmd, verdictsExportCmd, verdictsPruneCmd)

	queryFlags.register(verdictsQueryCmd)
	verdictsQueryCmd.Flags().IntVar(&queryFlags.limit, "limit", 0, "maximum records to return (default verdicts.query.default_limit)")
	verdictsQueryCmd.Flags().IntVar(&queryFlags.offset, "offset", 0, "records to skip")
	verdictsQueryCmd.Flags().StringVar(&queryFlags.format, "format", "text", "output format: text, json")

	exportFlags.register(verdictsExportCmd)
	verdictsExportCmd.Flags().StringVar(&exportFlags.format, "format", "csv", "export format: csv, json, jsonl")
	verdictsExportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "-", "output file, or - for stdout")
	verdictsExportCmd.Flags().BoolVar(&exportFlags.progress, "progress", false, "report progress on stderr")

	verdictsPruneCmd.Flags().BoolVar(&pruneFlags.dryRun, "dry-run", false, "report what would be deleted by age")
}

// openVerdicts loads the configuration and opens verdict storage.
func openVerdicts(cmd *cobra.Command) (*config.Config, verdicts.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Verdicts.Enabled {
		return nil, nil, cli.NewConfigError("verdicts.enabled", "verdict storage is disabled")
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(cfg.Verdicts, logger)
	if err != nil {
		return nil, nil, cli.NewCommandError(cmd.Name(), err)
	}
	return cfg, store, nil
}

// recordList is the output of verdicts query.
type recordList struct {
	Records []*verdicts.Record `json:"records"`
	Total   int64              `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

func (l recordList) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AUDITED AT\tBOOKING\tTICKET\tCATEGORY\tTIER\tOUTCOME\tL1 / L2")
	for _, r := range l.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s / %s\n",
			r.AuditedAt.UTC().Format(time.RFC3339), r.BookingRef, orDash(r.TicketID),
			r.Category, r.ValueTier, r.Outcome, r.L1Reason, r.L2Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d record(s)\n", len(l.Records), l.Total)
	return err
}

func queryVerdicts(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(queryFlags.format)
	if err != nil {
		return err
	}
	q, err := queryFlags.query()
	if err != nil {
		return err
	}

	cfg, store, err := openVerdicts(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	q.Limit = queryFlags.limit
	if q.Limit == 0 {
		q.Limit = cfg.Verdicts.Query.DefaultLimit
	}
	q.Offset = queryFlags.offset
	if err := verdicts.Validate(q, cfg.Verdicts.Query.MaxLimit); err != nil {
		return cli.NewConfigError("query", err.Error())
	}

	ctx, cancel := withQueryTimeout(commandContext(cmd), cfg.Verdicts.Query.Timeout)
	defer cancel()

	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("verdicts query", err)
	}
	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("verdicts query", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), recordList{
		Records: records,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
}

func exportVerdicts(cmd *cobra.Command, args []string) error {
	q, err := exportFlags.query()
	if err != nil {
		return err
	}

	cfg, store, err := openVerdicts(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	exporter, err := export.New(exportFlags.format, cfg.Verdicts.Export)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	q.Limit = cfg.Verdicts.Export.MaxExportSize
	if err := verdicts.Validate(q, q.Limit); err != nil {
		return cli.NewConfigError("query", err.Error())
	}

	ctx := commandContext(cmd)
	var progress cli.ProgressReporter
	if exportFlags.progress {
		total, err := store.Count(ctx, q)
		if err != nil {
			return cli.NewCommandError("verdicts export", err)
		}
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "records")
		progress.Start(min(total, int64(q.Limit)))
	}

	out := cmd.OutOrStdout()
	if exportFlags.output != "-" {
		f, err := os.Create(exportFlags.output)
		if err != nil {
			return cli.NewCommandError("verdicts export", err)
		}
		defer f.Close()
		out = f
	}

	records, errs, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("verdicts export", err)
	}
	if progress != nil {
		records = countRecords(ctx, records, progress)
	}

	if err := exporter.ExportStream(ctx, records, out); err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("verdicts export", err)
	}
	if err := <-errs; err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("verdicts export", err)
	}
	if progress != nil {
		progress.Finish()
	}
	return nil
}

// countRecords forwards records and reports how many have passed.
func countRecords(ctx context.Context, in <-chan *verdicts.Record, progress cli.ProgressReporter) <-chan *verdicts.Record {
	out := make(chan *verdicts.Record)
	go func() {
		defer close(out)
		var n int64
		for rec := range in {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
			n++
			progress.Update(n)
		}
	}()
	return out
}

func pruneVerdicts(cmd *cobra.Command, args []string) error {
	cfg, store, err := openVerdicts(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	pruner := retention.NewPruner(store, cfg.Verdicts.Retention, nil, nil)

	if pruneFlags.dryRun {
		cutoff := pruner.Cutoff()
		if cutoff.IsZero() {
			fmt.Fprintln(out, "Age retention disabled (verdicts.retention.days <= 0)")
			return nil
		}
		n, err := store.Count(ctx, &verdicts.Query{Until: &cutoff})
		if err != nil {
			return cli.NewCommandError("verdicts prune", err)
		}
		fmt.Fprintf(out, "%d record(s) audited before %s would be deleted\n", n, cutoff.UTC().Format(time.RFC3339))
		return nil
	}

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("verdicts prune", err)
	}
	fmt.Fprintf(out, "✓ Pruned %d record(s)\n", deleted)
	return nil
}

func withQueryTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
