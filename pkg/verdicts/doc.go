// Package verdicts defines the persisted audit record and the interfaces for
// storing, querying and exporting it.
//
// # Layout
//
//   - storage: SQL backend (SQLite via mattn/go-sqlite3 or modernc.org/sqlite,
//     PostgreSQL via lib/pq) and an in-memory backend
//   - recorder: asynchronous buffered writes so audits never wait on disk
//   - retention: age and count based pruning on a cron schedule
//   - export: CSV and JSON writers
//
// # Records
//
// A Record is a flattened engine verdict plus the identifiers the auditor
// adds around it: ticket id, booking reference, audit date, confidence, the
// policy digest the verdict was computed against, and the optional second
// opinion from review. Header and Row give the spreadsheet layout shared by
// the CSV exporter and the sheets sink.
//
// # Basic Usage
//
//	store, err := storage.Open(cfg.Verdicts, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, cfg.Verdicts.Recorder, logger)
//	defer rec.Close()
//
//	records, err := store.Query(ctx, &verdicts.Query{
//	    Category: "Non-Compliant",
//	    Limit:    50,
//	})
package verdicts
