// Package export writes verdict records as CSV or JSON.
//
// The CSV layout is verdicts.Header, the same column order the sheets sink
// appends, so an export can be pasted straight into the audit spreadsheet.
// JSON is written as one array (optionally indented) or, with the "jsonl"
// format, as one object per line.
//
//	exporter, err := export.New("csv", cfg.Verdicts.Export)
//	if err != nil {
//	    return err
//	}
//	recordsCh, errCh, err := store.QueryStream(ctx, query)
//	...
//	err = exporter.ExportStream(ctx, recordsCh, file)
package export
