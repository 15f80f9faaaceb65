package export

import (
	"context"
	"encoding/csv"
	"io"

	"mercator-hq/auditor/pkg/verdicts"
)

// CSVExporter exports records to CSV.
type CSVExporter struct {
	// IncludeHeader writes verdicts.Header as the first row.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*verdicts.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(verdicts.Header()); err != nil {
			return verdicts.NewExportError("csv", 0, err)
		}
	}
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(record.Row()); err != nil {
			return verdicts.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return verdicts.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel until it is closed, flushing
// every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *verdicts.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(verdicts.Header()); err != nil {
			return verdicts.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			writer.Flush()
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return verdicts.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(record.Row()); err != nil {
				return verdicts.NewExportError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return verdicts.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}
