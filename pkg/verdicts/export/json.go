package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/verdicts"
)

// JSONExporter exports records as a JSON array or as JSON Lines.
type JSONExporter struct {
	// Pretty indents array output. It is ignored for JSON Lines.
	Pretty bool

	// Lines writes one compact object per line instead of an array.
	Lines bool
}

// NewJSONExporter creates a JSON array exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// NewJSONLinesExporter creates a JSON Lines exporter.
func NewJSONLinesExporter() *JSONExporter {
	return &JSONExporter{Lines: true}
}

func (e *JSONExporter) format() string {
	if e.Lines {
		return "jsonl"
	}
	return "json"
}

// Export writes records to w. An empty slice produces "[]" in array mode
// and nothing in lines mode.
func (e *JSONExporter) Export(ctx context.Context, records []*verdicts.Record, w io.Writer) error {
	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan *verdicts.Record)
	go func() {
		defer close(ch)
		for _, r := range records {
			select {
			case ch <- r:
			case <-feedCtx.Done():
				return
			}
		}
	}()
	if err := e.ExportStream(ctx, ch, w); err != nil {
		return err
	}
	return ctx.Err()
}

// ExportStream writes records from a channel until it is closed.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *verdicts.Record, w io.Writer) error {
	sw := &jsonStreamWriter{w: w, pretty: e.Pretty && !e.Lines, lines: e.Lines}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if err := sw.close(); err != nil {
					return verdicts.NewExportError(e.format(), sw.count, err)
				}
				return nil
			}
			if err := sw.write(record); err != nil {
				return verdicts.NewExportError(e.format(), sw.count, err)
			}
		}
	}
}

type jsonStreamWriter struct {
	w      io.Writer
	pretty bool
	lines  bool
	count  int
}

func (s *jsonStreamWriter) write(record *verdicts.Record) error {
	var (
		data []byte
		err  error
	)
	if s.pretty {
		data, err = json.MarshalIndent(record, "  ", "  ")
	} else {
		data, err = json.Marshal(record)
	}
	if err != nil {
		return err
	}

	var prefix string
	switch {
	case s.lines:
	case s.count == 0 && s.pretty:
		prefix = "[\n  "
	case s.count == 0:
		prefix = "["
	case s.pretty:
		prefix = ",\n  "
	default:
		prefix = ","
	}
	if _, err := io.WriteString(s.w, prefix); err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if s.lines {
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return err
		}
	}
	s.count++
	return nil
}

func (s *jsonStreamWriter) close() error {
	var suffix string
	switch {
	case s.lines:
		return nil
	case s.count == 0:
		suffix = "[]\n"
	case s.pretty:
		suffix = "\n]\n"
	default:
		suffix = "]\n"
	}
	_, err := io.WriteString(s.w, suffix)
	return err
}

// New returns the exporter for format: "csv", "json" or "jsonl".
func New(format string, cfg config.ExportConfig) (verdicts.Exporter, error) {
	switch format {
	case "csv":
		return NewCSVExporter(cfg.CSVIncludeHeader), nil
	case "json":
		return NewJSONExporter(cfg.JSONPretty), nil
	case "jsonl", "ndjson":
		return NewJSONLinesExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (must be csv, json or jsonl)", format)
	}
}
