package sink

import (
	"context"
	"errors"
	"time"

	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/verdicts"
)

// Sink receives verdict records.
type Sink interface {
	// Name identifies the sink in logs, metrics and errors.
	Name() string

	// Write delivers one record.
	Write(ctx context.Context, rec *verdicts.Record) error
}

// Multi delivers records to every sink in order.
type Multi struct {
	sinks     []Sink
	collector *metrics.Collector
}

// NewMulti creates a fan-out over sinks. collector may be nil.
func NewMulti(collector *metrics.Collector, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, collector: collector}
}

// Name implements Sink.
func (m *Multi) Name() string { return "multi" }

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// WriteAll delivers rec to every sink and returns one *WriteError per
// failed sink. A failure does not stop delivery to later sinks.
func (m *Multi) WriteAll(ctx context.Context, rec *verdicts.Record) []*WriteError {
	var failed []*WriteError
	for _, s := range m.sinks {
		start := time.Now()
		err := s.Write(ctx, rec)
		m.collector.RecordSinkWrite(s.Name(), err, time.Since(start))
		if err != nil {
			failed = append(failed, &WriteError{Sink: s.Name(), RecordID: rec.ID, Cause: err})
		}
	}
	return failed
}

// Write implements Sink by joining the WriteAll failures.
func (m *Multi) Write(ctx context.Context, rec *verdicts.Record) error {
	failed := m.WriteAll(ctx, rec)
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, len(failed))
	for i, f := range failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}
