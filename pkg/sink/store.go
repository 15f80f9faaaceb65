package sink

import (
	"context"

	"mercator-hq/auditor/pkg/verdicts"
)

// Recorder accepts records for asynchronous storage; *recorder.Recorder
// implements it.
type Recorder interface {
	Record(ctx context.Context, rec *verdicts.Record) error
}

// StoreSink hands records to the verdict recorder.
type StoreSink struct {
	recorder Recorder
}

// NewStoreSink creates a sink writing through r.
func NewStoreSink(r Recorder) *StoreSink {
	return &StoreSink{recorder: r}
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "store" }

// Write implements Sink. The record is stored after Write returns.
func (s *StoreSink) Write(ctx context.Context, rec *verdicts.Record) error {
	return s.recorder.Record(ctx, rec)
}
