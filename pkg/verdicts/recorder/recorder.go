package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/verdicts"
)

// Recorder writes verdict records to storage from a background goroutine so
// that audits return without waiting on the database.
type Recorder struct {
	storage    verdicts.Storage
	config     config.RecorderConfig
	recordChan chan *verdicts.Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger

	// mu guards closed. Record holds the read lock while enqueueing so Close
	// cannot slip between the closed check and the send.
	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts a recorder writing to storage.
func NewRecorder(storage verdicts.Storage, cfg config.RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultVerdictsRecorderAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultVerdictsRecorderWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     cfg,
		recordChan: make(chan *verdicts.Record, cfg.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "verdicts.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("verdict recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// Record enqueues a record for writing. It blocks for at most WriteTimeout
// when the buffer is full.
func (r *Recorder) Record(ctx context.Context, record *verdicts.Record) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return verdicts.NewRecorderError(record.ID, context.Canceled)
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.logger.Debug("verdict record enqueued", "record_id", record.ID, "ticket_id", record.TicketID)
		return nil
	case <-timer.C:
		r.logger.Error("verdict record channel full, dropping record",
			"record_id", record.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return verdicts.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		return verdicts.NewRecorderError(record.ID, ctx.Err())
	}
}

// Pending returns the number of records waiting to be written.
func (r *Recorder) Pending() int {
	return len(r.recordChan)
}

// Close stops accepting records, writes everything still buffered and
// waits for the worker to exit. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.logger.Info("shutting down verdict recorder")
	r.wg.Wait()
	r.logger.Info("verdict recorder shut down complete")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining verdict channel before shutdown", "pending_count", len(r.recordChan))
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *verdicts.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store verdict record",
			"record_id", record.ID,
			"ticket_id", record.TicketID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	r.logger.Debug("verdict recorded",
		"record_id", record.ID,
		"category", record.Category,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow verdict write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
