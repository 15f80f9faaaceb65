package recorder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/verdicts"
	"mercator-hq/auditor/pkg/verdicts/storage"
)

func TestRecorder_WritesEverythingOnClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := NewRecorder(store, config.RecorderConfig{AsyncBuffer: 10, WriteTimeout: time.Second}, nil)

	for i := 0; i < 25; i++ {
		rec := &verdicts.Record{ID: fmt.Sprintf("r-%d", i), AuditedAt: time.Now()}
		if err := r.Record(context.Background(), rec); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	count, err := store.Count(context.Background(), &verdicts.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if count != 25 {
		t.Errorf("stored %d records, want 25", count)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	r := NewRecorder(storage.NewMemoryStorage(), config.RecorderConfig{}, nil)
	r.Close()
	r.Close()

	err := r.Record(context.Background(), &verdicts.Record{ID: "late"})
	var re *verdicts.RecorderError
	if !errors.As(err, &re) || re.RecordID != "late" {
		t.Fatalf("Record() after Close error = %v, want RecorderError", err)
	}
}

// gatedStorage blocks every Store until the gate is closed.
type gatedStorage struct {
	*storage.MemoryStorage
	entered chan struct{}
	gate    chan struct{}
}

func (s *gatedStorage) Store(ctx context.Context, r *verdicts.Record) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.gate
	return s.MemoryStorage.Store(ctx, r)
}

func TestRecorder_BufferFull(t *testing.T) {
	store := &gatedStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		entered:       make(chan struct{}, 1),
		gate:          make(chan struct{}),
	}
	r := NewRecorder(store, config.RecorderConfig{AsyncBuffer: 1, WriteTimeout: 20 * time.Millisecond}, nil)
	ctx := context.Background()

	if err := r.Record(ctx, &verdicts.Record{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	<-store.entered // worker is now blocked on record 1

	if err := r.Record(ctx, &verdicts.Record{ID: "2"}); err != nil {
		t.Fatalf("second record should fit in the buffer: %v", err)
	}
	if r.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", r.Pending())
	}

	err := r.Record(ctx, &verdicts.Record{ID: "3"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("third record error = %v, want DeadlineExceeded", err)
	}

	close(store.gate)
	r.Close()

	count, _ := store.Count(ctx, &verdicts.Query{})
	if count != 2 {
		t.Errorf("stored %d records, want 2", count)
	}
}

func TestRecorder_ContextCancelled(t *testing.T) {
	store := &gatedStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		entered:       make(chan struct{}, 1),
		gate:          make(chan struct{}),
	}
	r := NewRecorder(store, config.RecorderConfig{AsyncBuffer: 1, WriteTimeout: time.Minute}, nil)
	defer func() {
		close(store.gate)
		r.Close()
	}()

	r.Record(context.Background(), &verdicts.Record{ID: "1"})
	<-store.entered
	r.Record(context.Background(), &verdicts.Record{ID: "2"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.Record(ctx, &verdicts.Record{ID: "3"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want caller deadline", err)
	}
}

// failingStorage rejects every write.
type failingStorage struct {
	*storage.MemoryStorage
}

func (failingStorage) Store(ctx context.Context, r *verdicts.Record) error {
	return verdicts.NewStorageError("memory", "store", errors.New("read-only"))
}

func TestRecorder_StoreFailureDoesNotStopWorker(t *testing.T) {
	r := NewRecorder(failingStorage{storage.NewMemoryStorage()}, config.RecorderConfig{AsyncBuffer: 4}, nil)
	for i := 0; i < 4; i++ {
		if err := r.Record(context.Background(), &verdicts.Record{ID: fmt.Sprint(i)}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close() did not return")
	}
}
