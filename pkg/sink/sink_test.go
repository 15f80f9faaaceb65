package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/verdicts"
	"mercator-hq/auditor/pkg/verdicts/recorder"
	"mercator-hq/auditor/pkg/verdicts/storage"
)

func testRecord() *verdicts.Record {
	return &verdicts.Record{
		ID:         "rec-1",
		TicketID:   "4821",
		BookingRef: "BK-4821",
		AuditDate:  "2026-06-01",
		AuditedAt:  time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC),
		Category:   "Compliant",
		ValueTier:  "<=125",
		L1Reason:   "Refund requested",
		L2Reason:   "Partial refund approved",
		Confidence: "Medium",
	}
}

type sheetsHandler func(w http.ResponseWriter, r *http.Request, call int)

func newSheetsServer(t *testing.T, h sheetsHandler) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, int(atomic.AddInt32(&calls, 1)))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestSheets(t *testing.T, url string) *SheetsSink {
	t.Helper()
	s, err := NewSheetsSink(config.SheetsConfig{
		URL:        url,
		Secret:     "s3cret",
		Timeout:    time.Second,
		MaxRetries: 2,
	}, WithSheetsBackoff(time.Millisecond))
	require.NoError(t, err)
	return s
}

func TestSheetsSink_Write(t *testing.T) {
	var got SheetsRow
	var secret string
	srv, calls := newSheetsServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		secret = r.Header.Get(config.DefaultSheetsSecretHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok": true}`))
	})

	rec := testRecord()
	require.NoError(t, newTestSheets(t, srv.URL).Write(context.Background(), rec))

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, "s3cret", secret)
	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, verdicts.Header(), got.Header)
	assert.Equal(t, rec.Row(), got.Row)
	require.Len(t, got.Row, len(got.Header))
	assert.Equal(t, "BK-4821", got.Row[0])
	assert.Equal(t, "Compliant", got.Row[2])
}

func TestSheetsSink_Retries(t *testing.T) {
	tests := []struct {
		name      string
		handler   sheetsHandler
		wantCalls int32
		check     func(t *testing.T, err error)
	}{
		{
			name: "server error then success",
			handler: func(w http.ResponseWriter, r *http.Request, call int) {
				if call < 3 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.Write([]byte("appended"))
			},
			wantCalls: 3,
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name: "server errors exhaust retries",
			handler: func(w http.ResponseWriter, r *http.Request, _ int) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantCalls: 3,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
			},
		},
		{
			name: "client error is not retried",
			handler: func(w http.ResponseWriter, r *http.Request, _ int) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte("bad secret"))
			},
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Contains(t, se.Error(), "bad secret")
			},
		},
		{
			name: "ok false is not retried",
			handler: func(w http.ResponseWriter, r *http.Request, _ int) {
				w.Write([]byte(`{"ok": false, "error": "sheet is locked"}`))
			},
			wantCalls: 1,
			check: func(t *testing.T, err error) {
				var re *RejectedError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, "sheet is locked", re.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := newSheetsServer(t, tt.handler)
			err := newTestSheets(t, srv.URL).Write(context.Background(), testRecord())
			tt.check(t, err)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestSheetsSink_ContextCancelled(t *testing.T) {
	srv, _ := newSheetsServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	s, err := NewSheetsSink(config.SheetsConfig{URL: srv.URL, MaxRetries: 5}, WithSheetsBackoff(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Write(ctx, testRecord()), context.DeadlineExceeded)
}

func TestNewSheetsSink_RequiresURL(t *testing.T) {
	_, err := NewSheetsSink(config.SheetsConfig{})
	assert.Error(t, err)
}

type failingSink struct{ name string }

func (f failingSink) Name() string { return f.name }
func (f failingSink) Write(context.Context, *verdicts.Record) error {
	return errors.New("unavailable")
}

func TestMulti_CollectsFailures(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test", Subsystem: "auditor"}, registry)

	store := storage.NewMemoryStorage()
	rec := recorder.NewRecorder(store, config.RecorderConfig{AsyncBuffer: 4, WriteTimeout: time.Second}, nil)

	m := NewMulti(collector, failingSink{"first"}, NewStoreSink(rec), failingSink{"last"})
	assert.Equal(t, 3, m.Len())

	failed := m.WriteAll(context.Background(), testRecord())
	require.Len(t, failed, 2)
	assert.Equal(t, "first", failed[0].Sink)
	assert.Equal(t, "last", failed[1].Sink)
	assert.Equal(t, "rec-1", failed[0].RecordID)

	require.NoError(t, rec.Close())
	got, err := store.Get(context.Background(), "rec-1")
	require.NoError(t, err, "the store sink must still receive the record")
	assert.Equal(t, "BK-4821", got.BookingRef)

	expected := `
# HELP test_auditor_sink_writes_total Total number of verdict deliveries by sink
# TYPE test_auditor_sink_writes_total counter
test_auditor_sink_writes_total{sink="first",status="error"} 1
test_auditor_sink_writes_total{sink="last",status="error"} 1
test_auditor_sink_writes_total{sink="store",status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_auditor_sink_writes_total"))
}

func TestMulti_Write(t *testing.T) {
	assert.NoError(t, NewMulti(nil).Write(context.Background(), testRecord()))

	err := NewMulti(nil, failingSink{"a"}).Write(context.Background(), testRecord())
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "a", we.Sink)
}
