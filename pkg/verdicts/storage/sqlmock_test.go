package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"mercator-hq/auditor/pkg/verdicts"
)

func expectInit(mock sqlmock.Sqlmock, version int) {
	ok := sqlmock.NewResult(0, 0)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS verdicts")).WillReturnResult(ok)
	for _, idx := range []string{"audited_at", "ticket_id", "category", "booking_ref"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_verdicts_" + idx)).WillReturnResult(ok)
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_version")).WillReturnResult(ok)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_version (version) VALUES ($1)")).
		WithArgs(SchemaVersion).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(version) FROM schema_version")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(version))
}

func newMockStore(t *testing.T) (*SQLStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	expectInit(mock, SchemaVersion)
	s, err := newSQLStorage(db, dialects["postgres"], SQLConfig{Dialect: "postgres"}, nil)
	if err != nil {
		t.Fatalf("newSQLStorage() error = %v", err)
	}
	return s, mock
}

func TestSQLStorage_SchemaVersionMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	expectInit(mock, SchemaVersion+1)
	_, err = newSQLStorage(db, dialects["postgres"], SQLConfig{}, nil)

	var se *verdicts.StorageError
	if !errors.As(err, &se) || se.Operation != "schema_version_mismatch" {
		t.Fatalf("error = %v, want schema_version_mismatch", err)
	}
}

func TestSQLStorage_CreateSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	_, err = newSQLStorage(db, dialects["postgres"], SQLConfig{}, nil)

	var se *verdicts.StorageError
	if !errors.As(err, &se) || se.Operation != "create_schema" || se.Backend != "postgres" {
		t.Fatalf("error = %v, want postgres create_schema", err)
	}
}

func TestSQLStorage_SQLiteEnablesWAL(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("PRAGMA journal_mode=WAL")).WillReturnResult(sqlmock.NewResult(0, 0))
	ok := sqlmock.NewResult(0, 0)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS verdicts")).WillReturnResult(ok)
	for i := 0; i < 4; i++ {
		mock.ExpectExec("CREATE INDEX").WillReturnResult(ok)
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_version")).WillReturnResult(ok)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_version (version) VALUES (?)")).
		WithArgs(SchemaVersion).WillReturnResult(ok)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(version)")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(SchemaVersion))

	if _, err := newSQLStorage(db, dialects["sqlite3"], SQLConfig{WALMode: true}, nil); err != nil {
		t.Fatalf("newSQLStorage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLStorage_StoreError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO verdicts")).
		WillReturnError(errors.New("connection reset"))

	err := s.Store(context.Background(), testRecord(1, "Compliant"))

	var se *verdicts.StorageError
	if !errors.As(err, &se) || se.Operation != "store" {
		t.Fatalf("Store() error = %v, want store StorageError", err)
	}
}

func TestSQLStorage_PostgresPlaceholders(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM verdicts WHERE audited_at >= $1 AND ticket_id = $2 AND category = $3 ORDER BY audited_at DESC, id DESC LIMIT 5 OFFSET 10",
	)).WithArgs(since, "48213", "Compliant").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Query(context.Background(), &verdicts.Query{
		Since:    &since,
		TicketID: "48213",
		Category: "Compliant",
		Limit:    5,
		Offset:   10,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLStorage_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, verdicts.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSQLStorage_DeleteAndCount(t *testing.T) {
	s, mock := newMockStore(t)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM verdicts WHERE audited_at <= $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM verdicts WHERE outcome = $1")).
		WithArgs("Match").
		WillReturnError(errors.New("timeout"))

	deleted, err := s.Delete(context.Background(), &verdicts.Query{Until: &cutoff})
	if err != nil || deleted != 42 {
		t.Errorf("Delete() = %d, %v; want 42, nil", deleted, err)
	}

	_, err = s.Count(context.Background(), &verdicts.Query{Outcome: "Match"})
	var se *verdicts.StorageError
	if !errors.As(err, &se) || se.Operation != "count" {
		t.Errorf("Count() error = %v, want count StorageError", err)
	}
}

func TestSQLStorage_QueryStreamError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("broken pipe"))

	recordsCh, errCh, err := s.QueryStream(context.Background(), &verdicts.Query{})
	if err != nil {
		t.Fatal(err)
	}
	for range recordsCh {
		t.Error("no records expected")
	}
	if err := <-errCh; err == nil {
		t.Error("expected stream error")
	}
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		dialect string
		in      string
		want    string
	}{
		{"postgres", "a = ? AND b = ?", "a = $1 AND b = $2"},
		{"sqlite3", "a = ? AND b = ?", "a = ? AND b = ?"},
		{"sqlite", "a = ?", "a = ?"},
		{"postgres", "no params", "no params"},
	}
	for _, tt := range tests {
		if got := dialects[tt.dialect].rebind(tt.in); got != tt.want {
			t.Errorf("%s rebind(%q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}
