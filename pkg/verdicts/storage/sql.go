package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/auditor/pkg/verdicts"
)

// dialect captures the differences between the supported SQL databases.
type dialect struct {
	name          string
	driver        string
	timestampType string
	numbered      bool // $1, $2 placeholders instead of ?
	sqlite        bool
}

var dialects = map[string]*dialect{
	"sqlite3":  {name: "sqlite3", driver: "sqlite3", timestampType: "TIMESTAMP", sqlite: true},
	"sqlite":   {name: "sqlite", driver: "sqlite", timestampType: "TIMESTAMP", sqlite: true},
	"postgres": {name: "postgres", driver: "postgres", timestampType: "TIMESTAMPTZ", numbered: true},
}

// rebind rewrites ? placeholders for dialects that number them.
func (d *dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// SQLConfig contains configuration for the SQL storage backend.
type SQLConfig struct {
	// Dialect is "sqlite3" (mattn/go-sqlite3), "sqlite" (modernc.org/sqlite)
	// or "postgres" (lib/pq).
	Dialect string

	// DSN is passed to sql.Open unchanged.
	DSN string

	MaxOpenConns int
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging on SQLite.
	WALMode bool
}

// SQLStorage implements verdicts.Storage over database/sql.
type SQLStorage struct {
	db      *sql.DB
	dialect *dialect
	config  SQLConfig
	logger  *slog.Logger
}

// NewSQLStorage opens the database and creates the schema if needed.
func NewSQLStorage(cfg SQLConfig, logger *slog.Logger) (*SQLStorage, error) {
	d, ok := dialects[cfg.Dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, verdicts.NewStorageError(d.name, "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s, err := newSQLStorage(db, d, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newSQLStorage(db *sql.DB, d *dialect, cfg SQLConfig, logger *slog.Logger) (*SQLStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLStorage{
		db:      db,
		dialect: d,
		config:  cfg,
		logger:  logger.With("component", "verdicts.storage."+d.name),
	}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	s.logger.Info("verdict storage initialized",
		"dialect", d.name,
		"wal_mode", d.sqlite && cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// initialize creates the schema and checks its version.
func (s *SQLStorage) initialize() error {
	if s.dialect.sqlite && s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return s.storageError("enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.Exec(stmt); err != nil {
			return s.storageError("create_schema", err)
		}
	}

	if _, err := s.db.Exec(s.dialect.rebind(insertSchemaVersion), SchemaVersion); err != nil {
		return s.storageError("insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return s.storageError("get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return s.storageError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	s.logger.Debug("schema version verified", "version", version.Int64)
	return nil
}

// Store persists a verdict record.
func (s *SQLStorage) Store(ctx context.Context, record *verdicts.Record) error {
	query := s.dialect.rebind(`INSERT INTO verdicts (` + recordColumns + `) VALUES (
		?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
	)`)

	var agrees any
	if record.ReviewAgrees != nil {
		agrees = *record.ReviewAgrees
	}

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.TicketID, record.BookingRef,
		record.AuditDate, record.AuditedAt.UTC(),
		record.Category, record.ValueTier, record.L1Reason, record.L2Reason,
		record.ColumnKey, record.ColumnHeader, record.ExperienceType, record.Outcome,
		record.ExpectedAction, record.ObservedAction, record.Explanation, record.Confidence,
		record.MatchScore, record.Fallback, record.PolicyVersion,
		agrees, record.ReviewRationale, record.Error,
	)
	if err != nil {
		return s.storageError("store", err)
	}
	return nil
}

// Get returns a single record by ID.
func (s *SQLStorage) Get(ctx context.Context, id string) (*verdicts.Record, error) {
	query := s.dialect.rebind("SELECT " + recordColumns + " FROM verdicts WHERE id = ?")
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", verdicts.ErrNotFound, id)
	}
	if err != nil {
		return nil, s.storageError("get", err)
	}
	return record, nil
}

// Query retrieves records matching the query filters.
func (s *SQLStorage) Query(ctx context.Context, q *verdicts.Query) ([]*verdicts.Record, error) {
	query, args := s.selectQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.storageError("query", err)
	}
	defer rows.Close()

	records := []*verdicts.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, s.storageError("scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("query", err)
	}
	return records, nil
}

// QueryStream returns a channel of records for memory-efficient export.
func (s *SQLStorage) QueryStream(ctx context.Context, q *verdicts.Query) (<-chan *verdicts.Record, <-chan error, error) {
	recordsCh := make(chan *verdicts.Record, 100)
	errCh := make(chan error, 1)
	query, args := s.selectQuery(q)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			errCh <- s.storageError("query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				errCh <- s.storageError("scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- s.storageError("query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLStorage) Count(ctx context.Context, q *verdicts.Query) (int64, error) {
	where, args := buildWhereClause(q)
	query := "SELECT COUNT(*) FROM verdicts"
	if where != "" {
		query += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(&count); err != nil {
		return 0, s.storageError("count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLStorage) Delete(ctx context.Context, q *verdicts.Query) (int64, error) {
	where, args := buildWhereClause(q)
	query := "DELETE FROM verdicts"
	if where != "" {
		query += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, s.storageError("delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, s.storageError("delete", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.storageError("ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return s.storageError("close", err)
	}
	s.logger.Info("verdict storage closed")
	return nil
}

func (s *SQLStorage) storageError(op string, err error) error {
	return verdicts.NewStorageError(s.dialect.name, op, err)
}

// selectQuery builds the full SELECT for q including order and pagination.
func (s *SQLStorage) selectQuery(q *verdicts.Query) (string, []any) {
	where, args := buildWhereClause(q)

	query := "SELECT " + recordColumns + " FROM verdicts"
	if where != "" {
		query += " WHERE " + where
	}

	column, direction := q.OrderBy()
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", column, direction, direction)

	limit := verdicts.DefaultLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	return s.dialect.rebind(query), args
}

// buildWhereClause builds a WHERE clause (without the keyword) using ?
// placeholders, and the matching arguments.
func buildWhereClause(q *verdicts.Query) (string, []any) {
	var conditions []string
	var args []any

	if q.Since != nil {
		conditions = append(conditions, "audited_at >= ?")
		args = append(args, q.Since.UTC())
	}
	if q.Until != nil {
		conditions = append(conditions, "audited_at <= ?")
		args = append(args, q.Until.UTC())
	}

	equals := []struct {
		column, value string
	}{
		{"ticket_id", q.TicketID},
		{"booking_ref", q.BookingRef},
		{"category", q.Category},
		{"value_tier", q.ValueTier},
		{"outcome", q.Outcome},
	}
	for _, f := range equals {
		if f.value != "" {
			conditions = append(conditions, f.column+" = ?")
			args = append(args, f.value)
		}
	}

	return strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*verdicts.Record, error) {
	var (
		r         verdicts.Record
		auditedAt time.Time
		agrees    sql.NullBool
	)
	err := row.Scan(
		&r.ID, &r.TicketID, &r.BookingRef, &r.AuditDate, &auditedAt,
		&r.Category, &r.ValueTier, &r.L1Reason, &r.L2Reason, &r.ColumnKey, &r.ColumnHeader,
		&r.ExperienceType, &r.Outcome, &r.ExpectedAction, &r.ObservedAction, &r.Explanation,
		&r.Confidence, &r.MatchScore, &r.Fallback, &r.PolicyVersion,
		&agrees, &r.ReviewRationale, &r.Error,
	)
	if err != nil {
		return nil, err
	}
	r.AuditedAt = auditedAt.UTC()
	if agrees.Valid {
		v := agrees.Bool
		r.ReviewAgrees = &v
	}
	return &r, nil
}
