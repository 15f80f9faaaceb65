package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/verdicts"
)

// Pinger is implemented by backends that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.VerdictsConfig, logger *slog.Logger) (verdicts.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil

	case "sqlite", "":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create verdict database directory: %w", err)
			}
		}
		driver := cfg.SQLite.Driver
		if driver == "" {
			driver = config.DefaultVerdictsSQLiteDriver
		}
		return NewSQLStorage(SQLConfig{
			Dialect:      driver,
			DSN:          SQLiteDSN(driver, cfg.SQLite.Path, cfg.SQLite.BusyTimeout.Milliseconds()),
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
		}, logger)

	case "postgres":
		return NewSQLStorage(SQLConfig{
			Dialect:      "postgres",
			DSN:          PostgresDSN(cfg.Postgres),
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported verdict storage backend %q", cfg.Backend)
	}
}

// SQLiteDSN builds a DSN that sets the busy timeout on every pooled
// connection. The two drivers spell the options differently; both store
// times in the same sortable text layout.
func SQLiteDSN(driver, path string, busyTimeoutMs int64) string {
	q := url.Values{}
	switch driver {
	case "sqlite":
		q.Add("_pragma", "busy_timeout("+strconv.FormatInt(busyTimeoutMs, 10)+")")
		q.Set("_time_format", "sqlite")
	default:
		q.Set("_busy_timeout", strconv.FormatInt(busyTimeoutMs, 10))
	}
	return "file:" + path + "?" + q.Encode()
}

// PostgresDSN builds a lib/pq connection URL.
func PostgresDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
