package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Mode selects how a file-backed SQLite database is opened.
type Mode int

const (
	// ReadOnly opens an existing file with mode=ro; a missing file is an error.
	ReadOnly Mode = iota
	// ReadWrite creates the file (and its directory) when needed.
	ReadWrite
)

func Open(ctx context.Context, cfg config.Config, mode Mode) (*sql.DB, error) {
	dsn, err := buildDSN(cfg, mode)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(cfg.Driver, dsn, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	// SQLite handles one statement per connection at a time; MaxOpenConns=1
	// serializes every query through the single shared handle.
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildDSN(cfg config.Config, mode Mode) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Driver == "pgx" {
		return "", fmt.Errorf("driver %q needs an explicit DSN", cfg.Driver)
	}

	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		switch mode {
		case ReadOnly:
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("sqlite database %s: %w", path, err)
			}
		case ReadWrite:
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return "", fmt.Errorf("mkdir %s: %w", dir, err)
				}
			}
		}
		path = "file:" + path
	}

	// The default rollback journal is kept: a WAL database cannot be opened
	// with mode=ro once its -shm file is gone.
	var params []string
	if mode == ReadOnly {
		params = append(params, "mode=ro")
	}
	switch cfg.Driver {
	case "sqlite3":
		params = append(params, "_busy_timeout=5000")
		if mode == ReadWrite {
			params = append(params, "_foreign_keys=on")
		}
	case "sqlite":
		params = append(params, "_pragma=busy_timeout(5000)")
		if mode == ReadWrite {
			params = append(params, "_pragma=foreign_keys(1)")
		}
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&"), nil
}

// Rebind rewrites '?' placeholders into the dialect of driver: $1..$n for
// pgx, unchanged for the SQLite drivers. Queries must not carry literal '?'.
func Rebind(driver, query string) string {
	if driver != "pgx" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Bytewise pins comparisons against column to byte order on pgx, where TEXT
// otherwise compares under the database collation. SQLite already compares
// TEXT bytewise. Only "column >= ?" and "column <= ?" are rewritten.
func Bytewise(driver, query, column string) string {
	if driver != "pgx" {
		return query
	}
	for _, op := range []string{" >= ?", " <= ?"} {
		query = strings.ReplaceAll(query, column+op, column+` COLLATE "C"`+op)
	}
	return query
}
