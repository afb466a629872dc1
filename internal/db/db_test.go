package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/config"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		in     string
		want   string
	}{
		{name: "sqlite3 untouched", driver: "sqlite3", in: "SELECT 1 WHERE a = ? AND b = ?", want: "SELECT 1 WHERE a = ? AND b = ?"},
		{name: "modernc untouched", driver: "sqlite", in: "SELECT ?", want: "SELECT ?"},
		{name: "pgx numbered", driver: "pgx", in: "SELECT 1 WHERE a = ? AND b <= ?", want: "SELECT 1 WHERE a = $1 AND b <= $2"},
		{name: "pgx no placeholders", driver: "pgx", in: "SELECT station FROM station", want: "SELECT station FROM station"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.driver, tt.in); got != tt.want {
				t.Errorf("Rebind(%q, %q) = %q, want %q", tt.driver, tt.in, got, tt.want)
			}
		})
	}
}

func TestBytewise(t *testing.T) {
	const q = "SELECT MIN(tobs) FROM measurement WHERE date >= ? AND date <= ?"
	tests := []struct {
		name   string
		driver string
		want   string
	}{
		{name: "sqlite3 untouched", driver: "sqlite3", want: q},
		{name: "modernc untouched", driver: "sqlite", want: q},
		{name: "pgx collates both bounds", driver: "pgx", want: `SELECT MIN(tobs) FROM measurement WHERE date COLLATE "C" >= ? AND date COLLATE "C" <= ?`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bytewise(tt.driver, q, "date"); got != tt.want {
				t.Errorf("Bytewise(%q) = %q, want %q", tt.driver, got, tt.want)
			}
		})
	}

	if got := Rebind("pgx", Bytewise("pgx", "WHERE date >= ? AND station = ?", "date")); got != `WHERE date COLLATE "C" >= $1 AND station = $2` {
		t.Errorf("rebound = %q", got)
	}
}

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "hawaii.sqlite")
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	t.Run("explicit dsn wins", func(t *testing.T) {
		got, err := buildDSN(config.Config{Driver: "pgx", DSN: "postgres://x"}, ReadOnly)
		if err != nil || got != "postgres://x" {
			t.Fatalf("buildDSN = %q, %v; want postgres://x, nil", got, err)
		}
	})

	t.Run("pgx without dsn", func(t *testing.T) {
		if _, err := buildDSN(config.Config{Driver: "pgx"}, ReadOnly); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("read only sqlite3", func(t *testing.T) {
		got, err := buildDSN(config.Config{Driver: "sqlite3", Path: existing}, ReadOnly)
		if err != nil {
			t.Fatalf("buildDSN: %v", err)
		}
		if !strings.HasPrefix(got, "file:"+existing+"?") || !strings.Contains(got, "mode=ro") {
			t.Errorf("dsn = %q; want read-only file URI", got)
		}
		if strings.Contains(got, "journal_mode") {
			t.Errorf("dsn = %q; read-only dsn must not switch journal mode", got)
		}
	})

	t.Run("read only modernc", func(t *testing.T) {
		got, err := buildDSN(config.Config{Driver: "sqlite", Path: existing}, ReadOnly)
		if err != nil {
			t.Fatalf("buildDSN: %v", err)
		}
		if !strings.Contains(got, "mode=ro") || !strings.Contains(got, "_pragma=busy_timeout(5000)") {
			t.Errorf("dsn = %q", got)
		}
	})

	t.Run("read only missing file", func(t *testing.T) {
		_, err := buildDSN(config.Config{Driver: "sqlite3", Path: filepath.Join(dir, "missing.sqlite")}, ReadOnly)
		if err == nil {
			t.Fatal("expected error for missing database file")
		}
	})

	t.Run("read write creates directory", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "new.sqlite")
		got, err := buildDSN(config.Config{Driver: "sqlite3", Path: path}, ReadWrite)
		if err != nil {
			t.Fatalf("buildDSN: %v", err)
		}
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			t.Errorf("directory not created: %v", err)
		}
		if strings.Contains(got, "mode=ro") || !strings.Contains(got, "_foreign_keys=on") {
			t.Errorf("dsn = %q", got)
		}
	})

	t.Run("file uri with params appends", func(t *testing.T) {
		got, err := buildDSN(config.Config{Driver: "sqlite3", Path: "file:x.db?cache=shared"}, ReadOnly)
		if err != nil {
			t.Fatalf("buildDSN: %v", err)
		}
		if !strings.HasPrefix(got, "file:x.db?cache=shared&") {
			t.Errorf("dsn = %q", got)
		}
	})
}

func TestOpen_MissingFileFails(t *testing.T) {
	cfg := config.Config{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "absent.sqlite"), MaxOpenConns: 1, MaxIdleConns: 1}
	if _, err := Open(context.Background(), cfg, ReadOnly); err == nil {
		t.Fatal("Open() error = nil; want error for missing file")
	}
}

func TestOpen_ReadWriteThenReadOnly(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := config.Config{Driver: driver, Path: filepath.Join(t.TempDir(), "app.db"), MaxOpenConns: 1, MaxIdleConns: 1}

			rw, err := Open(ctx, cfg, ReadWrite)
			if err != nil {
				t.Fatalf("Open(ReadWrite): %v", err)
			}
			if _, err := rw.Exec(`CREATE TABLE station (station TEXT)`); err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := Close(rw); err != nil {
				t.Fatalf("close: %v", err)
			}

			ro, err := Open(ctx, cfg, ReadOnly)
			if err != nil {
				t.Fatalf("Open(ReadOnly): %v", err)
			}
			defer func() { _ = Close(ro) }()

			if _, err := ro.Exec(`INSERT INTO station (station) VALUES ('USC00519281')`); err == nil {
				t.Fatal("insert on read-only handle succeeded; want error")
			}
			var n int
			if err := ro.QueryRow(`SELECT COUNT(*) FROM station`).Scan(&n); err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 0 {
				t.Fatalf("count = %d, want 0", n)
			}
		})
	}
}

func TestOpen_LogSQLUsesConnector(t *testing.T) {
	cfg := config.Config{Driver: "sqlite3", DSN: ":memory:", LogSQL: true, MaxOpenConns: 1, MaxIdleConns: 1}
	conn, err := Open(context.Background(), cfg, ReadOnly)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = Close(conn) }()

	if _, ok := conn.Driver().(*loggingDriver); !ok {
		t.Fatalf("driver = %T; want *loggingDriver", conn.Driver())
	}
}

func TestClose_Nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v, want nil", err)
	}
}
