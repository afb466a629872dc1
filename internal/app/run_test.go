package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/config"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/db"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/migrate"
)

func testConfig(path string) config.Config {
	return config.Config{
		AppEnv:         "dev",
		LogLevel:       slog.LevelInfo,
		HTTPAddr:       "127.0.0.1:0",
		Driver:         "sqlite3",
		Path:           path,
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		TobsStation:    "USC00519281",
		TobsAnchorDate: time.Date(2017, 8, 23, 0, 0, 0, 0, time.UTC),
		TobsWindowDays: 365,
	}
}

func quietLogs(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
}

// createDataset writes an empty dataset file, with or without the schema.
func createDataset(t *testing.T, withSchema bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	cfg := testConfig(path)

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg, db.ReadWrite)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if withSchema {
		if err := migrate.Run(ctx, conn, cfg.Driver); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return path
}

func TestRun_MissingDataset(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.sqlite"))

	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("Run() = nil; want error for missing dataset")
	}
	if !strings.Contains(err.Error(), "missing.sqlite") {
		t.Errorf("error = %v; want the path mentioned", err)
	}
}

func TestRun_SchemaMismatch(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(createDataset(t, false))

	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("Run() = nil; want schema error")
	}
	if !strings.Contains(err.Error(), "climate schema") {
		t.Errorf("error = %v", err)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(createDataset(t, true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() = %v; want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenFailure(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(createDataset(t, true))
	cfg.HTTPAddr = "not-an-address"

	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("Run() = nil; want listen error")
	}
}
