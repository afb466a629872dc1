package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/config"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/db"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/httpapi"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/controller"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/repository"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/views"
)

const shutdownTimeout = 10 * time.Second

// Run opens the dataset read-only, verifies its schema and serves the API
// until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbDSNSet", cfg.DSN != "",
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbLogSQL", cfg.LogSQL,
		"tobsStation", cfg.TobsStation,
		"tobsCutoff", cfg.TobsCutoff(),
	)

	dbConn, err := db.Open(ctx, cfg, db.ReadOnly)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()
	slog.Info("database connection successful")

	if err := repository.NewRepository(dbConn, cfg.Driver).CheckSchema(ctx); err != nil {
		return fmt.Errorf("dataset does not match the climate schema: %w", err)
	}

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	mux := httpapi.NewMux(dbConn)
	climate.RegisterFeature(mux, dbConn, cfg.Driver, controller.Options{
		TobsStation: cfg.TobsStation,
		TobsCutoff:  cfg.TobsCutoff(),
	})

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
