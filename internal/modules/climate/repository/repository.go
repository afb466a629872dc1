package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/db"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/types"
)

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-station-ids.sql
var getStationIDsSQL string

//go:embed sql/get-temperature-observations.sql
var getTemperatureObservationsSQL string

//go:embed sql/get-temperature-summary-from.sql
var getTemperatureSummaryFromSQL string

//go:embed sql/get-temperature-summary-range.sql
var getTemperatureSummaryRangeSQL string

//go:embed sql/check-schema.sql
var checkSchemaSQL string

type ClimateRepository interface {
	// GetPrecipitation returns every (date, prcp) row ordered by date.
	GetPrecipitation(ctx context.Context) ([]types.Precipitation, error)
	// GetStationIDs returns the station column of every station row, unsorted
	// and without dedup.
	GetStationIDs(ctx context.Context) ([]string, error)
	// GetTemperatureObservations returns readings of stationID dated on or
	// after since, ordered by temperature.
	GetTemperatureObservations(ctx context.Context, stationID string, since string) ([]types.Observation, error)
	// GetTemperatureSummary aggregates tobs for date >= start, and date <= *end
	// when end is non-nil. Dates compare as strings.
	GetTemperatureSummary(ctx context.Context, start string, end *string) (types.TemperatureSummary, error)
	// CheckSchema fails when the station or measurement columns are missing.
	CheckSchema(ctx context.Context) error
}

type repositoryImpl struct {
	db      *sql.DB
	queries queries
}

type queries struct {
	precipitation string
	stationIDs    string
	observations  string
	summaryFrom   string
	summaryRange  string
	checkSchema   string
}

// NewRepository returns a repository over conn. driver is the database/sql
// driver name conn was opened with; it picks the placeholder style and, on
// pgx, pins date comparisons to byte order so every backend agrees.
func NewRepository(conn *sql.DB, driver string) ClimateRepository {
	prepare := func(query string) string {
		return db.Rebind(driver, db.Bytewise(driver, query, "date"))
	}
	return &repositoryImpl{
		db: conn,
		queries: queries{
			precipitation: prepare(getPrecipitationSQL),
			stationIDs:    prepare(getStationIDsSQL),
			observations:  prepare(getTemperatureObservationsSQL),
			summaryFrom:   prepare(getTemperatureSummaryFromSQL),
			summaryRange:  prepare(getTemperatureSummaryRangeSQL),
			checkSchema:   prepare(checkSchemaSQL),
		},
	}
}

func (r *repositoryImpl) GetPrecipitation(ctx context.Context) ([]types.Precipitation, error) {
	rows, err := r.db.QueryContext(ctx, r.queries.precipitation)
	if err != nil {
		return nil, fmt.Errorf("query precipitation: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close precipitation rows", "error", err)
		}
	}()
	out := []types.Precipitation{}
	for rows.Next() {
		var (
			p    types.Precipitation
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &prcp); err != nil {
			return nil, fmt.Errorf("scan precipitation: %w", err)
		}
		p.Value = nullFloat(prcp)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetStationIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.queries.stationIDs)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetTemperatureObservations(ctx context.Context, stationID string, since string) ([]types.Observation, error) {
	rows, err := r.db.QueryContext(ctx, r.queries.observations, since, stationID)
	if err != nil {
		return nil, fmt.Errorf("query temperature observations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close temperature observation rows", "error", err)
		}
	}()
	out := []types.Observation{}
	for rows.Next() {
		var (
			o    types.Observation
			tobs sql.NullFloat64
		)
		if err := rows.Scan(&tobs, &o.Date); err != nil {
			return nil, fmt.Errorf("scan temperature observation: %w", err)
		}
		o.Temperature = nullFloat(tobs)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetTemperatureSummary(ctx context.Context, start string, end *string) (types.TemperatureSummary, error) {
	var row *sql.Row
	if end == nil {
		row = r.db.QueryRowContext(ctx, r.queries.summaryFrom, start)
	} else {
		row = r.db.QueryRowContext(ctx, r.queries.summaryRange, start, *end)
	}

	var lo, avg, hi sql.NullFloat64
	if err := row.Scan(&lo, &avg, &hi); err != nil {
		return types.TemperatureSummary{}, fmt.Errorf("query temperature summary: %w", err)
	}
	return types.TemperatureSummary{
		Min: nullFloat(lo),
		Avg: nullFloat(avg),
		Max: nullFloat(hi),
	}, nil
}

func (r *repositoryImpl) CheckSchema(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, r.queries.checkSchema)
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
