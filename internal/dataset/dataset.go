// Package dataset loads the Hawaii station and measurement CSV exports into
// the declared schema.
package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/db"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/types"
)

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

const (
	insertStationSQL     = `INSERT INTO station (id, station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?, ?)`
	insertMeasurementSQL = `INSERT INTO measurement (id, station, date, prcp, tobs) VALUES (?, ?, ?, ?, ?)`
)

// Result counts the rows written per table.
type Result struct {
	Stations     int
	Measurements int
}

type Importer struct {
	conn   *sql.DB
	driver string
}

func NewImporter(conn *sql.DB, driver string) *Importer {
	return &Importer{conn: conn, driver: driver}
}

// Import reads both CSV streams and inserts their rows in a single
// transaction. Either reader may be nil to skip that table. Ids continue
// after the largest id already stored, so repeated imports append.
func (im *Importer) Import(ctx context.Context, stations, measurements io.Reader) (Result, error) {
	var res Result

	tx, err := im.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if stations != nil {
		n, err := im.load(ctx, tx, "station", stations, stationColumns, insertStationSQL, stationArgs)
		if err != nil {
			return res, err
		}
		res.Stations = n
	}
	if measurements != nil {
		n, err := im.load(ctx, tx, "measurement", measurements, measurementColumns, insertMeasurementSQL, measurementArgs)
		if err != nil {
			return res, err
		}
		res.Measurements = n
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit import: %w", err)
	}
	slog.Info("dataset imported", "stations", res.Stations, "measurements", res.Measurements)
	return res, nil
}

type rowArgs func(fields []string) ([]any, error)

func (im *Importer) load(ctx context.Context, tx *sql.Tx, table string, r io.Reader, columns []string, insert string, toArgs rowArgs) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("%s csv header: %w", table, err)
	}
	index, err := columnIndex(header, columns)
	if err != nil {
		return 0, fmt.Errorf("%s csv header: %w", table, err)
	}

	var nextID int64
	// The table name comes from a fixed set, never from input.
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM "+table).Scan(&nextID); err != nil {
		return 0, fmt.Errorf("%s max id: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, db.Rebind(im.driver, insert))
	if err != nil {
		return 0, fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer func() { _ = stmt.Close() }()

	count := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("%s csv: %w", table, err)
		}
		line, _ := cr.FieldPos(0)

		fields := make([]string, len(columns))
		for i, col := range index {
			fields[i] = strings.TrimSpace(record[col])
		}
		args, err := toArgs(fields)
		if err != nil {
			return count, fmt.Errorf("%s csv line %d: %w", table, line, err)
		}

		nextID++
		if _, err := stmt.ExecContext(ctx, append([]any{nextID}, args...)...); err != nil {
			return count, fmt.Errorf("insert %s line %d: %w", table, line, err)
		}
		count++
	}
	return count, nil
}

// columnIndex maps each wanted column to its position in header. Extra
// columns (such as a leading id) are ignored.
func columnIndex(header, want []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	index := make([]int, len(want))
	for i, col := range want {
		p, ok := pos[col]
		if !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
		index[i] = p
	}
	return index, nil
}

func stationArgs(f []string) ([]any, error) {
	st, err := parseStation(f)
	if err != nil {
		return nil, err
	}
	return []any{st.ID, st.Name, st.Latitude, st.Longitude, st.Elevation}, nil
}

func measurementArgs(f []string) ([]any, error) {
	m, err := parseMeasurement(f)
	if err != nil {
		return nil, err
	}
	return []any{m.StationID, m.Date, m.Precipitation, m.Temperature}, nil
}

// parseStation builds a station from fields ordered as stationColumns.
func parseStation(f []string) (types.Station, error) {
	if f[0] == "" {
		return types.Station{}, errors.New("empty station id")
	}
	st := types.Station{ID: f[0], Name: f[1]}
	var err error
	if st.Latitude, err = parseNullFloat("latitude", f[2]); err != nil {
		return types.Station{}, err
	}
	if st.Longitude, err = parseNullFloat("longitude", f[3]); err != nil {
		return types.Station{}, err
	}
	if st.Elevation, err = parseNullFloat("elevation", f[4]); err != nil {
		return types.Station{}, err
	}
	return st, nil
}

// parseMeasurement builds a measurement from fields ordered as
// measurementColumns.
func parseMeasurement(f []string) (types.Measurement, error) {
	if f[0] == "" {
		return types.Measurement{}, errors.New("empty station id")
	}
	if f[1] == "" {
		return types.Measurement{}, errors.New("empty date")
	}
	m := types.Measurement{StationID: f[0], Date: f[1]}
	var err error
	if m.Precipitation, err = parseNullFloat("prcp", f[2]); err != nil {
		return types.Measurement{}, err
	}
	if m.Temperature, err = parseNullFloat("tobs", f[3]); err != nil {
		return types.Measurement{}, err
	}
	return m, nil
}

// parseNullFloat maps an empty field to nil, which is stored as NULL.
func parseNullFloat(column, s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", column, s)
	}
	return &v, nil
}
