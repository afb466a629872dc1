package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/config"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/dataset"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/db"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/logging"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/migrate"
)

const appName = "climatedb"

var version = "dev"

const usage = `usage: climatedb <command> [flags]

commands:
  migrate   apply pending schema migrations
  import    load station and measurement CSV files

run "climatedb <command> --help" for the flags of a command
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "migrate":
		err = runMigrate(ctx, args[1:], stdout, stderr)
	case "import":
		err = runImport(ctx, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// dbFlags are shared by every command. Defaults come from the same
// environment variables the service reads.
type dbFlags struct {
	driver     string
	dsn        string
	sqlitePath string
	logSQL     bool
}

func addDBFlags(fs *flag.FlagSet, defaults config.Config) *dbFlags {
	f := &dbFlags{}
	fs.StringVar(&f.driver, "driver", defaults.Driver, "database/sql driver: sqlite3, sqlite or pgx")
	fs.StringVar(&f.dsn, "dsn", defaults.DSN, "full data source name (required for pgx)")
	fs.StringVarP(&f.sqlitePath, "sqlite-path", "p", defaults.Path, "SQLite file, created when missing")
	fs.BoolVar(&f.logSQL, "log-sql", defaults.LogSQL, "log every SQL statement at debug level")
	return f
}

func (f *dbFlags) open(ctx context.Context, base config.Config, stderr io.Writer) (*dbSession, error) {
	cfg := base
	cfg.Driver = strings.ToLower(strings.TrimSpace(f.driver))
	cfg.DSN = strings.TrimSpace(f.dsn)
	cfg.Path = strings.TrimSpace(f.sqlitePath)
	cfg.LogSQL = f.logSQL
	switch cfg.Driver {
	case "sqlite3", "sqlite", "pgx":
	default:
		return nil, fmt.Errorf("invalid --driver %q (allowed: sqlite3, sqlite, pgx)", f.driver)
	}
	if cfg.LogSQL {
		cfg.LogLevel = slog.LevelDebug
	}
	slog.SetDefault(logging.New(stderr, cfg, version, appName))

	conn, err := db.Open(ctx, cfg, db.ReadWrite)
	if err != nil {
		return nil, err
	}
	return &dbSession{cfg: cfg, conn: conn}, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func baseConfig() config.Config {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		// Fall back to built-in defaults; flags still override everything.
		cfg = config.Config{AppEnv: "dev", LogLevel: slog.LevelInfo, Driver: "sqlite3", Path: "Resources/hawaii.sqlite", MaxOpenConns: 1, MaxIdleConns: 1}
	}
	return cfg
}

func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	base := baseConfig()
	fs := newFlagSet("migrate", stderr)
	dbf := addDBFlags(fs, base)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := dbf.open(ctx, base, stderr)
	if err != nil {
		return err
	}
	defer s.close()

	if err := migrate.Run(ctx, s.conn, s.cfg.Driver); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "migrations applied")
	return nil
}

func runImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	base := baseConfig()
	fs := newFlagSet("import", stderr)
	dbf := addDBFlags(fs, base)
	stationsPath := fs.StringP("stations", "s", "", "stations CSV (station,name,latitude,longitude,elevation)")
	measurementsPath := fs.StringP("measurements", "m", "", "measurements CSV (station,date,prcp,tobs)")
	skipMigrate := fs.Bool("skip-migrate", false, "do not apply pending migrations before importing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *stationsPath == "" && *measurementsPath == "" {
		return errors.New("nothing to import: pass --stations and/or --measurements")
	}

	var stations, measurements io.Reader
	if *stationsPath != "" {
		f, err := os.Open(*stationsPath)
		if err != nil {
			return err
		}
		defer f.Close()
		stations = f
	}
	if *measurementsPath != "" {
		f, err := os.Open(*measurementsPath)
		if err != nil {
			return err
		}
		defer f.Close()
		measurements = f
	}

	s, err := dbf.open(ctx, base, stderr)
	if err != nil {
		return err
	}
	defer s.close()

	if !*skipMigrate {
		if err := migrate.Run(ctx, s.conn, s.cfg.Driver); err != nil {
			return err
		}
	}

	res, err := dataset.NewImporter(s.conn, s.cfg.Driver).Import(ctx, stations, measurements)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %d stations, %d measurements\n", res.Stations, res.Measurements)
	return nil
}

type dbSession struct {
	cfg  config.Config
	conn *sql.DB
}

func (s *dbSession) close() {
	if err := db.Close(s.conn); err != nil {
		slog.Error("db close", "error", err)
	}
}
