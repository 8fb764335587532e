package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver
	"github.com/ethpandaops/fleetdw/pkg/dimension"
	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/sirupsen/logrus"
)

const memoryPath = ":memory:"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DuckDB is the embedded warehouse. Dimension writes share one transaction
// that CommitDimensions commits; each fact load runs in its own transaction.
type DuckDB struct {
	log       logrus.FieldLogger
	cfg       *Config
	hierarchy dimension.Hierarchy

	db    *sql.DB
	mu    sync.Mutex
	dimTx *sql.Tx
}

// NewDuckDB creates a DuckDB warehouse. Nothing is opened until Start.
func NewDuckDB(log logrus.FieldLogger, cfg *Config) *DuckDB {
	return &DuckDB{
		log:       log.WithFields(logrus.Fields{"component": "warehouse", "driver": DriverDuckDB}),
		cfg:       cfg,
		hierarchy: cfg.Hierarchy(),
	}
}

func (d *DuckDB) dsn() string {
	params := url.Values{}
	params.Set("access_mode", "read_write")

	if d.cfg.DuckDB.Threads > 0 {
		params.Set("threads", strconv.Itoa(d.cfg.DuckDB.Threads))
	}

	if d.cfg.DuckDB.MaxMemory != "" {
		params.Set("max_memory", d.cfg.DuckDB.MaxMemory)
	}

	return d.cfg.DuckDB.Path + "?" + params.Encode()
}

// Start opens the database and rebuilds the star schema.
func (d *DuckDB) Start(ctx context.Context) error {
	path := d.cfg.DuckDB.Path

	if d.cfg.Reset && path != memoryPath {
		for _, file := range []string{path, path + ".wal"} {
			if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", file, err)
			}
		}
	}

	db, err := sql.Open("duckdb", d.dsn())
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return fmt.Errorf("failed to connect to duckdb: %w", err)
	}

	d.db = db

	for _, statement := range duckDBSchema(d.hierarchy) {
		if err := d.exec(ctx, d.db, "ddl", statement); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	d.log.WithFields(logrus.Fields{
		"path":      path,
		"hierarchy": d.hierarchy,
	}).Info("Warehouse schema created")

	return nil
}

// Stop rolls back uncommitted dimension writes and closes the database.
func (d *DuckDB) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dimTx != nil {
		if err := d.dimTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			d.log.WithError(err).Warn("Failed to roll back dimension transaction")
		}

		d.dimTx = nil
	}

	if d.db == nil {
		return nil
	}

	err := d.db.Close()
	d.db = nil

	return err
}

func (d *DuckDB) exec(ctx context.Context, e execer, queryType, query string, args ...any) error {
	start := time.Now()
	_, err := e.ExecContext(ctx, query, args...)

	status := "success"
	if err != nil {
		status = "error"
	}

	observability.RecordWarehouseQuery(DriverDuckDB, queryType, status, time.Since(start).Seconds())

	return err
}

func (d *DuckDB) writeDimension(ctx context.Context, query string, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dimTx == nil {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin dimension transaction: %w", err)
		}

		d.dimTx = tx
	}

	return d.exec(ctx, d.dimTx, "insert", query, args...)
}

// WriteAircraft inserts an aircraft row
func (d *DuckDB) WriteAircraft(ctx context.Context, row records.AircraftRow) error {
	return d.writeDimension(ctx, insertStatement(TableAircrafts, 5),
		row.AircraftID, row.RegistrationCode, row.ManufacturerSerialNumber, row.Model, row.ManufacturerClass)
}

// WriteDate inserts a date row
func (d *DuckDB) WriteDate(ctx context.Context, row records.DateRow) error {
	return d.writeDimension(ctx, "INSERT INTO Dates VALUES (?, CAST(? AS DATE), ?, ?, ?)",
		row.DateID, row.FullDate, row.DayNum, row.MonthNum, row.Year)
}

// WriteMonth inserts a month row
func (d *DuckDB) WriteMonth(ctx context.Context, row records.MonthRow) error {
	return d.writeDimension(ctx, insertStatement(TableMonths, 3), row.MonthID, row.MonthNum, row.Year)
}

// WriteDay inserts a snowflaked day row
func (d *DuckDB) WriteDay(ctx context.Context, row records.DayRow) error {
	return d.writeDimension(ctx, insertStatement(TableDays, 3), row.DayID, row.MonthID, row.DayNum)
}

// WriteReporter inserts a reporter row
func (d *DuckDB) WriteReporter(ctx context.Context, row records.ReporterRow) error {
	return d.writeDimension(ctx, insertStatement(TableReporters, 3), row.ReporterID, row.ReporterClass, row.AirportCode)
}

// CommitDimensions commits the pending dimension transaction.
func (d *DuckDB) CommitDimensions(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dimTx == nil {
		return nil
	}

	err := d.dimTx.Commit()
	d.dimTx = nil

	if err != nil {
		return fmt.Errorf("failed to commit dimensions: %w", err)
	}

	return nil
}

// load inserts n rows of table in a single transaction.
func (d *DuckDB) load(ctx context.Context, table string, columns, n int, args func(i int) []any) (err error) {
	if n == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin %s load: %w", table, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				d.log.WithError(rbErr).WithField("table", table).Warn("Failed to roll back load")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertStatement(table, columns))
	if err != nil {
		return fmt.Errorf("failed to prepare %s load: %w", table, err)
	}
	defer stmt.Close()

	start := time.Now()

	for i := 0; i < n; i++ {
		if _, err = stmt.ExecContext(ctx, args(i)...); err != nil {
			observability.RecordWarehouseQuery(DriverDuckDB, "insert", "error", time.Since(start).Seconds())

			return fmt.Errorf("failed to insert %s row %d: %w", table, i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s load: %w", table, err)
	}

	observability.RecordWarehouseQuery(DriverDuckDB, "insert", "success", time.Since(start).Seconds())

	return nil
}

// LoadFlightOperationsDaily loads the daily flight operations facts
func (d *DuckDB) LoadFlightOperationsDaily(ctx context.Context, rows []records.FlightOperationsDaily) error {
	return d.load(ctx, TableFlightOperationsDaily, 7, len(rows), func(i int) []any {
		r := &rows[i]

		return []any{r.DateID, r.AircraftID, r.FH, r.Takeoffs, r.DFC, r.CFC, r.TDM}
	})
}

// LoadAircraftMonthlySummary loads the monthly maintenance facts
func (d *DuckDB) LoadAircraftMonthlySummary(ctx context.Context, rows []records.AircraftMonthlySummary) error {
	return d.load(ctx, TableAircraftMonthlySummary, 5, len(rows), func(i int) []any {
		r := &rows[i]

		return []any{r.MonthID, r.AircraftID, r.ADIS, r.ADOSS, r.ADOSU}
	})
}

// LoadLogbooks loads the monthly logbook facts
func (d *DuckDB) LoadLogbooks(ctx context.Context, rows []records.Logbook) error {
	return d.load(ctx, TableLogbooks, 4, len(rows), func(i int) []any {
		r := &rows[i]

		return []any{r.MonthID, r.AircraftID, r.ReporterID, r.LogCount}
	})
}

// RecordRun appends the run to the ledger
func (d *DuckDB) RecordRun(ctx context.Context, run Run) error {
	return d.exec(ctx, d.db, "insert", insertStatement(TableRuns, 9),
		run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Status, run.Error,
		run.Cleaned, run.FactRows, run.Skipped, run.Violations)
}

// RowCounts returns the number of rows per star schema table
func (d *DuckDB) RowCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)

	for _, table := range starTables(d.hierarchy) {
		var n int64
		if err := d.db.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}

		counts[table] = n
	}

	return counts, nil
}

func insertStatement(table string, columns int) string {
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.TrimSuffix(strings.Repeat("?, ", columns), ", "))
}
