package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/rendering"
	_ "github.com/lib/pq" // registers the postgres driver
	"github.com/sirupsen/logrus"
)

// Postgres reads operational records from the AIMS and AMOS schemas.
type Postgres struct {
	log     logrus.FieldLogger
	cfg     *PostgresConfig
	queries map[string]string
	db      *sql.DB
}

// NewPostgres creates a Postgres reader. The connection is opened by Start.
func NewPostgres(log logrus.FieldLogger, cfg *PostgresConfig) (*Postgres, error) {
	queries, err := renderQueries(rendering.NewTemplateEngine(), cfg)
	if err != nil {
		return nil, err
	}

	return &Postgres{
		log:     log.WithField("component", "postgres-source"),
		cfg:     cfg,
		queries: queries,
	}, nil
}

// Start opens and verifies the connection
func (p *Postgres) Start(ctx context.Context) error {
	db, err := sql.Open("postgres", p.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	p.db = db

	p.log.Info("Connected to source database")

	return nil
}

// Stop closes the connection
func (p *Postgres) Stop() error {
	if p.db == nil {
		return nil
	}

	err := p.db.Close()
	p.db = nil

	return err
}

// scanner is satisfied by *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// query runs a named query and scans every row with scan.
func query[T any](ctx context.Context, p *Postgres, name string, scan func(scanner) (T, error)) ([]T, error) {
	if p.db == nil {
		return nil, ErrExtractorStopped
	}

	rows, err := p.db.QueryContext(ctx, p.queries[name])
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	var out []T

	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row %d: %w", name, len(out), err)
		}

		out = append(out, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	p.log.WithFields(logrus.Fields{"query": name, "rows": len(out)}).Debug("Extracted records")

	return out, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time

	return &v
}

func scanFlight(row scanner) (records.Flight, error) {
	var (
		f                                records.Flight
		actualDeparture, actualArrival   sql.NullTime
		aircraft, delayCode              sql.NullString
		scheduledDeparture, scheduledArr sql.NullTime
	)

	if err := row.Scan(&f.ID, &aircraft, &scheduledDeparture, &scheduledArr,
		&actualDeparture, &actualArrival, &f.Cancelled, &delayCode); err != nil {
		return f, err
	}

	f.AircraftRegistration = aircraft.String
	f.ScheduledDeparture = scheduledDeparture.Time
	f.ScheduledArrival = scheduledArr.Time
	f.ActualDeparture = nullableTime(actualDeparture)
	f.ActualArrival = nullableTime(actualArrival)
	f.DelayCode = delayCode.String

	return f, nil
}

func scanMaintenance(row scanner) (records.MaintenanceWindow, error) {
	var (
		m                          records.MaintenanceWindow
		aircraft                   sql.NullString
		scheduledDep, scheduledArr sql.NullTime
	)

	if err := row.Scan(&m.ID, &aircraft, &scheduledDep, &scheduledArr, &m.Programmed); err != nil {
		return m, err
	}

	m.AircraftRegistration = aircraft.String
	m.ScheduledDeparture = scheduledDep.Time
	m.ScheduledArrival = scheduledArr.Time

	return m, nil
}

func scanReport(row scanner) (records.PostFlightReport, error) {
	var (
		r                                         records.PostFlightReport
		aircraft, class, reporter, executionPlace sql.NullString
		reportingDate                             sql.NullTime
		tlbOrder                                  sql.NullInt64
	)

	if err := row.Scan(&r.ID, &aircraft, &reportingDate, &class, &reporter, &executionPlace, &tlbOrder); err != nil {
		return r, err
	}

	r.AircraftRegistration = aircraft.String
	r.ReportingDate = reportingDate.Time
	r.ReporterClass = class.String
	r.ReporterID = reporter.String
	r.ExecutionPlace = executionPlace.String

	if tlbOrder.Valid {
		v := tlbOrder.Int64
		r.TLBOrder = &v
	}

	return r, nil
}

func scanLogbookEntry(row scanner) (records.TechnicalLogbookEntry, error) {
	var (
		e                                  records.TechnicalLogbookEntry
		aircraft, executionPlace, reporter sql.NullString
		reportingDate                      sql.NullTime
	)

	if err := row.Scan(&e.WorkOrderID, &aircraft, &reportingDate, &executionPlace, &reporter); err != nil {
		return e, err
	}

	e.AircraftRegistration = aircraft.String
	e.ReportingDate = reportingDate.Time
	e.ExecutionPlace = executionPlace.String
	e.ReporterID = reporter.String

	return e, nil
}

// Flights reads every flight
func (p *Postgres) Flights(ctx context.Context) ([]records.Flight, error) {
	return query(ctx, p, QueryFlights, scanFlight)
}

// Maintenance reads every maintenance window
func (p *Postgres) Maintenance(ctx context.Context) ([]records.MaintenanceWindow, error) {
	return query(ctx, p, QueryMaintenance, scanMaintenance)
}

// Reports reads every post-flight report
func (p *Postgres) Reports(ctx context.Context) ([]records.PostFlightReport, error) {
	return query(ctx, p, QueryReports, scanReport)
}

// Logbook reads every technical logbook order
func (p *Postgres) Logbook(ctx context.Context) ([]records.TechnicalLogbookEntry, error) {
	return query(ctx, p, QueryLogbook, scanLogbookEntry)
}
