// Package warehouse persists dimension and fact rows into the star schema.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/dimension"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/sirupsen/logrus"
)

// Table names
const (
	TableAircrafts              = "Aircrafts"
	TableDates                  = "Dates"
	TableMonths                 = "Months"
	TableDays                   = "Days"
	TableReporters              = "Reporters"
	TableFlightOperationsDaily  = "Flight_Operations_Daily"
	TableAircraftMonthlySummary = "Aircraft_Monthly_Summary"
	TableLogbooks               = "Logbooks"
	TableRuns                   = "ETL_Runs"
)

// Run statuses
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Run is an entry of the run ledger.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Cleaned    bool
	FactRows   int64
	Skipped    int64
	Violations int64
}

// Warehouse is the sink of a load. Dimension writes are visible to the
// load once CommitDimensions returns; each Load call is atomic.
type Warehouse interface {
	dimension.Writer

	// Start connects and rebuilds the star schema
	Start(ctx context.Context) error
	// CommitDimensions makes every dimension write durable
	CommitDimensions(ctx context.Context) error
	LoadFlightOperationsDaily(ctx context.Context, rows []records.FlightOperationsDaily) error
	LoadAircraftMonthlySummary(ctx context.Context, rows []records.AircraftMonthlySummary) error
	LoadLogbooks(ctx context.Context, rows []records.Logbook) error
	// RecordRun appends an entry to the run ledger
	RecordRun(ctx context.Context, run Run) error
	// RowCounts returns the number of rows per star schema table
	RowCounts(ctx context.Context) (map[string]int64, error)
	// Stop releases the connection
	Stop() error
}

var (
	_ Warehouse = (*DuckDB)(nil)
	_ Warehouse = (*ClickHouse)(nil)
)

// New creates the warehouse selected by cfg.
func New(log logrus.FieldLogger, cfg *Config) (Warehouse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverDuckDB:
		return NewDuckDB(log, cfg), nil
	case DriverClickHouse:
		ch, err := NewClickHouse(log, cfg)
		if err != nil {
			return nil, err
		}

		return ch, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// starTables returns the star schema tables for a hierarchy in creation order.
func starTables(hierarchy dimension.Hierarchy) []string {
	dateTable := TableDates
	if hierarchy == dimension.HierarchySnowflake {
		dateTable = TableDays
	}

	return []string{
		TableAircrafts,
		TableMonths,
		dateTable,
		TableReporters,
		TableFlightOperationsDaily,
		TableAircraftMonthlySummary,
		TableLogbooks,
	}
}
