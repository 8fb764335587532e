package warehouse

import (
	"context"
	"fmt"

	"github.com/ethpandaops/fleetdw/pkg/clickhouse"
	"github.com/ethpandaops/fleetdw/pkg/dimension"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/rendering"
	"github.com/sirupsen/logrus"
)

// ClickHouse is the warehouse backed by a ClickHouse server. MergeTree has
// no transactions, so dimension rows are inserted as they are registered
// and CommitDimensions only marks the boundary.
type ClickHouse struct {
	log       logrus.FieldLogger
	cfg       *Config
	hierarchy dimension.Hierarchy
	database  string
	client    clickhouse.ClientInterface
	templates *rendering.TemplateEngine
}

// runRow is the ClickHouse encoding of a ledger entry
type runRow struct {
	RunID      string `json:"Run_ID"`
	StartedAt  int64  `json:"Started_At"`
	FinishedAt int64  `json:"Finished_At"`
	Status     string `json:"Status"`
	Error      string `json:"Error"`
	Cleaned    bool   `json:"Cleaned"`
	FactRows   int64  `json:"Fact_Rows"`
	Skipped    int64  `json:"Skipped"`
	Violations int64  `json:"Violations"`
}

type countRow struct {
	Count int64 `json:"count,string"`
}

// NewClickHouse creates a ClickHouse warehouse using the HTTP client.
func NewClickHouse(log logrus.FieldLogger, cfg *Config) (*ClickHouse, error) {
	client, err := clickhouse.NewClient(log, &cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("failed to create clickhouse client: %w", err)
	}

	return newClickHouseWithClient(log, cfg, client), nil
}

func newClickHouseWithClient(log logrus.FieldLogger, cfg *Config, client clickhouse.ClientInterface) *ClickHouse {
	return &ClickHouse{
		log:       log.WithFields(logrus.Fields{"component": "warehouse", "driver": DriverClickHouse}),
		cfg:       cfg,
		hierarchy: cfg.Hierarchy(),
		database:  cfg.ClickHouse.MapDatabase(cfg.ClickHouse.Database),
		client:    client,
		templates: rendering.NewTemplateEngine(),
	}
}

// Start connects and rebuilds the star schema.
func (c *ClickHouse) Start(ctx context.Context) error {
	if err := c.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start clickhouse client: %w", err)
	}

	statements, err := clickHouseSchema(c.templates, c.database, c.hierarchy, c.cfg.Reset)
	if err != nil {
		return fmt.Errorf("failed to render schema: %w", err)
	}

	for _, statement := range statements {
		if err := c.client.Execute(ctx, statement); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	c.log.WithFields(logrus.Fields{
		"database":  c.database,
		"hierarchy": c.hierarchy,
	}).Info("Warehouse schema created")

	return nil
}

// Stop closes the client
func (c *ClickHouse) Stop() error {
	return c.client.Stop()
}

func (c *ClickHouse) table(name string) string {
	return c.database + "." + name
}

func insertOne[T any](ctx context.Context, c *ClickHouse, table string, row T) error {
	return c.client.BulkInsert(ctx, c.table(table), []T{row})
}

// WriteAircraft inserts an aircraft row
func (c *ClickHouse) WriteAircraft(ctx context.Context, row records.AircraftRow) error {
	return insertOne(ctx, c, TableAircrafts, row)
}

// WriteDate inserts a date row
func (c *ClickHouse) WriteDate(ctx context.Context, row records.DateRow) error {
	return insertOne(ctx, c, TableDates, row)
}

// WriteMonth inserts a month row
func (c *ClickHouse) WriteMonth(ctx context.Context, row records.MonthRow) error {
	return insertOne(ctx, c, TableMonths, row)
}

// WriteDay inserts a snowflaked day row
func (c *ClickHouse) WriteDay(ctx context.Context, row records.DayRow) error {
	return insertOne(ctx, c, TableDays, row)
}

// WriteReporter inserts a reporter row
func (c *ClickHouse) WriteReporter(ctx context.Context, row records.ReporterRow) error {
	return insertOne(ctx, c, TableReporters, row)
}

// CommitDimensions is a no-op, every dimension insert is already durable.
func (c *ClickHouse) CommitDimensions(_ context.Context) error {
	return nil
}

// LoadFlightOperationsDaily loads the daily flight operations facts
func (c *ClickHouse) LoadFlightOperationsDaily(ctx context.Context, rows []records.FlightOperationsDaily) error {
	return c.client.BulkInsert(ctx, c.table(TableFlightOperationsDaily), rows)
}

// LoadAircraftMonthlySummary loads the monthly maintenance facts
func (c *ClickHouse) LoadAircraftMonthlySummary(ctx context.Context, rows []records.AircraftMonthlySummary) error {
	return c.client.BulkInsert(ctx, c.table(TableAircraftMonthlySummary), rows)
}

// LoadLogbooks loads the monthly logbook facts
func (c *ClickHouse) LoadLogbooks(ctx context.Context, rows []records.Logbook) error {
	return c.client.BulkInsert(ctx, c.table(TableLogbooks), rows)
}

// RecordRun appends the run to the ledger
func (c *ClickHouse) RecordRun(ctx context.Context, run Run) error {
	return insertOne(ctx, c, TableRuns, runRow{
		RunID:      run.RunID,
		StartedAt:  run.StartedAt.Unix(),
		FinishedAt: run.FinishedAt.Unix(),
		Status:     run.Status,
		Error:      run.Error,
		Cleaned:    run.Cleaned,
		FactRows:   run.FactRows,
		Skipped:    run.Skipped,
		Violations: run.Violations,
	})
}

// RowCounts returns the number of rows per star schema table
func (c *ClickHouse) RowCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)

	for _, table := range starTables(c.hierarchy) {
		var row countRow
		if err := c.client.QueryOne(ctx, fmt.Sprintf("SELECT count() AS count FROM %s", c.table(table)), &row); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}

		counts[table] = row.Count
	}

	return counts, nil
}
