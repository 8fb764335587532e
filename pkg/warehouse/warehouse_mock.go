package warehouse

import (
	"context"
	"sync"

	"github.com/ethpandaops/fleetdw/pkg/records"
)

// MockWarehouse is an in-memory Warehouse for testing. Dimension rows are
// staged until CommitDimensions.
type MockWarehouse struct {
	mu sync.Mutex

	// Control behavior
	StartFunc  func(ctx context.Context) error
	CommitFunc func(ctx context.Context) error
	// LoadErr fails the Load call for the named table
	LoadErr map[string]error
	// WriteErr fails every dimension write
	WriteErr error

	// Track calls for assertions
	Started   bool
	Stopped   bool
	Commits   int
	Aircraft  []records.AircraftRow
	Dates     []records.DateRow
	Months    []records.MonthRow
	Days      []records.DayRow
	Reporters []records.ReporterRow
	Staged    int

	FlightOperationsDaily  [][]records.FlightOperationsDaily
	AircraftMonthlySummary [][]records.AircraftMonthlySummary
	Logbooks               [][]records.Logbook
	Runs                   []Run
	// Calls lists every method call in order
	Calls []string
}

// NewMockWarehouse creates a new mock warehouse
func NewMockWarehouse() *MockWarehouse {
	return &MockWarehouse{LoadErr: make(map[string]error)}
}

var _ Warehouse = (*MockWarehouse)(nil)

func (m *MockWarehouse) record(call string) {
	m.Calls = append(m.Calls, call)
}

// Start implements Warehouse
func (m *MockWarehouse) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Start")
	m.Started = true

	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}

	return nil
}

// Stop implements Warehouse
func (m *MockWarehouse) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Stop")
	m.Stopped = true

	return nil
}

// WriteAircraft implements Warehouse
func (m *MockWarehouse) WriteAircraft(_ context.Context, row records.AircraftRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("WriteAircraft")

	if m.WriteErr != nil {
		return m.WriteErr
	}

	m.Aircraft = append(m.Aircraft, row)
	m.Staged++

	return nil
}

// WriteDate implements Warehouse
func (m *MockWarehouse) WriteDate(_ context.Context, row records.DateRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("WriteDate")

	if m.WriteErr != nil {
		return m.WriteErr
	}

	m.Dates = append(m.Dates, row)
	m.Staged++

	return nil
}

// WriteMonth implements Warehouse
func (m *MockWarehouse) WriteMonth(_ context.Context, row records.MonthRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("WriteMonth")

	if m.WriteErr != nil {
		return m.WriteErr
	}

	m.Months = append(m.Months, row)
	m.Staged++

	return nil
}

// WriteDay implements Warehouse
func (m *MockWarehouse) WriteDay(_ context.Context, row records.DayRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("WriteDay")

	if m.WriteErr != nil {
		return m.WriteErr
	}

	m.Days = append(m.Days, row)
	m.Staged++

	return nil
}

// WriteReporter implements Warehouse
func (m *MockWarehouse) WriteReporter(_ context.Context, row records.ReporterRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("WriteReporter")

	if m.WriteErr != nil {
		return m.WriteErr
	}

	m.Reporters = append(m.Reporters, row)
	m.Staged++

	return nil
}

// CommitDimensions implements Warehouse
func (m *MockWarehouse) CommitDimensions(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("CommitDimensions")

	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}

	m.Commits++
	m.Staged = 0

	return nil
}

// LoadFlightOperationsDaily implements Warehouse
func (m *MockWarehouse) LoadFlightOperationsDaily(_ context.Context, rows []records.FlightOperationsDaily) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Load" + TableFlightOperationsDaily)

	if err := m.LoadErr[TableFlightOperationsDaily]; err != nil {
		return err
	}

	m.FlightOperationsDaily = append(m.FlightOperationsDaily, rows)

	return nil
}

// LoadAircraftMonthlySummary implements Warehouse
func (m *MockWarehouse) LoadAircraftMonthlySummary(_ context.Context, rows []records.AircraftMonthlySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Load" + TableAircraftMonthlySummary)

	if err := m.LoadErr[TableAircraftMonthlySummary]; err != nil {
		return err
	}

	m.AircraftMonthlySummary = append(m.AircraftMonthlySummary, rows)

	return nil
}

// LoadLogbooks implements Warehouse
func (m *MockWarehouse) LoadLogbooks(_ context.Context, rows []records.Logbook) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Load" + TableLogbooks)

	if err := m.LoadErr[TableLogbooks]; err != nil {
		return err
	}

	m.Logbooks = append(m.Logbooks, rows)

	return nil
}

// RecordRun implements Warehouse
func (m *MockWarehouse) RecordRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("RecordRun")
	m.Runs = append(m.Runs, run)

	return nil
}

// RowCounts implements Warehouse
func (m *MockWarehouse) RowCounts(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[string]int64{
		TableAircrafts: int64(len(m.Aircraft)),
		TableMonths:    int64(len(m.Months)),
		TableReporters: int64(len(m.Reporters)),
		TableDates:     int64(len(m.Dates)),
		TableDays:      int64(len(m.Days)),
		TableLogbooks:  0,
		TableRuns:      int64(len(m.Runs)),
	}

	for _, batch := range m.FlightOperationsDaily {
		counts[TableFlightOperationsDaily] += int64(len(batch))
	}

	for _, batch := range m.AircraftMonthlySummary {
		counts[TableAircraftMonthlySummary] += int64(len(batch))
	}

	for _, batch := range m.Logbooks {
		counts[TableLogbooks] += int64(len(batch))
	}

	return counts, nil
}
