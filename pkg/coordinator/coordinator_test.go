package coordinator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/aggregation"
	"github.com/ethpandaops/fleetdw/pkg/cleaning"
	"github.com/ethpandaops/fleetdw/pkg/dimension"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/warehouse"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSink = errors.New("sink unavailable")

func newTestCoordinator(t *testing.T, sink warehouse.Warehouse, opts Options) *Coordinator {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if sink == nil {
		sink = warehouse.NewMockWarehouse()
	}

	if opts.Hierarchy == "" {
		opts.Hierarchy = dimension.HierarchyFlat
	}

	return New(log, sink, opts)
}

func at(value string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		panic(err)
	}

	return t
}

func ptr(t time.Time) *time.Time {
	return &t
}

func fleet(registrations ...string) []records.AircraftInfo {
	out := make([]records.AircraftInfo, 0, len(registrations))
	for i, reg := range registrations {
		out = append(out, records.AircraftInfo{
			RegistrationCode:         reg,
			ManufacturerSerialNumber: fmt.Sprintf("MSN%d", i),
			Model:                    "A320",
			Manufacturer:             "Airbus",
		})
	}

	return out
}

func TestCoordinator_EndToEnd(t *testing.T) {
	sink := warehouse.NewMockWarehouse()
	c := newTestCoordinator(t, sink, Options{Clean: true})

	batch := &records.Batch{
		Fleet: fleet("AB1"),
		Flights: []records.Flight{
			{
				ID:                   "F1",
				AircraftRegistration: "AB1",
				ScheduledDeparture:   at("2024-01-15 08:00"),
				ScheduledArrival:     at("2024-01-15 10:00"),
				ActualDeparture:      ptr(at("2024-01-15 08:00")),
				ActualArrival:        ptr(at("2024-01-15 10:00")),
			},
			{
				ID:                   "F2",
				AircraftRegistration: "AB1",
				ScheduledDeparture:   at("2024-01-15 12:00"),
				ScheduledArrival:     at("2024-01-15 13:30"),
				Cancelled:            true,
			},
		},
	}

	summary, err := c.Load(context.Background(), RunInfo{ID: "run-1", StartedAt: time.Now()}, batch)
	require.NoError(t, err)

	require.Len(t, sink.FlightOperationsDaily, 1)
	require.Len(t, sink.FlightOperationsDaily[0], 1)

	require.Len(t, sink.Dates, 1)
	require.Len(t, sink.Aircraft, 1)

	assert.Equal(t, records.FlightOperationsDaily{
		DateID:     sink.Dates[0].DateID,
		AircraftID: sink.Aircraft[0].AircraftID,
		FH:         2.0,
		Takeoffs:   1,
		DFC:        0,
		CFC:        1,
		TDM:        0,
	}, sink.FlightOperationsDaily[0][0])
	assert.Equal(t, "2024-01-15", sink.Dates[0].FullDate)
	assert.Equal(t, "AB1", sink.Aircraft[0].RegistrationCode)

	assert.Equal(t, 1, summary.FactRows[aggregation.FactFlightOperationsDaily])
	assert.Equal(t, 1, summary.TotalFactRows())
	assert.Zero(t, summary.TotalSkipped())

	require.Len(t, sink.Runs, 1)
	assert.Equal(t, "run-1", sink.Runs[0].RunID)
	assert.Equal(t, warehouse.RunStatusSuccess, sink.Runs[0].Status)
	assert.True(t, sink.Runs[0].Cleaned)

	assert.Equal(t, []string{
		StageClean,
		StageAircraft, StageDate, StageMonth, StageReporter,
		StageCommitDimensions,
		StageAircraftMonthlySummary, StageFlightOperationsDaily, StageLogbooks,
		StageLedger,
	}, summary.Stages)
}

func TestCoordinator_CommitBeforeFacts(t *testing.T) {
	sink := warehouse.NewMockWarehouse()
	c := newTestCoordinator(t, sink, Options{Clean: true})

	batch := &records.Batch{
		Fleet: fleet("AB1"),
		Maintenance: []records.MaintenanceWindow{
			{ID: "M1", AircraftRegistration: "AB1", ScheduledDeparture: at("2024-02-01 00:00"), ScheduledArrival: at("2024-02-02 06:00"), Programmed: true},
		},
	}

	_, err := c.Load(context.Background(), RunInfo{ID: "run-1"}, batch)
	require.NoError(t, err)

	commit := -1
	for i, call := range sink.Calls {
		switch call {
		case "CommitDimensions":
			commit = i
		case "WriteAircraft", "WriteMonth", "WriteDate", "WriteReporter":
			assert.Equal(t, -1, commit, "dimension write after commit")
		case "Load" + warehouse.TableAircraftMonthlySummary, "Load" + warehouse.TableFlightOperationsDaily, "Load" + warehouse.TableLogbooks:
			assert.Greater(t, i, commit, "fact load before commit")
		}
	}

	assert.Equal(t, 1, sink.Commits)
	assert.Zero(t, sink.Staged)

	require.Len(t, sink.AircraftMonthlySummary, 1)
	row := sink.AircraftMonthlySummary[0][0]
	assert.InDelta(t, 1.0, row.ADOSS, 1e-9)
	assert.InDelta(t, 28.0, row.ADIS, 1e-9)
}

func TestCoordinator_SkipAndContinue(t *testing.T) {
	sink := warehouse.NewMockWarehouse()
	c := newTestCoordinator(t, sink, Options{Clean: false})

	batch := &records.Batch{Fleet: fleet("AB1")}
	for day := 1; day <= 10; day++ {
		reg := "AB1"
		if day == 5 {
			reg = "ZZ9"
		}

		departure := time.Date(2024, 3, day, 8, 0, 0, 0, time.UTC)
		batch.Flights = append(batch.Flights, records.Flight{
			ID:                   fmt.Sprintf("F%d", day),
			AircraftRegistration: reg,
			ScheduledDeparture:   departure,
			ScheduledArrival:     departure.Add(time.Hour),
			ActualDeparture:      ptr(departure),
			ActualArrival:        ptr(departure.Add(time.Hour)),
		})
	}

	summary, err := c.Load(context.Background(), RunInfo{ID: "run-1"}, batch)
	require.NoError(t, err)

	require.Len(t, sink.FlightOperationsDaily, 1)
	assert.Len(t, sink.FlightOperationsDaily[0], 9)
	assert.Equal(t, 1, summary.Skipped[aggregation.FactFlightOperationsDaily])
	assert.Equal(t, int64(1), sink.Runs[0].Skipped)
	assert.False(t, sink.Runs[0].Cleaned)
}

func TestCoordinator_Cleaning(t *testing.T) {
	overlapping := func() *records.Batch {
		return &records.Batch{
			Fleet: fleet("AB1"),
			Flights: []records.Flight{
				{ID: "A", AircraftRegistration: "AB1", ScheduledDeparture: at("2024-01-15 08:00"), ScheduledArrival: at("2024-01-15 10:00"),
					ActualDeparture: ptr(at("2024-01-15 08:00")), ActualArrival: ptr(at("2024-01-15 10:00"))},
				{ID: "B", AircraftRegistration: "AB1", ScheduledDeparture: at("2024-01-15 09:00"), ScheduledArrival: at("2024-01-15 11:00"),
					ActualDeparture: ptr(at("2024-01-15 09:00")), ActualArrival: ptr(at("2024-01-15 11:00"))},
				{ID: "C", AircraftRegistration: "AB1", ScheduledDeparture: at("2024-01-15 11:30"), ScheduledArrival: at("2024-01-15 13:00"),
					ActualDeparture: ptr(at("2024-01-15 11:30")), ActualArrival: ptr(at("2024-01-15 13:00"))},
			},
		}
	}

	tests := []struct {
		name         string
		clean        bool
		wantTakeoffs int64
		wantOverlaps int
	}{
		{name: "enabled excludes the earlier overlapping flight", clean: true, wantTakeoffs: 2, wantOverlaps: 1},
		{name: "disabled passes every flight through", clean: false, wantTakeoffs: 3, wantOverlaps: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := warehouse.NewMockWarehouse()
			c := newTestCoordinator(t, sink, Options{Clean: tt.clean})

			summary, err := c.Load(context.Background(), RunInfo{ID: "run"}, overlapping())
			require.NoError(t, err)

			require.Len(t, sink.FlightOperationsDaily[0], 1)
			assert.Equal(t, tt.wantTakeoffs, sink.FlightOperationsDaily[0][0].Takeoffs)
			assert.Equal(t, tt.wantOverlaps, summary.Cleaning.Violations[cleaning.RuleOverlap])
		})
	}
}

func TestCoordinator_Logbooks(t *testing.T) {
	sink := warehouse.NewMockWarehouse()
	c := newTestCoordinator(t, sink, Options{Clean: true, Hierarchy: dimension.HierarchySnowflake})

	tlb := int64(100)
	batch := &records.Batch{
		Fleet:     fleet("AB1"),
		Personnel: []records.MaintenancePersonnel{{ReporterID: "7", Airport: "MAD"}},
		Reports: []records.PostFlightReport{
			{ID: "1", AircraftRegistration: "AB1", ReportingDate: at("2024-01-03 10:00"), ReporterClass: records.ReporterClassPIREP, ExecutionPlace: "BCN", TLBOrder: &tlb},
			{ID: "2", AircraftRegistration: "AB1", ReportingDate: at("2024-01-20 10:00"), ReporterClass: records.ReporterClassPIREP, ExecutionPlace: "BCN"},
			{ID: "3", AircraftRegistration: "XX0", ReportingDate: at("2024-01-20 10:00"), ReporterClass: records.ReporterClassMAREP, ExecutionPlace: "MAD"},
		},
		Logbook: []records.TechnicalLogbookEntry{
			{WorkOrderID: 100, AircraftRegistration: "AB1", ReportingDate: at("2024-01-03 11:00"), ExecutionPlace: "BCN"},
			{WorkOrderID: 200, AircraftRegistration: "AB1", ReportingDate: at("2024-01-03 11:00"), ExecutionPlace: "LHR"},
		},
	}

	summary, err := c.Load(context.Background(), RunInfo{ID: "run"}, batch)
	require.NoError(t, err)

	require.Len(t, sink.Logbooks, 1)
	require.Len(t, sink.Logbooks[0], 1)
	assert.Equal(t, int64(2), sink.Logbooks[0][0].LogCount)

	assert.Equal(t, 1, summary.Cleaning.Violations[cleaning.RuleUnknownAircraft])
	assert.Equal(t, 1, summary.Cleaning.Violations[cleaning.RuleOrphanLogbook])

	// MAREP@MAD from personnel, PIREP@BCN from reports, MAREP@BCN from the valid logbook entry
	assert.Len(t, sink.Reporters, 3)
	assert.Empty(t, sink.Dates)
	assert.Equal(t, 3, summary.Dimensions["reporter"])
}

func TestCoordinator_SinkFailureAborts(t *testing.T) {
	sink := warehouse.NewMockWarehouse()
	sink.LoadErr[warehouse.TableFlightOperationsDaily] = errSink

	c := newTestCoordinator(t, sink, Options{Clean: true})

	summary, err := c.Load(context.Background(), RunInfo{ID: "run"}, &records.Batch{Fleet: fleet("AB1")})
	require.ErrorIs(t, err, errSink)
	assert.Contains(t, err.Error(), StageFlightOperationsDaily)

	assert.NotContains(t, summary.Stages, StageFlightOperationsDaily)
	assert.NotContains(t, summary.Stages, StageLogbooks)
	assert.Empty(t, sink.Runs)
	assert.Empty(t, sink.Logbooks)
}

func TestCoordinator_DimensionWriteFailure(t *testing.T) {
	sink := warehouse.NewMockWarehouse()
	sink.WriteErr = errSink

	c := newTestCoordinator(t, sink, Options{Clean: true})

	_, err := c.Load(context.Background(), RunInfo{ID: "run"}, &records.Batch{Fleet: fleet("AB1")})
	require.ErrorIs(t, err, errSink)
	assert.Zero(t, sink.Commits)
}

func TestCoordinator_StageRunsAtMostOnce(t *testing.T) {
	c := newTestCoordinator(t, nil, Options{})
	l := c.newLoad(RunInfo{ID: "run"}, &records.Batch{})

	calls := 0
	stage := &Stage{Name: "once", Run: func(context.Context) error {
		calls++

		return errSink
	}}

	require.ErrorIs(t, l.runStage(context.Background(), stage), errSink)
	require.ErrorIs(t, l.runStage(context.Background(), stage), ErrStageAlreadyRun)
	assert.Equal(t, 1, calls)
}

func TestCoordinator_NilBatch(t *testing.T) {
	c := newTestCoordinator(t, nil, Options{})

	_, err := c.Load(context.Background(), RunInfo{}, nil)
	assert.ErrorIs(t, err, ErrNoBatch)
}

func TestSummary_Run(t *testing.T) {
	summary := &Summary{
		Cleaned:  true,
		Cleaning: &cleaning.Report{Violations: map[cleaning.Rule]int{cleaning.RuleChronology: 2, cleaning.RuleOverlap: 1}},
		FactRows: map[string]int{"a": 3, "b": 4},
		Skipped:  map[string]int{"a": 1},
	}

	started := at("2024-01-01 00:00")
	run := summary.Run(RunInfo{ID: "run", StartedAt: started}, started.Add(time.Minute), errSink)

	assert.Equal(t, warehouse.Run{
		RunID:      "run",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Status:     warehouse.RunStatusFailed,
		Error:      errSink.Error(),
		Cleaned:    true,
		FactRows:   7,
		Skipped:    1,
		Violations: 3,
	}, run)
}
