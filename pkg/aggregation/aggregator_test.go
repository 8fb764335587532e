package aggregation

import (
	"fmt"
	"testing"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/registry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	aircraft  map[string]int64
	dates     map[string]int64
	months    map[string]int64
	reporters map[string]int64
}

func lookup(m map[string]int64, dimension, key string) (int64, error) {
	if key == "" {
		return 0, registry.ErrMissingNaturalKey
	}

	id, ok := m[key]
	if !ok {
		return 0, &registry.LookupError{Dimension: dimension, Key: key}
	}

	return id, nil
}

func (s *stubResolver) AircraftID(registration string) (int64, error) {
	return lookup(s.aircraft, registry.DimensionAircraft, registration)
}

func (s *stubResolver) DateID(t time.Time) (int64, error) {
	return lookup(s.dates, registry.DimensionDate, t.Format("2006-01-02"))
}

func (s *stubResolver) MonthID(t time.Time) (int64, error) {
	return lookup(s.months, registry.DimensionMonth, t.Format("2006-01"))
}

func (s *stubResolver) ReporterID(class, airport string) (int64, error) {
	if class == "" || airport == "" {
		return 0, registry.ErrMissingNaturalKey
	}

	return lookup(s.reporters, registry.DimensionReporter, class+"@"+airport)
}

func newTestAggregator() *Aggregator {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	resolver := &stubResolver{
		aircraft: map[string]int64{"AB1": 1, "AB2": 2},
		dates:    map[string]int64{},
		months:   map[string]int64{"2023-03": 1, "2023-04": 2, "2024-02": 3},
		reporters: map[string]int64{
			"PIREP@BCN": 1,
			"MAREP@BCN": 2,
		},
	}

	for day := 1; day <= 31; day++ {
		resolver.dates[fmt.Sprintf("2023-03-%02d", day)] = int64(day)
	}

	return NewAggregator(log, resolver)
}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}

	return t
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestFlightMeasures(t *testing.T) {
	scheduledArrival := ts("2023-03-01 12:00:00")

	tests := []struct {
		name   string
		flight records.Flight
		want   dailyMeasures
	}{
		{
			name: "on time flight",
			flight: records.Flight{
				ScheduledArrival: scheduledArrival,
				ActualDeparture:  ptr(ts("2023-03-01 10:00:00")),
				ActualArrival:    ptr(ts("2023-03-01 12:00:00")),
			},
			want: dailyMeasures{hours: 2, takeoffs: 1},
		},
		{
			name: "delay of exactly fifteen minutes does not count",
			flight: records.Flight{
				ScheduledArrival: scheduledArrival,
				ActualDeparture:  ptr(ts("2023-03-01 10:00:00")),
				ActualArrival:    ptr(ts("2023-03-01 12:15:00")),
				DelayCode:        "93",
			},
			want: dailyMeasures{hours: 2.25, takeoffs: 1},
		},
		{
			name: "delay just over fifteen minutes counts",
			flight: records.Flight{
				ScheduledArrival: scheduledArrival,
				ActualDeparture:  ptr(ts("2023-03-01 10:00:00")),
				ActualArrival:    ptr(ts("2023-03-01 12:15:00").Add(600 * time.Millisecond)),
				DelayCode:        "93",
			},
			want: dailyMeasures{hours: 2.25 + (600 * time.Millisecond).Hours(), takeoffs: 1, delayed: 1, delayMinutes: 15.01},
		},
		{
			name: "late flight without delay code does not count",
			flight: records.Flight{
				ScheduledArrival: scheduledArrival,
				ActualDeparture:  ptr(ts("2023-03-01 10:00:00")),
				ActualArrival:    ptr(ts("2023-03-01 13:00:00")),
			},
			want: dailyMeasures{hours: 3, takeoffs: 1},
		},
		{
			name: "cancelled flight",
			flight: records.Flight{
				ScheduledArrival: scheduledArrival,
				Cancelled:        true,
				DelayCode:        "41",
				ActualDeparture:  ptr(ts("2023-03-01 10:00:00")),
				ActualArrival:    ptr(ts("2023-03-01 13:00:00")),
			},
			want: dailyMeasures{cancelled: 1},
		},
		{
			name: "missing actual departure has no flight hours",
			flight: records.Flight{
				ScheduledArrival: scheduledArrival,
				ActualArrival:    ptr(ts("2023-03-01 12:00:00")),
			},
			want: dailyMeasures{takeoffs: 1},
		},
		{
			name: "inverted timestamps are floored at zero hours",
			flight: records.Flight{
				ScheduledArrival: scheduledArrival,
				ActualDeparture:  ptr(ts("2023-03-01 12:00:00")),
				ActualArrival:    ptr(ts("2023-03-01 10:00:00")),
			},
			want: dailyMeasures{takeoffs: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flightMeasures(&tt.flight)

			assert.InDelta(t, tt.want.hours, got.hours, 1e-9)
			assert.Equal(t, tt.want.takeoffs, got.takeoffs)
			assert.Equal(t, tt.want.cancelled, got.cancelled)
			assert.Equal(t, tt.want.delayed, got.delayed)
			assert.InDelta(t, tt.want.delayMinutes, got.delayMinutes, 1e-9)
		})
	}
}

func TestFlightOperationsDaily_SingleFlight(t *testing.T) {
	a := newTestAggregator()

	rows, skips := a.FlightOperationsDaily([]records.Flight{
		{
			ID:                   "F1",
			AircraftRegistration: "AB1",
			ScheduledDeparture:   ts("2023-03-01 10:00:00"),
			ScheduledArrival:     ts("2023-03-01 12:00:00"),
			ActualDeparture:      ptr(ts("2023-03-01 10:00:00")),
			ActualArrival:        ptr(ts("2023-03-01 12:20:00")),
			DelayCode:            "D1",
		},
	})

	require.Empty(t, skips)
	require.Len(t, rows, 1)

	assert.Equal(t, records.FlightOperationsDaily{
		DateID:     1,
		AircraftID: 1,
		FH:         rows[0].FH,
		Takeoffs:   1,
		DFC:        1,
		CFC:        0,
		TDM:        20,
	}, rows[0])
	assert.InDelta(t, 2.0+20.0/60.0, rows[0].FH, 1e-9)
}

func TestFlightOperationsDaily_MergesSameDayAndAircraft(t *testing.T) {
	a := newTestAggregator()

	rows, skips := a.FlightOperationsDaily([]records.Flight{
		{
			ID: "F1", AircraftRegistration: "AB1",
			ScheduledDeparture: ts("2023-03-02 06:00:00"),
			ScheduledArrival:   ts("2023-03-02 08:00:00"),
			ActualDeparture:    ptr(ts("2023-03-02 06:00:00")),
			ActualArrival:      ptr(ts("2023-03-02 08:20:24")),
			DelayCode:          "D1",
		},
		{
			ID: "F2", AircraftRegistration: "AB1",
			ScheduledDeparture: ts("2023-03-02 10:00:00"),
			ScheduledArrival:   ts("2023-03-02 11:00:00"),
			ActualDeparture:    ptr(ts("2023-03-02 10:00:00")),
			ActualArrival:      ptr(ts("2023-03-02 11:16:12")),
			DelayCode:          "D2",
		},
		{
			ID: "F3", AircraftRegistration: "AB1",
			ScheduledDeparture: ts("2023-03-02 14:00:00"),
			Cancelled:          true,
		},
		{
			ID: "F4", AircraftRegistration: "AB2",
			ScheduledDeparture: ts("2023-03-02 14:00:00"),
			ScheduledArrival:   ts("2023-03-02 15:00:00"),
			ActualDeparture:    ptr(ts("2023-03-02 14:00:00")),
			ActualArrival:      ptr(ts("2023-03-02 15:00:00")),
		},
	})

	require.Empty(t, skips)
	require.Len(t, rows, 2)

	ab1 := rows[0]
	assert.Equal(t, int64(2), ab1.DateID)
	assert.Equal(t, int64(1), ab1.AircraftID)
	assert.Equal(t, int64(2), ab1.Takeoffs)
	assert.Equal(t, int64(2), ab1.DFC)
	assert.Equal(t, int64(1), ab1.CFC)
	// 20.4 + 16.2 minutes rounds once at emission
	assert.Equal(t, int64(37), ab1.TDM)

	ab2 := rows[1]
	assert.Equal(t, int64(2), ab2.AircraftID)
	assert.InDelta(t, 1.0, ab2.FH, 1e-9)
	assert.Zero(t, ab2.DFC)
}

func TestFlightOperationsDaily_SkipAndContinue(t *testing.T) {
	a := newTestAggregator()

	flights := make([]records.Flight, 0, 10)
	for day := 1; day <= 9; day++ {
		departure := ts(fmt.Sprintf("2023-03-%02d 10:00:00", day))
		flights = append(flights, records.Flight{
			ID:                   fmt.Sprintf("F%d", day),
			AircraftRegistration: "AB1",
			ScheduledDeparture:   departure,
			ScheduledArrival:     departure.Add(time.Hour),
		})
	}

	flights = append(flights, records.Flight{
		ID:                   "F10",
		AircraftRegistration: "ZZ9",
		ScheduledDeparture:   ts("2023-03-10 10:00:00"),
	})

	rows, skips := a.FlightOperationsDaily(flights)

	assert.Len(t, rows, 9)
	require.Len(t, skips, 1)
	assert.Equal(t, "F10", skips[0].RecordID)
	assert.Equal(t, FactFlightOperationsDaily, skips[0].Fact)
	assert.ErrorIs(t, skips[0].Reason, registry.ErrKeyNotFound)
	assert.IsType(t, records.Flight{}, skips[0].Record)
}

func TestOutOfServiceFraction(t *testing.T) {
	start := ts("2023-03-01 00:00:00")

	tests := []struct {
		name     string
		duration time.Duration
		want     float64
	}{
		{name: "thirty hours clamps to one", duration: 30 * time.Hour, want: 1},
		{name: "exactly one day", duration: 24 * time.Hour, want: 1},
		{name: "twelve hours", duration: 12 * time.Hour, want: 0.5},
		{name: "zero length", duration: 0, want: 0},
		{name: "negative length clamps to zero", duration: -2 * time.Hour, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OutOfServiceFraction(start, start.Add(tt.duration)), 1e-9)
		})
	}
}

func TestAircraftMonthlySummary(t *testing.T) {
	a := newTestAggregator()

	rows, skips := a.AircraftMonthlySummary([]records.MaintenanceWindow{
		{
			ID: "M1", AircraftRegistration: "AB1", Programmed: true,
			ScheduledDeparture: ts("2023-03-05 00:00:00"),
			ScheduledArrival:   ts("2023-03-06 06:00:00"),
		},
		{
			ID: "M2", AircraftRegistration: "AB1",
			ScheduledDeparture: ts("2023-03-20 08:00:00"),
			ScheduledArrival:   ts("2023-03-20 20:00:00"),
		},
		{
			ID: "M3", AircraftRegistration: "AB2", Programmed: true,
			ScheduledDeparture: ts("2024-02-10 00:00:00"),
			ScheduledArrival:   ts("2024-02-10 06:00:00"),
		},
		{
			ID: "M4", AircraftRegistration: "AB1",
			ScheduledDeparture: ts("2022-01-01 00:00:00"),
			ScheduledArrival:   ts("2022-01-01 06:00:00"),
		},
	})

	require.Len(t, skips, 1)
	assert.Equal(t, "M4", skips[0].RecordID)
	require.Len(t, rows, 2)

	march := rows[0]
	assert.Equal(t, int64(1), march.MonthID)
	assert.Equal(t, int64(1), march.AircraftID)
	assert.InDelta(t, 1.0, march.ADOSS, 1e-9)
	assert.InDelta(t, 0.5, march.ADOSU, 1e-9)
	assert.InDelta(t, 29.5, march.ADIS, 1e-9)

	february := rows[1]
	assert.Equal(t, int64(3), february.MonthID)
	assert.InDelta(t, 0.25, february.ADOSS, 1e-9)
	assert.Zero(t, february.ADOSU)
	assert.InDelta(t, 28.75, february.ADIS, 1e-9)
}

func TestLogbooks(t *testing.T) {
	a := newTestAggregator()

	rows, skips := a.Logbooks([]records.PostFlightReport{
		{ID: "R1", AircraftRegistration: "AB1", ReportingDate: ts("2023-03-01 00:00:00"), ReporterClass: "PIREP", ExecutionPlace: "BCN"},
		{ID: "R2", AircraftRegistration: "AB1", ReportingDate: ts("2023-03-15 00:00:00"), ReporterClass: "PIREP", ExecutionPlace: "BCN"},
		{ID: "R3", AircraftRegistration: "AB1", ReportingDate: ts("2023-03-15 00:00:00"), ReporterClass: "MAREP", ExecutionPlace: "BCN"},
		{ID: "R4", AircraftRegistration: "AB1", ReportingDate: ts("2023-04-01 00:00:00"), ReporterClass: "PIREP", ExecutionPlace: "BCN"},
		{ID: "R5", AircraftRegistration: "AB1", ReportingDate: ts("2023-04-01 00:00:00"), ReporterClass: "PIREP", ExecutionPlace: ""},
		{ID: "R6", AircraftRegistration: "AB1", ReportingDate: ts("2023-04-01 00:00:00"), ReporterClass: "PIREP", ExecutionPlace: "JFK"},
	})

	assert.Equal(t, []records.Logbook{
		{MonthID: 1, AircraftID: 1, ReporterID: 1, LogCount: 2},
		{MonthID: 1, AircraftID: 1, ReporterID: 2, LogCount: 1},
		{MonthID: 2, AircraftID: 1, ReporterID: 1, LogCount: 1},
	}, rows)

	require.Len(t, skips, 2)
	assert.ErrorIs(t, skips[0].Reason, registry.ErrMissingNaturalKey)
	assert.ErrorIs(t, skips[1].Reason, registry.ErrKeyNotFound)
}

func TestSkipReason(t *testing.T) {
	assert.Equal(t, "unknown_key", skipReason(&registry.LookupError{Dimension: "aircraft", Key: "X"}))
	assert.Equal(t, "missing_key", skipReason(fmt.Errorf("wrapped: %w", registry.ErrMissingNaturalKey)))
	assert.Equal(t, "invalid", skipReason(registry.ErrInvalidDate))
}
