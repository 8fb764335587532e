package dimension

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/registry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMirrorDown = errors.New("mirror down")

type MockWriter struct {
	Aircraft  []records.AircraftRow
	Dates     []records.DateRow
	Months    []records.MonthRow
	Days      []records.DayRow
	Reporters []records.ReporterRow
}

func (m *MockWriter) WriteAircraft(_ context.Context, row records.AircraftRow) error {
	m.Aircraft = append(m.Aircraft, row)
	return nil
}

func (m *MockWriter) WriteDate(_ context.Context, row records.DateRow) error {
	m.Dates = append(m.Dates, row)
	return nil
}

func (m *MockWriter) WriteMonth(_ context.Context, row records.MonthRow) error {
	m.Months = append(m.Months, row)
	return nil
}

func (m *MockWriter) WriteDay(_ context.Context, row records.DayRow) error {
	m.Days = append(m.Days, row)
	return nil
}

func (m *MockWriter) WriteReporter(_ context.Context, row records.ReporterRow) error {
	m.Reporters = append(m.Reporters, row)
	return nil
}

type MockMirror struct {
	MirrorFunc func(ctx context.Context, dimension, naturalKey string, id int64) error
	Calls      []string
}

func (m *MockMirror) Mirror(ctx context.Context, dimension, naturalKey string, id int64) error {
	m.Calls = append(m.Calls, dimension+":"+naturalKey)
	if m.MirrorFunc != nil {
		return m.MirrorFunc(ctx, dimension, naturalKey, id)
	}

	return nil
}

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}

	return t
}

func testBatch() *records.Batch {
	return &records.Batch{
		Fleet: []records.AircraftInfo{
			{RegistrationCode: "AB1", ManufacturerSerialNumber: "MSN1", Model: "A320", Manufacturer: "Airbus"},
			{RegistrationCode: "AB2", ManufacturerSerialNumber: "MSN2", Model: "737", Manufacturer: "Boeing"},
			{RegistrationCode: ""},
		},
		Flights: []records.Flight{
			{ID: "F1", AircraftRegistration: "AB1", ScheduledDeparture: date("2023-03-01 10:00")},
			{ID: "F2", AircraftRegistration: "AB1", ScheduledDeparture: date("2023-03-01 18:00")},
			{ID: "F3", AircraftRegistration: "AB2", ScheduledDeparture: date("2023-04-02 07:00")},
		},
		Maintenance: []records.MaintenanceWindow{
			{ID: "M1", AircraftRegistration: "AB1", ScheduledDeparture: date("2023-05-10 00:00")},
		},
		Reports: []records.PostFlightReport{
			{ID: "R1", AircraftRegistration: "AB1", ReportingDate: date("2023-03-03 00:00"), ReporterClass: "PIREP", ExecutionPlace: "BCN"},
			{ID: "R2", AircraftRegistration: "AB1", ReportingDate: date("2023-03-04 00:00"), ReporterClass: "MAREP", ExecutionPlace: "MAD"},
		},
		Logbook: []records.TechnicalLogbookEntry{
			{WorkOrderID: 1, ReportingDate: date("2023-06-01 00:00"), ExecutionPlace: "LHR"},
		},
		Personnel: []records.MaintenancePersonnel{
			{ReporterID: "P1", Airport: "MAD"},
			{ReporterID: "P2", Airport: "BCN"},
		},
	}
}

func populate(t *testing.T, s *Set, batch *records.Batch) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, s.EnsureAircraft(ctx, batch.Fleet))
	require.NoError(t, s.EnsureDates(ctx, batch.Flights))
	require.NoError(t, s.EnsureMonths(ctx, batch))
	require.NoError(t, s.EnsureReporters(ctx, batch))
}

func TestSet_PopulateFlat(t *testing.T) {
	writer := &MockWriter{}
	s, err := NewSet(newTestLogger(), HierarchyFlat, writer, nil)
	require.NoError(t, err)

	populate(t, s, testBatch())

	assert.Equal(t, []records.AircraftRow{
		{AircraftID: 1, RegistrationCode: "AB1", ManufacturerSerialNumber: "MSN1", Model: "A320", ManufacturerClass: "Airbus"},
		{AircraftID: 2, RegistrationCode: "AB2", ManufacturerSerialNumber: "MSN2", Model: "737", ManufacturerClass: "Boeing"},
	}, writer.Aircraft)

	assert.Equal(t, []records.DateRow{
		{DateID: 1, FullDate: "2023-03-01", DayNum: 1, MonthNum: 3, Year: 2023},
		{DateID: 2, FullDate: "2023-04-02", DayNum: 2, MonthNum: 4, Year: 2023},
	}, writer.Dates)

	assert.Equal(t, []records.MonthRow{
		{MonthID: 1, MonthNum: 3, Year: 2023},
		{MonthID: 2, MonthNum: 4, Year: 2023},
		{MonthID: 3, MonthNum: 5, Year: 2023},
		{MonthID: 4, MonthNum: 6, Year: 2023},
	}, writer.Months)

	assert.Equal(t, []records.ReporterRow{
		{ReporterID: 1, ReporterClass: "MAREP", AirportCode: "MAD"},
		{ReporterID: 2, ReporterClass: "MAREP", AirportCode: "BCN"},
		{ReporterID: 3, ReporterClass: "PIREP", AirportCode: "BCN"},
		{ReporterID: 4, ReporterClass: "MAREP", AirportCode: "LHR"},
	}, writer.Reporters)

	assert.Empty(t, writer.Days)
	assert.Equal(t, map[string]int{
		registry.DimensionAircraft: 2,
		registry.DimensionDate:     2,
		registry.DimensionMonth:    4,
		registry.DimensionReporter: 4,
	}, s.Sizes())
}

func TestSet_PopulateSnowflake(t *testing.T) {
	writer := &MockWriter{}
	s, err := NewSet(newTestLogger(), HierarchySnowflake, writer, nil)
	require.NoError(t, err)

	populate(t, s, testBatch())

	assert.Nil(t, s.Dates)
	assert.Empty(t, writer.Dates)
	assert.Equal(t, []records.DayRow{
		{DayID: 1, MonthID: 1, DayNum: 1},
		{DayID: 2, MonthID: 2, DayNum: 2},
	}, writer.Days)

	id, err := s.DateID(date("2023-04-02 23:59"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestSet_Resolvers(t *testing.T) {
	s, err := NewSet(newTestLogger(), HierarchyFlat, nil, nil)
	require.NoError(t, err)

	populate(t, s, testBatch())

	tests := []struct {
		name    string
		resolve func() (int64, error)
		want    int64
		wantErr error
	}{
		{
			name:    "known aircraft",
			resolve: func() (int64, error) { return s.AircraftID("AB2") },
			want:    2,
		},
		{
			name:    "unknown aircraft",
			resolve: func() (int64, error) { return s.AircraftID("ZZ9") },
			wantErr: registry.ErrKeyNotFound,
		},
		{
			name:    "empty registration",
			resolve: func() (int64, error) { return s.AircraftID("") },
			wantErr: registry.ErrMissingNaturalKey,
		},
		{
			name:    "known date",
			resolve: func() (int64, error) { return s.DateID(date("2023-03-01 23:00")) },
			want:    1,
		},
		{
			name:    "zero date",
			resolve: func() (int64, error) { return s.DateID(time.Time{}) },
			wantErr: registry.ErrMissingNaturalKey,
		},
		{
			name:    "known month",
			resolve: func() (int64, error) { return s.MonthID(date("2023-06-30 00:00")) },
			want:    4,
		},
		{
			name:    "unknown month",
			resolve: func() (int64, error) { return s.MonthID(date("2022-06-30 00:00")) },
			wantErr: registry.ErrKeyNotFound,
		},
		{
			name:    "known reporter",
			resolve: func() (int64, error) { return s.ReporterID("PIREP", "BCN") },
			want:    3,
		},
		{
			name:    "reporter without airport",
			resolve: func() (int64, error) { return s.ReporterID("PIREP", "") },
			wantErr: registry.ErrMissingNaturalKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tt.resolve()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestSet_MirrorFailureIsFatal(t *testing.T) {
	mirror := &MockMirror{
		MirrorFunc: func(_ context.Context, dimension, _ string, _ int64) error {
			if dimension == registry.DimensionAircraft {
				return errMirrorDown
			}

			return nil
		},
	}

	s, err := NewSet(newTestLogger(), HierarchyFlat, &MockWriter{}, mirror)
	require.NoError(t, err)

	err = s.EnsureAircraft(context.Background(), testBatch().Fleet)
	require.ErrorIs(t, err, errMirrorDown)
	assert.Equal(t, 0, s.Aircraft.Len())
}

func TestSet_MirrorsEveryNewKey(t *testing.T) {
	mirror := &MockMirror{}
	s, err := NewSet(newTestLogger(), HierarchyFlat, nil, mirror)
	require.NoError(t, err)

	require.NoError(t, s.EnsureAircraft(context.Background(), testBatch().Fleet))
	require.NoError(t, s.EnsureAircraft(context.Background(), testBatch().Fleet))

	assert.Equal(t, []string{"aircraft:AB1", "aircraft:AB2"}, mirror.Calls)
}

func TestNewSet_UnknownHierarchy(t *testing.T) {
	_, err := NewSet(newTestLogger(), Hierarchy("galaxy"), nil, nil)
	assert.ErrorIs(t, err, ErrUnknownHierarchy)
}
