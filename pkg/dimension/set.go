// Package dimension owns the surrogate key registries of a load and derives
// dimension entities from extracted records.
package dimension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/registry"
	"github.com/sirupsen/logrus"
)

// Hierarchy selects how dates are modelled
type Hierarchy string

// Date hierarchies
const (
	// HierarchyFlat keeps a standalone Dates dimension
	HierarchyFlat Hierarchy = "flat"
	// HierarchySnowflake stores days referencing Months
	HierarchySnowflake Hierarchy = "snowflake"
)

// ErrUnknownHierarchy is returned for an unsupported date hierarchy
var ErrUnknownHierarchy = errors.New("unknown date hierarchy")

// Writer persists dimension rows as they are registered.
type Writer interface {
	WriteAircraft(ctx context.Context, row records.AircraftRow) error
	WriteDate(ctx context.Context, row records.DateRow) error
	WriteMonth(ctx context.Context, row records.MonthRow) error
	WriteDay(ctx context.Context, row records.DayRow) error
	WriteReporter(ctx context.Context, row records.ReporterRow) error
}

// Mirror publishes surrogate key assignments outside the warehouse.
type Mirror interface {
	Mirror(ctx context.Context, dimension, naturalKey string, id int64) error
}

// Set holds the registries of a single load.
type Set struct {
	log       logrus.FieldLogger
	hierarchy Hierarchy

	Aircraft  *registry.AircraftRegistry
	Months    *registry.MonthRegistry
	Reporters *registry.ReporterRegistry
	// Dates is set for HierarchyFlat
	Dates *registry.DateRegistry
	// Days is set for HierarchySnowflake
	Days *registry.DayRegistry
}

// NewSet creates empty registries persisting through writer and, when not
// nil, mirroring through mirror.
func NewSet(log logrus.FieldLogger, hierarchy Hierarchy, writer Writer, mirror Mirror) (*Set, error) {
	log = log.WithField("component", "dimensions")

	s := &Set{
		log:       log,
		hierarchy: hierarchy,
	}

	s.Aircraft = registry.New(log, registry.DimensionAircraft, registry.Chain(
		writeWith(writer, func(ctx context.Context, w Writer, e registry.Entry[registry.AircraftKey, registry.AircraftAttributes]) error {
			return w.WriteAircraft(ctx, records.AircraftRow{
				AircraftID:               e.ID,
				RegistrationCode:         e.Key.Registration,
				ManufacturerSerialNumber: e.Attributes.SerialNumber,
				Model:                    e.Attributes.Model,
				ManufacturerClass:        e.Attributes.Manufacturer,
			})
		}),
		mirrorWith[registry.AircraftKey, registry.AircraftAttributes](mirror, registry.DimensionAircraft),
	))

	s.Months = registry.New(log, registry.DimensionMonth, registry.Chain(
		writeWith(writer, func(ctx context.Context, w Writer, e registry.Entry[registry.MonthKey, registry.NoAttributes]) error {
			return w.WriteMonth(ctx, records.MonthRow{
				MonthID:  e.ID,
				MonthNum: int(e.Key.Month),
				Year:     e.Key.Year,
			})
		}),
		mirrorWith[registry.MonthKey, registry.NoAttributes](mirror, registry.DimensionMonth),
	))

	s.Reporters = registry.New(log, registry.DimensionReporter, registry.Chain(
		writeWith(writer, func(ctx context.Context, w Writer, e registry.Entry[registry.ReporterKey, registry.NoAttributes]) error {
			return w.WriteReporter(ctx, records.ReporterRow{
				ReporterID:    e.ID,
				ReporterClass: e.Key.Class,
				AirportCode:   e.Key.Airport,
			})
		}),
		mirrorWith[registry.ReporterKey, registry.NoAttributes](mirror, registry.DimensionReporter),
	))

	switch hierarchy {
	case HierarchyFlat:
		s.Dates = registry.New(log, registry.DimensionDate, registry.Chain(
			writeWith(writer, func(ctx context.Context, w Writer, e registry.Entry[registry.DateKey, registry.NoAttributes]) error {
				return w.WriteDate(ctx, records.DateRow{
					DateID:   e.ID,
					FullDate: e.Key.String(),
					DayNum:   e.Key.Day,
					MonthNum: int(e.Key.Month),
					Year:     e.Key.Year,
				})
			}),
			mirrorWith[registry.DateKey, registry.NoAttributes](mirror, registry.DimensionDate),
		))
	case HierarchySnowflake:
		days := registry.New(log, registry.DimensionDay, registry.Chain(
			writeWith(writer, func(ctx context.Context, w Writer, e registry.Entry[registry.DayKey, registry.NoAttributes]) error {
				return w.WriteDay(ctx, records.DayRow{
					DayID:   e.ID,
					MonthID: e.Key.MonthID,
					DayNum:  e.Key.Day,
				})
			}),
			mirrorWith[registry.DayKey, registry.NoAttributes](mirror, registry.DimensionDay),
		))
		s.Days = registry.NewDayRegistry(s.Months, days)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHierarchy, hierarchy)
	}

	return s, nil
}

// Hierarchy returns the date hierarchy of the set
func (s *Set) Hierarchy() Hierarchy {
	return s.hierarchy
}

// Sizes returns the number of entries per dimension.
func (s *Set) Sizes() map[string]int {
	sizes := map[string]int{
		registry.DimensionAircraft: s.Aircraft.Len(),
		registry.DimensionMonth:    s.Months.Len(),
		registry.DimensionReporter: s.Reporters.Len(),
	}

	if s.Dates != nil {
		sizes[registry.DimensionDate] = s.Dates.Len()
	}

	if s.Days != nil {
		sizes[registry.DimensionDay] = s.Days.Len()
	}

	return sizes
}

// RecordMetrics publishes the dimension sizes
func (s *Set) RecordMetrics() {
	for dimension, size := range s.Sizes() {
		observability.RecordDimensionSize(dimension, size)
	}
}

// AircraftID resolves an aircraft registration.
func (s *Set) AircraftID(registration string) (int64, error) {
	if registration == "" {
		return 0, fmt.Errorf("%w: aircraft registration", registry.ErrMissingNaturalKey)
	}

	return s.Aircraft.Lookup(registry.AircraftKey{Registration: registration})
}

// DateID resolves the calendar day of t.
func (s *Set) DateID(t time.Time) (int64, error) {
	if t.IsZero() {
		return 0, fmt.Errorf("%w: date", registry.ErrMissingNaturalKey)
	}

	if s.Days != nil {
		return s.Days.Lookup(registry.DateKeyOf(t))
	}

	return s.Dates.Lookup(registry.DateKeyOf(t))
}

// MonthID resolves the calendar month of t.
func (s *Set) MonthID(t time.Time) (int64, error) {
	if t.IsZero() {
		return 0, fmt.Errorf("%w: month", registry.ErrMissingNaturalKey)
	}

	return s.Months.Lookup(registry.MonthKeyOf(t))
}

// ReporterID resolves a reporter class at an airport.
func (s *Set) ReporterID(class, airport string) (int64, error) {
	if class == "" || airport == "" {
		return 0, fmt.Errorf("%w: reporter", registry.ErrMissingNaturalKey)
	}

	return s.Reporters.Lookup(registry.ReporterKey{Class: class, Airport: airport})
}

func writeWith[K registry.NaturalKey, A comparable](
	writer Writer,
	write func(ctx context.Context, w Writer, e registry.Entry[K, A]) error,
) registry.Persister[K, A] {
	if writer == nil {
		return nil
	}

	return registry.PersistFunc[K, A](func(ctx context.Context, e registry.Entry[K, A]) error {
		return write(ctx, writer, e)
	})
}

func mirrorWith[K registry.NaturalKey, A comparable](mirror Mirror, dimension string) registry.Persister[K, A] {
	if mirror == nil {
		return nil
	}

	return registry.PersistFunc[K, A](func(ctx context.Context, e registry.Entry[K, A]) error {
		return mirror.Mirror(ctx, dimension, e.Key.String(), e.ID)
	})
}
