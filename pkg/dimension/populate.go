package dimension

import (
	"context"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/registry"
	"github.com/sirupsen/logrus"
)

// EnsureAircraft registers every aircraft of the fleet lookup.
func (s *Set) EnsureAircraft(ctx context.Context, fleet []records.AircraftInfo) error {
	for i := range fleet {
		info := &fleet[i]
		if info.RegistrationCode == "" {
			s.log.WithField("record", *info).Warn("Skipping aircraft without registration code")

			continue
		}

		if _, err := s.Aircraft.Ensure(ctx, registry.AircraftKey{Registration: info.RegistrationCode}, registry.AircraftAttributes{
			SerialNumber: info.ManufacturerSerialNumber,
			Model:        info.Model,
			Manufacturer: info.Manufacturer,
		}); err != nil {
			return err
		}
	}

	return nil
}

// EnsureDates registers the scheduled departure day of every flight.
func (s *Set) EnsureDates(ctx context.Context, flights []records.Flight) error {
	for i := range flights {
		departure := flights[i].ScheduledDeparture
		if departure.IsZero() {
			s.log.WithField("flight_id", flights[i].ID).Warn("Skipping flight without scheduled departure")

			continue
		}

		key := registry.DateKeyOf(departure)

		var err error
		if s.Days != nil {
			_, err = s.Days.Ensure(ctx, key)
		} else {
			_, err = s.Dates.Ensure(ctx, key, registry.NoAttributes{})
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// EnsureMonths registers every month referenced by the batch: flight and
// maintenance departures and report dates.
func (s *Set) EnsureMonths(ctx context.Context, batch *records.Batch) error {
	ensure := func(t time.Time) error {
		if t.IsZero() {
			return nil
		}

		_, err := s.Months.Ensure(ctx, registry.MonthKeyOf(t), registry.NoAttributes{})

		return err
	}

	for i := range batch.Flights {
		if err := ensure(batch.Flights[i].ScheduledDeparture); err != nil {
			return err
		}
	}

	for i := range batch.Maintenance {
		if err := ensure(batch.Maintenance[i].ScheduledDeparture); err != nil {
			return err
		}
	}

	for i := range batch.Reports {
		if err := ensure(batch.Reports[i].ReportingDate); err != nil {
			return err
		}
	}

	for i := range batch.Logbook {
		if err := ensure(batch.Logbook[i].ReportingDate); err != nil {
			return err
		}
	}

	return nil
}

// EnsureReporters registers maintenance personnel airports, report roles
// and the airports of valid logbook entries, in that order.
func (s *Set) EnsureReporters(ctx context.Context, batch *records.Batch) error {
	ensure := func(class, airport string) error {
		if airport == "" {
			s.log.WithFields(logrus.Fields{
				"reporter_class": class,
			}).Debug("Skipping reporter without airport")

			return nil
		}

		_, err := s.Reporters.Ensure(ctx, registry.ReporterKey{Class: class, Airport: airport}, registry.NoAttributes{})

		return err
	}

	for i := range batch.Personnel {
		if err := ensure(records.ReporterClassMAREP, batch.Personnel[i].Airport); err != nil {
			return err
		}
	}

	for i := range batch.Reports {
		if batch.Reports[i].ReporterClass == "" {
			continue
		}

		if err := ensure(batch.Reports[i].ReporterClass, batch.Reports[i].ExecutionPlace); err != nil {
			return err
		}
	}

	for i := range batch.Logbook {
		if err := ensure(records.ReporterClassMAREP, batch.Logbook[i].ExecutionPlace); err != nil {
			return err
		}
	}

	return nil
}
