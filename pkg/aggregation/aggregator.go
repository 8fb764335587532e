// Package aggregation folds cleaned records into period-grain fact rows.
package aggregation

import (
	"math"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/registry"
	"github.com/sirupsen/logrus"
)

// DelayThreshold is the arrival delay a coded delay must exceed to count.
const DelayThreshold = 15 * time.Minute

// Fact tables
const (
	FactFlightOperationsDaily  = "flight_operations_daily"
	FactAircraftMonthlySummary = "aircraft_monthly_summary"
	FactLogbooks               = "logbooks"
)

// Resolver maps natural keys to surrogate keys.
type Resolver interface {
	AircraftID(registration string) (int64, error)
	DateID(t time.Time) (int64, error)
	MonthID(t time.Time) (int64, error)
	ReporterID(class, airport string) (int64, error)
}

// Aggregator builds fact rows from cleaned records.
type Aggregator struct {
	log      logrus.FieldLogger
	resolver Resolver
}

// NewAggregator creates an aggregator resolving keys through resolver.
func NewAggregator(log logrus.FieldLogger, resolver Resolver) *Aggregator {
	return &Aggregator{
		log:      log.WithField("component", "aggregator"),
		resolver: resolver,
	}
}

type dailyKey struct {
	dateID     int64
	aircraftID int64
}

type dailyMeasures struct {
	hours        float64
	takeoffs     int64
	delayed      int64
	cancelled    int64
	delayMinutes float64
}

// FlightOperationsDaily aggregates flights per scheduled departure day and aircraft.
func (a *Aggregator) FlightOperationsDaily(flights []records.Flight) ([]records.FlightOperationsDaily, []Skip) {
	g := accumulate(a.log, FactFlightOperationsDaily, flights,
		func(f *records.Flight) Result[dailyKey, dailyMeasures] {
			dateID, err := a.resolver.DateID(f.ScheduledDeparture)
			if err != nil {
				return skip[dailyKey, dailyMeasures](FactFlightOperationsDaily, f.ID, *f, err)
			}

			aircraftID, err := a.resolver.AircraftID(f.AircraftRegistration)
			if err != nil {
				return skip[dailyKey, dailyMeasures](FactFlightOperationsDaily, f.ID, *f, err)
			}

			return contribute(dailyKey{dateID: dateID, aircraftID: aircraftID}, flightMeasures(f))
		},
		func(acc *dailyMeasures, m dailyMeasures) {
			acc.hours += m.hours
			acc.takeoffs += m.takeoffs
			acc.delayed += m.delayed
			acc.cancelled += m.cancelled
			acc.delayMinutes += m.delayMinutes
		},
	)

	rows := make([]records.FlightOperationsDaily, 0, len(g.keys))
	for _, key := range g.keys {
		m := g.measures[key]
		rows = append(rows, records.FlightOperationsDaily{
			DateID:     key.dateID,
			AircraftID: key.aircraftID,
			FH:         m.hours,
			Takeoffs:   m.takeoffs,
			DFC:        m.delayed,
			CFC:        m.cancelled,
			TDM:        int64(math.Round(m.delayMinutes)),
		})
	}

	return rows, g.skips
}

func flightMeasures(f *records.Flight) dailyMeasures {
	if f.Cancelled {
		return dailyMeasures{cancelled: 1}
	}

	m := dailyMeasures{takeoffs: 1}

	if f.HasActualTimes() {
		m.hours = math.Max(0, f.ActualArrival.Sub(*f.ActualDeparture).Hours())
	}

	if delay := f.ArrivalDelay(); f.DelayCode != "" && delay > DelayThreshold {
		m.delayed = 1
		m.delayMinutes = delay.Minutes()
	}

	return m
}

type monthlyKey struct {
	monthID    int64
	aircraftID int64
}

type monthlyMeasures struct {
	days        int
	scheduled   float64
	unscheduled float64
}

// AircraftMonthlySummary aggregates maintenance windows into days out of
// service per month and aircraft.
func (a *Aggregator) AircraftMonthlySummary(windows []records.MaintenanceWindow) ([]records.AircraftMonthlySummary, []Skip) {
	g := accumulate(a.log, FactAircraftMonthlySummary, windows,
		func(w *records.MaintenanceWindow) Result[monthlyKey, monthlyMeasures] {
			monthID, err := a.resolver.MonthID(w.ScheduledDeparture)
			if err != nil {
				return skip[monthlyKey, monthlyMeasures](FactAircraftMonthlySummary, w.ID, *w, err)
			}

			aircraftID, err := a.resolver.AircraftID(w.AircraftRegistration)
			if err != nil {
				return skip[monthlyKey, monthlyMeasures](FactAircraftMonthlySummary, w.ID, *w, err)
			}

			m := monthlyMeasures{days: registry.MonthKeyOf(w.ScheduledDeparture).Days()}
			if w.Programmed {
				m.scheduled = OutOfServiceFraction(w.ScheduledDeparture, w.ScheduledArrival)
			} else {
				m.unscheduled = OutOfServiceFraction(w.ScheduledDeparture, w.ScheduledArrival)
			}

			return contribute(monthlyKey{monthID: monthID, aircraftID: aircraftID}, m)
		},
		func(acc *monthlyMeasures, m monthlyMeasures) {
			acc.days = m.days
			acc.scheduled += m.scheduled
			acc.unscheduled += m.unscheduled
		},
	)

	rows := make([]records.AircraftMonthlySummary, 0, len(g.keys))
	for _, key := range g.keys {
		m := g.measures[key]
		rows = append(rows, records.AircraftMonthlySummary{
			MonthID:    key.monthID,
			AircraftID: key.aircraftID,
			ADIS:       float64(m.days) - (m.scheduled + m.unscheduled),
			ADOSS:      m.scheduled,
			ADOSU:      m.unscheduled,
		})
	}

	return rows, g.skips
}

// OutOfServiceFraction returns the share of a day covered by a maintenance
// window, clamped to [0, 1].
func OutOfServiceFraction(start, end time.Time) float64 {
	fraction := end.Sub(start).Hours() / 24

	return math.Min(1, math.Max(0, fraction))
}

type logbookKey struct {
	monthID    int64
	aircraftID int64
	reporterID int64
}

// Logbooks counts reports per month, aircraft and reporter.
func (a *Aggregator) Logbooks(reports []records.PostFlightReport) ([]records.Logbook, []Skip) {
	g := accumulate(a.log, FactLogbooks, reports,
		func(r *records.PostFlightReport) Result[logbookKey, int64] {
			monthID, err := a.resolver.MonthID(r.ReportingDate)
			if err != nil {
				return skip[logbookKey, int64](FactLogbooks, r.ID, *r, err)
			}

			aircraftID, err := a.resolver.AircraftID(r.AircraftRegistration)
			if err != nil {
				return skip[logbookKey, int64](FactLogbooks, r.ID, *r, err)
			}

			reporterID, err := a.resolver.ReporterID(r.ReporterClass, r.ExecutionPlace)
			if err != nil {
				return skip[logbookKey, int64](FactLogbooks, r.ID, *r, err)
			}

			return contribute(logbookKey{monthID: monthID, aircraftID: aircraftID, reporterID: reporterID}, int64(1))
		},
		func(acc *int64, n int64) {
			*acc += n
		},
	)

	rows := make([]records.Logbook, 0, len(g.keys))
	for _, key := range g.keys {
		rows = append(rows, records.Logbook{
			MonthID:    key.monthID,
			AircraftID: key.aircraftID,
			ReporterID: key.reporterID,
			LogCount:   *g.measures[key],
		})
	}

	return rows, g.skips
}
