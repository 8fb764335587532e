// Package cleaning applies the fleet business rules to extracted records
// before they are aggregated.
package cleaning

import (
	"maps"
	"slices"
	"sort"

	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/sirupsen/logrus"
)

// Rule identifies a business rule
type Rule string

// Business rules, in the order they are applied
const (
	RuleChronology      Rule = "chronological_order"
	RuleOverlap         Rule = "overlapping_flights"
	RuleUnknownAircraft Rule = "unknown_aircraft"
	RuleOrphanLogbook   Rule = "orphan_logbook"
)

// Report counts the violations found per rule
type Report struct {
	Violations map[Rule]int
}

// Total returns the number of violations across all rules
func (r *Report) Total() int {
	if r == nil {
		return 0
	}

	total := 0
	for _, n := range r.Violations {
		total += n
	}

	return total
}

// Cleaner applies the business rules. It never mutates its inputs.
type Cleaner struct {
	log logrus.FieldLogger
}

// NewCleaner creates a new cleaner
func NewCleaner(log logrus.FieldLogger) *Cleaner {
	return &Cleaner{
		log: log.WithField("component", "cleaner"),
	}
}

// Clean applies every rule to the batch and returns the cleaned copy.
func (c *Cleaner) Clean(batch *records.Batch) (*records.Batch, *Report) {
	report := &Report{Violations: make(map[Rule]int)}

	flights, swapped := c.FixChronology(batch.Flights)
	report.Violations[RuleChronology] = swapped

	flights, overlaps := c.ExcludeOverlaps(flights)
	report.Violations[RuleOverlap] = overlaps

	reports, unknown := c.FilterUnknownAircraft(batch.Reports, batch.Fleet)
	report.Violations[RuleUnknownAircraft] = unknown

	logbook, orphans := c.FilterOrphanLogbooks(batch.Logbook, reports)
	report.Violations[RuleOrphanLogbook] = orphans

	for rule, n := range report.Violations {
		observability.RecordViolations(string(rule), n)
	}

	c.log.WithFields(logrus.Fields{
		"swapped":          swapped,
		"overlaps":         overlaps,
		"unknown_aircraft": unknown,
		"orphan_logbooks":  orphans,
	}).Info("Cleaned batch")

	return &records.Batch{
		Flights:     flights,
		Maintenance: slices.Clone(batch.Maintenance),
		Reports:     reports,
		Logbook:     logbook,
		Fleet:       slices.Clone(batch.Fleet),
		Personnel:   slices.Clone(batch.Personnel),
	}, report
}

// FixChronology swaps the actual departure and arrival of flights that
// arrive before they depart. No flight is dropped.
func (c *Cleaner) FixChronology(flights []records.Flight) ([]records.Flight, int) {
	out := make([]records.Flight, len(flights))
	swapped := 0

	for i := range flights {
		f := flights[i]
		if f.HasActualTimes() && f.ActualArrival.Before(*f.ActualDeparture) {
			f.ActualDeparture, f.ActualArrival = f.ActualArrival, f.ActualDeparture
			swapped++

			c.log.WithFields(logrus.Fields{
				"rule":      RuleChronology,
				"aircraft":  f.AircraftRegistration,
				"flight_id": f.ID,
			}).Info("Swapping actual arrival and departure")
		}

		out[i] = f
	}

	return out, swapped
}

// ExcludeOverlaps drops the earlier flight of every adjacent pair of
// overlapping flights of the same aircraft. Cancelled flights and flights
// without both actual timestamps are not compared and pass through.
func (c *Cleaner) ExcludeOverlaps(flights []records.Flight) ([]records.Flight, int) {
	byAircraft := make(map[string][]int)

	for i := range flights {
		if flights[i].Cancelled || !flights[i].HasActualTimes() {
			continue
		}

		byAircraft[flights[i].AircraftRegistration] = append(byAircraft[flights[i].AircraftRegistration], i)
	}

	excluded := make(map[int]bool)

	for _, aircraft := range slices.Sorted(maps.Keys(byAircraft)) {
		idx := byAircraft[aircraft]

		sort.SliceStable(idx, func(a, b int) bool {
			fa, fb := &flights[idx[a]], &flights[idx[b]]
			if !fa.ActualDeparture.Equal(*fb.ActualDeparture) {
				return fa.ActualDeparture.Before(*fb.ActualDeparture)
			}

			return fa.ID < fb.ID
		})

		for k := 0; k+1 < len(idx); k++ {
			earlier, later := &flights[idx[k]], &flights[idx[k+1]]
			if !earlier.ActualArrival.After(*later.ActualDeparture) {
				continue
			}

			excluded[idx[k]] = true

			c.log.WithFields(logrus.Fields{
				"rule":      RuleOverlap,
				"aircraft":  aircraft,
				"flight_id": earlier.ID,
				"kept_id":   later.ID,
			}).Info("Excluding overlapping flight")
		}
	}

	out := make([]records.Flight, 0, len(flights)-len(excluded))
	for i := range flights {
		if !excluded[i] {
			out = append(out, flights[i])
		}
	}

	return out, len(excluded)
}

// FilterUnknownAircraft keeps the reports whose aircraft is in the fleet.
func (c *Cleaner) FilterUnknownAircraft(reports []records.PostFlightReport, fleet []records.AircraftInfo) ([]records.PostFlightReport, int) {
	known := make(map[string]struct{}, len(fleet))
	for i := range fleet {
		known[fleet[i].RegistrationCode] = struct{}{}
	}

	out := make([]records.PostFlightReport, 0, len(reports))
	dropped := 0

	for i := range reports {
		if _, ok := known[reports[i].AircraftRegistration]; ok {
			out = append(out, reports[i])

			continue
		}

		dropped++

		c.log.WithFields(logrus.Fields{
			"rule":      RuleUnknownAircraft,
			"aircraft":  reports[i].AircraftRegistration,
			"report_id": reports[i].ID,
		}).Warn("Ignoring report for aircraft not in fleet")
	}

	return out, dropped
}

// FilterOrphanLogbooks keeps the logbook entries referenced by one of the
// given reports. Reports must already be filtered by FilterUnknownAircraft.
func (c *Cleaner) FilterOrphanLogbooks(entries []records.TechnicalLogbookEntry, reports []records.PostFlightReport) ([]records.TechnicalLogbookEntry, int) {
	valid := make(map[int64]struct{})
	for i := range reports {
		if reports[i].TLBOrder != nil {
			valid[*reports[i].TLBOrder] = struct{}{}
		}
	}

	out := make([]records.TechnicalLogbookEntry, 0, len(entries))
	dropped := 0

	for i := range entries {
		if _, ok := valid[entries[i].WorkOrderID]; ok {
			out = append(out, entries[i])

			continue
		}

		dropped++

		c.log.WithFields(logrus.Fields{
			"rule":          RuleOrphanLogbook,
			"work_order_id": entries[i].WorkOrderID,
		}).Warn("Ignoring logbook entry without a valid report")
	}

	return out, dropped
}
