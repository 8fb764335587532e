// Package records defines the typed source records, dimension rows and fact
// rows that flow through the warehouse load.
package records

import (
	"time"
)

// Reporter classes
const (
	ReporterClassPIREP = "PIREP"
	ReporterClassMAREP = "MAREP"
)

// Flight is a single flight as recorded by the flight operations system.
type Flight struct {
	ID                   string
	AircraftRegistration string
	ScheduledDeparture   time.Time
	ScheduledArrival     time.Time
	ActualDeparture      *time.Time
	ActualArrival        *time.Time
	Cancelled            bool
	// DelayCode is empty when no delay was coded
	DelayCode string
}

// HasActualTimes reports whether both actual timestamps are known.
func (f *Flight) HasActualTimes() bool {
	return f.ActualDeparture != nil && f.ActualArrival != nil
}

// ArrivalDelay returns actual minus scheduled arrival, or zero when the
// actual arrival is unknown.
func (f *Flight) ArrivalDelay() time.Duration {
	if f.ActualArrival == nil {
		return 0
	}

	return f.ActualArrival.Sub(f.ScheduledArrival)
}

// MaintenanceWindow is a scheduled out-of-service slot for an aircraft.
type MaintenanceWindow struct {
	ID                   string
	AircraftRegistration string
	ScheduledDeparture   time.Time
	ScheduledArrival     time.Time
	Programmed           bool
}

// PostFlightReport is a report filed by a pilot or a maintenance technician.
type PostFlightReport struct {
	ID                   string
	AircraftRegistration string
	ReportingDate        time.Time
	ReporterClass        string
	ReporterID           string
	ExecutionPlace       string
	// TLBOrder references a technical logbook work order, nil when absent
	TLBOrder *int64
}

// TechnicalLogbookEntry is a technical logbook work order.
type TechnicalLogbookEntry struct {
	WorkOrderID          int64
	AircraftRegistration string
	ReportingDate        time.Time
	ExecutionPlace       string
	ReporterID           string
}

// AircraftInfo is a row of the aircraft manufacturer lookup file.
type AircraftInfo struct {
	RegistrationCode         string
	ManufacturerSerialNumber string
	Model                    string
	Manufacturer             string
}

// MaintenancePersonnel is a row of the maintenance personnel file.
type MaintenancePersonnel struct {
	ReporterID string
	Airport    string
}

// Batch holds every record extracted for a single load.
type Batch struct {
	Flights     []Flight
	Maintenance []MaintenanceWindow
	Reports     []PostFlightReport
	Logbook     []TechnicalLogbookEntry
	Fleet       []AircraftInfo
	Personnel   []MaintenancePersonnel
}

// Counts returns the number of records per source stream.
func (b *Batch) Counts() map[string]int {
	return map[string]int{
		"flights":     len(b.Flights),
		"maintenance": len(b.Maintenance),
		"reports":     len(b.Reports),
		"logbook":     len(b.Logbook),
		"fleet":       len(b.Fleet),
		"personnel":   len(b.Personnel),
	}
}
