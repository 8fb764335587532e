package registry

import (
	"fmt"
	"time"
)

// Dimension names
const (
	DimensionAircraft = "aircraft"
	DimensionDate     = "date"
	DimensionMonth    = "month"
	DimensionDay      = "day"
	DimensionReporter = "reporter"
)

// NoAttributes is used by dimensions whose natural key is the whole entity.
type NoAttributes struct{}

// AircraftKey identifies an aircraft by registration code.
type AircraftKey struct {
	Registration string
}

func (k AircraftKey) String() string {
	return k.Registration
}

// AircraftAttributes are the descriptive columns of the aircraft dimension.
type AircraftAttributes struct {
	SerialNumber string
	Model        string
	Manufacturer string
}

// DateKey identifies a calendar day.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// DateKeyOf returns the calendar day of t in t's location.
func DateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()

	return DateKey{Year: y, Month: m, Day: d}
}

func (k DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// Valid reports whether the key names a real calendar day.
func (k DateKey) Valid() bool {
	if k.Month < time.January || k.Month > time.December || k.Day < 1 {
		return false
	}

	return k.Day <= MonthKey{Year: k.Year, Month: k.Month}.Days()
}

// MonthKey returns the month containing the day
func (k DateKey) MonthKey() MonthKey {
	return MonthKey{Year: k.Year, Month: k.Month}
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyOf returns the calendar month of t in t's location.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Days returns the number of days in the month.
func (k MonthKey) Days() int {
	return time.Date(k.Year, k.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayKey identifies a day within an already registered month.
type DayKey struct {
	MonthID int64
	Day     int
}

func (k DayKey) String() string {
	return fmt.Sprintf("%d/%02d", k.MonthID, k.Day)
}

// ReporterKey identifies a reporting role at an airport.
type ReporterKey struct {
	Class   string
	Airport string
}

func (k ReporterKey) String() string {
	return k.Class + "@" + k.Airport
}

// Concrete registries
type (
	AircraftRegistry = Registry[AircraftKey, AircraftAttributes]
	DateRegistry     = Registry[DateKey, NoAttributes]
	MonthRegistry    = Registry[MonthKey, NoAttributes]
	ReporterRegistry = Registry[ReporterKey, NoAttributes]
)
