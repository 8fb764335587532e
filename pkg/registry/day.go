package registry

import (
	"context"
	"fmt"
)

// DayRegistry is the snowflaked date hierarchy: each day references its
// month's surrogate key, so the month is always resolved first.
type DayRegistry struct {
	months *MonthRegistry
	days   *Registry[DayKey, NoAttributes]
}

// NewDayRegistry creates a day level on top of months.
func NewDayRegistry(months *MonthRegistry, days *Registry[DayKey, NoAttributes]) *DayRegistry {
	return &DayRegistry{
		months: months,
		days:   days,
	}
}

// Ensure registers the month of key and then the day within it.
func (d *DayRegistry) Ensure(ctx context.Context, key DateKey) (int64, error) {
	if !key.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDate, key)
	}

	monthID, err := d.months.Ensure(ctx, key.MonthKey(), NoAttributes{})
	if err != nil {
		return 0, err
	}

	return d.days.Ensure(ctx, DayKey{MonthID: monthID, Day: key.Day}, NoAttributes{})
}

// Lookup resolves the month of key and then the day within it.
func (d *DayRegistry) Lookup(key DateKey) (int64, error) {
	monthID, err := d.months.Lookup(key.MonthKey())
	if err != nil {
		return 0, err
	}

	id, err := d.days.Lookup(DayKey{MonthID: monthID, Day: key.Day})
	if err != nil {
		return 0, &LookupError{Dimension: d.days.Name(), Key: key.String()}
	}

	return id, nil
}

// Len returns the number of registered days
func (d *DayRegistry) Len() int {
	return d.days.Len()
}

// Months returns the month level
func (d *DayRegistry) Months() *MonthRegistry {
	return d.months
}
