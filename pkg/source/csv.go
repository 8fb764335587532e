package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethpandaops/fleetdw/pkg/records"
)

// Reference file columns
const (
	columnRegistration = "aircraft_reg_code"
	columnSerialNumber = "manufacturer_serial_number"
	columnModel        = "aircraft_model"
	columnManufacturer = "aircraft_manufacturer"
	columnReporterID   = "reporteurid"
	columnAirport      = "airport"
)

// readCSV reads a comma separated file with a header row and calls fn for
// every data row with a lookup by column name.
func readCSV(r io.Reader, required []string, fn func(get func(column string) string) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	for _, column := range required {
		if _, ok := index[column]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to read line %d: %w", line, err)
		}

		get := func(column string) string {
			return strings.TrimSpace(row[index[column]])
		}

		if err := fn(get); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

// ParseAircraftInfo parses the aircraft manufacturer lookup file.
func ParseAircraftInfo(r io.Reader) ([]records.AircraftInfo, error) {
	var fleet []records.AircraftInfo

	err := readCSV(r, []string{columnRegistration, columnSerialNumber, columnModel, columnManufacturer}, func(get func(string) string) error {
		fleet = append(fleet, records.AircraftInfo{
			RegistrationCode:         get(columnRegistration),
			ManufacturerSerialNumber: get(columnSerialNumber),
			Model:                    get(columnModel),
			Manufacturer:             get(columnManufacturer),
		})

		return nil
	})

	return fleet, err
}

// ParsePersonnel parses the maintenance personnel file.
func ParsePersonnel(r io.Reader) ([]records.MaintenancePersonnel, error) {
	var personnel []records.MaintenancePersonnel

	err := readCSV(r, []string{columnReporterID, columnAirport}, func(get func(string) string) error {
		airport := get(columnAirport)
		if airport == "" {
			return fmt.Errorf("%w: empty airport for reporter %q", ErrInvalidValue, get(columnReporterID))
		}

		personnel = append(personnel, records.MaintenancePersonnel{
			ReporterID: get(columnReporterID),
			Airport:    airport,
		})

		return nil
	})

	return personnel, err
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return out, nil
}
