// Package source extracts the records of a load from the operational
// database and the reference files.
package source

import (
	"context"
	"fmt"

	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/sirupsen/logrus"
)

// Extractor produces the fully materialised batch of a load.
type Extractor interface {
	Start(ctx context.Context) error
	Extract(ctx context.Context) (*records.Batch, error)
	Stop() error
}

// Source extracts flights and maintenance from AIMS, reports and logbook
// orders from AMOS, and fleet and personnel from CSV files.
type Source struct {
	log      logrus.FieldLogger
	cfg      *Config
	postgres *Postgres
}

var _ Extractor = (*Source)(nil)

// New creates a Source
func New(log logrus.FieldLogger, cfg *Config) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}

	pg, err := NewPostgres(log, &cfg.Postgres)
	if err != nil {
		return nil, err
	}

	return &Source{
		log:      log.WithField("component", "source"),
		cfg:      cfg,
		postgres: pg,
	}, nil
}

// Start connects to the source database
func (s *Source) Start(ctx context.Context) error {
	return s.postgres.Start(ctx)
}

// Stop closes the source database
func (s *Source) Stop() error {
	return s.postgres.Stop()
}

// Extract reads every source stream into memory.
func (s *Source) Extract(ctx context.Context) (*records.Batch, error) {
	var (
		batch records.Batch
		err   error
	)

	if batch.Fleet, err = readFile(s.cfg.Files.AircraftLookup, ParseAircraftInfo); err != nil {
		return nil, err
	}

	if batch.Personnel, err = readFile(s.cfg.Files.Personnel, ParsePersonnel); err != nil {
		return nil, err
	}

	if batch.Flights, err = s.postgres.Flights(ctx); err != nil {
		return nil, err
	}

	if batch.Maintenance, err = s.postgres.Maintenance(ctx); err != nil {
		return nil, err
	}

	if batch.Reports, err = s.postgres.Reports(ctx); err != nil {
		return nil, err
	}

	if batch.Logbook, err = s.postgres.Logbook(ctx); err != nil {
		return nil, err
	}

	counts := batch.Counts()
	fields := logrus.Fields{}

	for stream, n := range counts {
		observability.RecordExtracted(stream, n)
		fields[stream] = n
	}

	s.log.WithFields(fields).Info("Extracted source records")

	return &batch, nil
}
