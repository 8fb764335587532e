package source

import (
	"errors"
	"fmt"
)

// Static errors for configuration validation
var (
	ErrDSNRequired      = errors.New("postgres dsn is required")
	ErrSchemaRequired   = errors.New("source schema is required")
	ErrFileRequired     = errors.New("reference file path is required")
	ErrUnknownQuery     = errors.New("unknown source query")
	ErrMissingColumn    = errors.New("missing column")
	ErrInvalidValue     = errors.New("invalid value")
	ErrExtractorStopped = errors.New("extractor is not started")
)

// Config configures where records are extracted from
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Files    FilesConfig    `yaml:"files"`
}

// PostgresConfig configures the operational source database
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
	// Schemas holds the flight operations (AIMS) and maintenance (AMOS) schema names
	Schemas SchemasConfig `yaml:"schemas"`
	// Queries overrides the built-in extraction queries by name
	Queries map[string]string `yaml:"queries"`
}

// SchemasConfig names the source schemas
type SchemasConfig struct {
	AIMS string `yaml:"aims" default:"AIMS"`
	AMOS string `yaml:"amos" default:"AMOS"`
}

// FilesConfig locates the reference CSV files
type FilesConfig struct {
	AircraftLookup string `yaml:"aircraftLookup" default:"aircraft_manufacturerinfo-lookup.csv"`
	Personnel      string `yaml:"personnel" default:"maintenance_personnel.csv"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return ErrDSNRequired
	}

	if c.Postgres.Schemas.AIMS == "" || c.Postgres.Schemas.AMOS == "" {
		return ErrSchemaRequired
	}

	for name := range c.Postgres.Queries {
		if _, ok := defaultQueries[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownQuery, name)
		}
	}

	if c.Files.AircraftLookup == "" || c.Files.Personnel == "" {
		return ErrFileRequired
	}

	return nil
}
