package warehouse

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/fleetdw/pkg/clickhouse"
	"github.com/ethpandaops/fleetdw/pkg/dimension"
)

// Supported drivers
const (
	DriverDuckDB     = "duckdb"
	DriverClickHouse = "clickhouse"
)

// Static errors for configuration validation
var (
	ErrUnknownDriver    = errors.New("unknown warehouse driver")
	ErrUnknownHierarchy = errors.New("unknown date hierarchy")
	ErrPathRequired     = errors.New("duckdb path is required")
)

// Config selects and configures the warehouse sink
type Config struct {
	Driver string `yaml:"driver" default:"duckdb"`
	// Reset drops the whole warehouse, including the run ledger, on start.
	// The star schema itself is always rebuilt.
	Reset         bool              `yaml:"reset" default:"true"`
	DateHierarchy string            `yaml:"dateHierarchy" default:"flat"`
	DuckDB        DuckDBConfig      `yaml:"duckdb"`
	ClickHouse    clickhouse.Config `yaml:"clickhouse"`
}

// DuckDBConfig configures the embedded DuckDB warehouse
type DuckDBConfig struct {
	Path      string `yaml:"path" default:"fleet_dw.duckdb"`
	Threads   int    `yaml:"threads"`
	MaxMemory string `yaml:"maxMemory" default:"1GB"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch dimension.Hierarchy(c.DateHierarchy) {
	case dimension.HierarchyFlat, dimension.HierarchySnowflake:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHierarchy, c.DateHierarchy)
	}

	switch c.Driver {
	case DriverDuckDB:
		if c.DuckDB.Path == "" {
			return ErrPathRequired
		}
	case DriverClickHouse:
		if err := c.ClickHouse.Validate(); err != nil {
			return fmt.Errorf("invalid clickhouse config: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}

	return nil
}

// Hierarchy returns the configured date hierarchy
func (c *Config) Hierarchy() dimension.Hierarchy {
	return dimension.Hierarchy(c.DateHierarchy)
}
