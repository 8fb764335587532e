// Package clickhouse provides a ClickHouse HTTP client
package clickhouse

import (
	"errors"
	"os"
	"time"
)

// Static errors for configuration validation
var (
	ErrURLRequired      = errors.New("URL is required")
	ErrDatabaseRequired = errors.New("database is required")
)

// Config contains ClickHouse connection settings
type Config struct {
	URL           string        `yaml:"url"`
	Database      string        `yaml:"database" default:"fleet_dw"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	QueryTimeout  time.Duration `yaml:"queryTimeout"`
	InsertTimeout time.Duration `yaml:"insertTimeout"`
	Debug         bool          `yaml:"debug"`
	KeepAlive     time.Duration `yaml:"keepAlive"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	if c.Database == "" {
		return ErrDatabaseRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.InsertTimeout == 0 {
		c.InsertTimeout = 5 * time.Minute
	}

	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
}

// MapDatabase maps a logical database name to a physical database name.
// If FLEETDW_DATABASE_PREFIX is set it is prepended to the name.
func (c *Config) MapDatabase(logicalName string) string {
	if prefix := os.Getenv("FLEETDW_DATABASE_PREFIX"); prefix != "" {
		return prefix + logicalName
	}

	return logicalName
}
