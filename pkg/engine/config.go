// Package engine wires the source, the warehouse, the key store and the
// coordinator into a single load run.
package engine

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/fleetdw/pkg/cleaning"
	"github.com/ethpandaops/fleetdw/pkg/keystore"
	"github.com/ethpandaops/fleetdw/pkg/source"
	"github.com/ethpandaops/fleetdw/pkg/warehouse"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	// ErrScheduleRequired is returned when scheduling without a cron expression
	ErrScheduleRequired = errors.New("schedule is required")
)

// Config represents the complete engine configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info"`
	MetricsAddr     string `yaml:"metricsAddr"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`

	// Dependencies
	Source    source.Config    `yaml:"source"`
	Warehouse warehouse.Config `yaml:"warehouse"`
	Redis     keystore.Config  `yaml:"redis"`

	// Load behavior
	Cleaning cleaning.Config `yaml:"cleaning"`
	Schedule ScheduleConfig  `yaml:"schedule"`
}

// ScheduleConfig controls recurring runs
type ScheduleConfig struct {
	// Cron is a standard cron expression or descriptor such as @daily
	Cron string `yaml:"cron" default:"@daily"`
	// RunOnStart triggers a run as soon as the scheduler starts
	RunOnStart bool `yaml:"runOnStart"`
}

// Validate validates the schedule
func (c *ScheduleConfig) Validate() error {
	if c.Cron == "" {
		return ErrScheduleRequired
	}

	if _, err := cron.ParseStandard(c.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("invalid source config: %w", err)
	}

	if err := c.Warehouse.Validate(); err != nil {
		return fmt.Errorf("invalid warehouse config: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("invalid redis config: %w", err)
	}

	return c.Schedule.Validate()
}
