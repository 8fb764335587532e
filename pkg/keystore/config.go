package keystore

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Static errors for configuration validation
var (
	ErrLockTTLRequired = errors.New("lock TTL must be positive")
)

// Config configures the Redis key store. An empty URL disables it.
type Config struct {
	URL     string        `yaml:"url"`
	Prefix  string        `yaml:"prefix" default:"fleetdw"`
	LockTTL time.Duration `yaml:"lockTTL" default:"1h"`
}

// Enabled reports whether a Redis URL is configured
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}

	if _, err := redis.ParseURL(c.URL); err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}

	if c.LockTTL <= 0 {
		return ErrLockTTLRequired
	}

	return nil
}

// PrefixKey adds the configured prefix to a Redis key
func (c *Config) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}

	return fmt.Sprintf("%s:%s", c.Prefix, key)
}
