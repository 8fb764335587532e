// Package keystore mirrors surrogate key assignments into Redis and guards
// loads with a run lock.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	// ErrLockHeld is returned when another run holds the run lock
	ErrLockHeld = errors.New("run lock is held by another run")
	// ErrLockNotOwned is returned when releasing a lock owned by another run
	ErrLockNotOwned = errors.New("run lock is not owned by this run")
)

const lockKey = "lock:run"

// releaseScript deletes the lock only while it still belongs to the caller.
//
//nolint:gochecknoglobals // Compiled once
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store keeps one hash per dimension mapping natural keys to surrogate keys.
type Store struct {
	log    logrus.FieldLogger
	cfg    *Config
	client *redis.Client
}

// New connects a store from cfg
func New(log logrus.FieldLogger, cfg *Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return NewWithClient(log, cfg, redis.NewClient(opts)), nil
}

// NewWithClient creates a store on an existing client
func NewWithClient(log logrus.FieldLogger, cfg *Config, client *redis.Client) *Store {
	return &Store{
		log:    log.WithField("component", "keystore"),
		cfg:    cfg,
		client: client,
	}
}

// Start verifies the connection
func (s *Store) Start(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

// Stop closes the client
func (s *Store) Stop() error {
	return s.client.Close()
}

func (s *Store) dimensionKey(dimension string) string {
	return s.cfg.PrefixKey("keys:" + dimension)
}

// Mirror records the surrogate key of a natural key
func (s *Store) Mirror(ctx context.Context, dimension, naturalKey string, id int64) error {
	if err := s.client.HSet(ctx, s.dimensionKey(dimension), naturalKey, id).Err(); err != nil {
		return fmt.Errorf("failed to mirror %s key %q: %w", dimension, naturalKey, err)
	}

	return nil
}

// Get returns the mirrored surrogate key, or false when none is recorded.
func (s *Store) Get(ctx context.Context, dimension, naturalKey string) (int64, bool, error) {
	value, err := s.client.HGet(ctx, s.dimensionKey(dimension), naturalKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, err
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt %s key %q: %w", dimension, naturalKey, err)
	}

	return id, true, nil
}

// Len returns the number of mirrored keys of a dimension
func (s *Store) Len(ctx context.Context, dimension string) (int64, error) {
	return s.client.HLen(ctx, s.dimensionKey(dimension)).Result()
}

// Reset removes every mirrored dimension. Keys are dense per run, so the
// mirror is cleared before a load repopulates it.
func (s *Store) Reset(ctx context.Context) error {
	var (
		cursor uint64
		keys   []string
	)

	pattern := s.dimensionKey("*")

	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan mirrored keys: %w", err)
		}

		keys = append(keys, batch...)
		cursor = next

		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete mirrored keys: %w", err)
	}

	s.log.WithField("dimensions", len(keys)).Debug("Cleared key mirror")

	return nil
}

// AcquireRunLock takes the run lock for runID. It fails with ErrLockHeld
// while another run holds it.
func (s *Store) AcquireRunLock(ctx context.Context, runID string) error {
	key := s.cfg.PrefixKey(lockKey)

	acquired, err := s.client.SetNX(ctx, key, runID, s.cfg.LockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}

	if !acquired {
		owner, err := s.client.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			s.log.WithError(err).Debug("Failed to check lock owner")
		}

		return fmt.Errorf("%w: %s", ErrLockHeld, owner)
	}

	s.log.WithFields(logrus.Fields{
		"run_id": runID,
		"ttl":    s.cfg.LockTTL,
	}).Debug("Acquired run lock")

	return nil
}

// ReleaseRunLock releases the run lock if runID still owns it.
func (s *Store) ReleaseRunLock(ctx context.Context, runID string) error {
	deleted, err := releaseScript.Run(ctx, s.client, []string{s.cfg.PrefixKey(lockKey)}, runID).Int()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}

	if deleted == 0 {
		return ErrLockNotOwned
	}

	s.log.WithField("run_id", runID).Debug("Released run lock")

	return nil
}
