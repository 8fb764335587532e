package testutil

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniredisClient starts an in-memory Redis and returns it with a
// connected client. Closing the client before the test ends is allowed.
func NewMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			t.Logf("failed to close miniredis client: %v", err)
		}
	})

	return mr, client
}

// MiniredisURL returns the redis:// URL of mr.
func MiniredisURL(mr *miniredis.Miniredis) string {
	return "redis://" + mr.Addr()
}
