package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a natural key was never ensured
	ErrKeyNotFound = errors.New("natural key not found")
	// ErrMissingNaturalKey is returned when a record lacks a natural key field
	ErrMissingNaturalKey = errors.New("missing natural key")
	// ErrInvalidDate is returned when a date key is not a real calendar date
	ErrInvalidDate = errors.New("invalid calendar date")
)

// LookupError reports a failed natural key resolution against a dimension.
type LookupError struct {
	Dimension string
	Key       string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrKeyNotFound, e.Dimension, e.Key)
}

// Unwrap allows errors.Is(err, ErrKeyNotFound)
func (e *LookupError) Unwrap() error {
	return ErrKeyNotFound
}
