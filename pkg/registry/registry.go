// Package registry assigns and resolves dense surrogate keys for dimension
// natural keys.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// NaturalKey is the business identity of a dimension entity.
type NaturalKey interface {
	comparable
	String() string
}

// Entry is a registered dimension entity.
type Entry[K NaturalKey, A comparable] struct {
	ID         int64
	Key        K
	Attributes A
}

// Persister writes a newly registered entry to durable storage.
type Persister[K NaturalKey, A comparable] interface {
	Persist(ctx context.Context, entry Entry[K, A]) error
}

// PersistFunc adapts a function to the Persister interface.
type PersistFunc[K NaturalKey, A comparable] func(ctx context.Context, entry Entry[K, A]) error

// Persist calls f(ctx, entry)
func (f PersistFunc[K, A]) Persist(ctx context.Context, entry Entry[K, A]) error {
	return f(ctx, entry)
}

// Chain returns a Persister that calls each persister in order and stops at
// the first error. Nil persisters are skipped.
func Chain[K NaturalKey, A comparable](persisters ...Persister[K, A]) Persister[K, A] {
	return PersistFunc[K, A](func(ctx context.Context, entry Entry[K, A]) error {
		for _, p := range persisters {
			if p == nil {
				continue
			}

			if err := p.Persist(ctx, entry); err != nil {
				return err
			}
		}

		return nil
	})
}

// Registry maps natural keys to surrogate keys for a single dimension.
// Keys are assigned densely from 1 in first-seen order and never change.
type Registry[K NaturalKey, A comparable] struct {
	name      string
	log       logrus.FieldLogger
	persister Persister[K, A]

	mu      sync.RWMutex
	ids     map[K]int64
	entries []Entry[K, A]
}

// New creates an empty registry. A nil persister keeps the registry in memory only.
func New[K NaturalKey, A comparable](log logrus.FieldLogger, name string, persister Persister[K, A]) *Registry[K, A] {
	return &Registry[K, A]{
		name:      name,
		log:       log.WithField("dimension", name),
		persister: persister,
		ids:       make(map[K]int64),
	}
}

// Name returns the dimension name
func (r *Registry[K, A]) Name() string {
	return r.name
}

// Ensure returns the surrogate key for key, registering and persisting it
// first if it has not been seen. Attributes of an existing entry are kept.
func (r *Registry[K, A]) Ensure(ctx context.Context, key K, attrs A) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[key]; ok {
		if r.entries[id-1].Attributes != attrs {
			r.log.WithField("key", key.String()).Debug("Keeping stored attributes for existing key")
		}

		return id, nil
	}

	entry := Entry[K, A]{
		ID:         int64(len(r.entries)) + 1,
		Key:        key,
		Attributes: attrs,
	}

	if r.persister != nil {
		if err := r.persister.Persist(ctx, entry); err != nil {
			return 0, fmt.Errorf("failed to persist %s %q: %w", r.name, key.String(), err)
		}
	}

	r.ids[key] = entry.ID
	r.entries = append(r.entries, entry)

	return entry.ID, nil
}

// Lookup returns the surrogate key for a previously ensured key.
func (r *Registry[K, A]) Lookup(key K) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.ids[key]
	if !ok {
		return 0, &LookupError{Dimension: r.name, Key: key.String()}
	}

	return id, nil
}

// Len returns the number of registered entries
func (r *Registry[K, A]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Entries returns a copy of all entries ordered by surrogate key.
func (r *Registry[K, A]) Entries() []Entry[K, A] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry[K, A], len(r.entries))
	copy(out, r.entries)

	return out
}
