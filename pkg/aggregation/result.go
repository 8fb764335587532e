package aggregation

import (
	"errors"

	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/ethpandaops/fleetdw/pkg/registry"
	"github.com/sirupsen/logrus"
)

// Skip describes a record left out of a fact table.
type Skip struct {
	Fact     string
	RecordID string
	Reason   error
	Record   any
}

// Result is the outcome of resolving one record: either a contribution to
// a fact key or a skip.
type Result[K comparable, M any] struct {
	Key      K
	Measures M
	Skip     *Skip
}

func contribute[K comparable, M any](key K, measures M) Result[K, M] {
	return Result[K, M]{Key: key, Measures: measures}
}

func skip[K comparable, M any](fact, recordID string, record any, reason error) Result[K, M] {
	return Result[K, M]{Skip: &Skip{Fact: fact, RecordID: recordID, Reason: reason, Record: record}}
}

// group holds the accumulated measures per key in first-seen order.
type group[K comparable, M any] struct {
	keys     []K
	measures map[K]*M
	skips    []Skip
}

// accumulate resolves every record and merges contributions sharing a key.
// Skipped records are logged with their payload and never abort the batch.
func accumulate[R any, K comparable, M any](
	log logrus.FieldLogger,
	fact string,
	input []R,
	resolve func(record *R) Result[K, M],
	merge func(acc *M, m M),
) *group[K, M] {
	g := &group[K, M]{measures: make(map[K]*M)}

	for i := range input {
		res := resolve(&input[i])
		if res.Skip != nil {
			g.skips = append(g.skips, *res.Skip)

			observability.RecordSkipped(fact, skipReason(res.Skip.Reason))
			log.WithFields(logrus.Fields{
				"fact":      fact,
				"record_id": res.Skip.RecordID,
				"record":    res.Skip.Record,
			}).WithError(res.Skip.Reason).Warn("Skipping record")

			continue
		}

		acc, ok := g.measures[res.Key]
		if !ok {
			acc = new(M)
			g.measures[res.Key] = acc
			g.keys = append(g.keys, res.Key)
		}

		merge(acc, res.Measures)
	}

	return g
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, registry.ErrKeyNotFound):
		return "unknown_key"
	case errors.Is(err, registry.ErrMissingNaturalKey):
		return "missing_key"
	default:
		return "invalid"
	}
}
