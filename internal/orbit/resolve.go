// SPDX-License-Identifier: MIT

package orbit

import (
	"time"

	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/metrics"
	"github.com/perigee-io/eofetch/internal/product"
)

// Request asks for the best orbit file covering an instant for a mission.
type Request struct {
	Time    time.Time
	Mission product.Mission
}

// CatalogFunc yields the partitioned catalog for an orbit kind. It is how
// the resolver reaches whatever provider/cache combination the caller
// wired up; fetching happens at most once per kind per batch.
type CatalogFunc func(kind Kind, maxTime time.Time) (map[product.Mission][]Record, error)

// Resolution pairs a request with the record selected for it, so callers
// can track outcomes per request.
type Resolution struct {
	Request Request
	Record  Record
}

// ResolveBatch picks the best covering record for each request, cascading
// from precise to restituted orbits.
//
// With kind == Precise every request is first attempted against the
// precise partition with precise margins; only the misses are retried
// against the restituted partition with restituted margins. Requests that
// miss both passes come back in unresolved. Coverage misses never surface
// as errors; only catalog retrieval failures do.
func ResolveBatch(requests []Request, kind Kind, catalog CatalogFunc) (resolved []Resolution, unresolved []Request, err error) {
	if len(requests) == 0 {
		return nil, nil, nil
	}
	logger := xlog.WithComponent("resolver")

	maxTime := requests[0].Time
	for _, req := range requests[1:] {
		if req.Time.After(maxTime) {
			maxTime = req.Time
		}
	}

	byMission, err := catalog(kind, maxTime)
	if err != nil {
		return nil, requests, err
	}

	margins := DefaultMargins(kind)
	var missed []Request
	for _, req := range requests {
		best, err := Best(req.Time, req.Time, byMission[req.Mission], margins)
		if err != nil {
			logger.Debug().
				Str(xlog.FieldMission, string(req.Mission)).
				Str(xlog.FieldOrbitKind, string(kind)).
				Time("target", req.Time).
				Msg("no covering orbit file")
			metrics.SelectionMisses.WithLabelValues(string(kind)).Inc()
			missed = append(missed, req)
			continue
		}
		resolved = append(resolved, Resolution{Request: req, Record: best})
	}

	if len(missed) > 0 && kind == Precise {
		logger.Warn().
			Int("count", len(missed)).
			Msg("falling back to restituted orbits for uncovered requests")
		fallback, stillMissed, err := ResolveBatch(missed, Restituted, catalog)
		if err != nil {
			return resolved, missed, err
		}
		resolved = append(resolved, fallback...)
		missed = stillMissed
	}

	return resolved, missed, nil
}
