// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/metrics"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/product"
)

// Session memoises parsed orbit catalogs for the duration of one run.
// The catalog for a kind is built at most once: cache read, staleness
// check against the newest requested time, provider fetch on miss, cache
// write. Both the store and the provider are constructor-injected, so
// independent sessions never share state.
//
// Session is safe for concurrent use: concurrent callers asking for the
// same kind serialise on the build, and all but the first get the
// memoised result.
type Session struct {
	provider Provider
	store    Store

	mu      sync.Mutex
	records map[orbit.Kind][]orbit.Record
}

// NewSession returns a session backed by the given provider and store.
// A nil store disables persistent caching.
func NewSession(provider Provider, store Store) *Session {
	return &Session{
		provider: provider,
		store:    store,
		records:  make(map[orbit.Kind][]orbit.Record),
	}
}

// Records returns every parsed orbit record of the given kind, fetching
// and caching on first use. maxTime is the newest time any request in
// this session will ask for; a cached list whose newest record predates
// it is discarded and re-fetched in full.
func (s *Session) Records(ctx context.Context, kind orbit.Kind, maxTime time.Time) ([]orbit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recs, ok := s.records[kind]; ok {
		return recs, nil
	}
	logger := xlog.WithComponentFromContext(ctx, "catalog")

	if s.store != nil {
		names, ok, err := s.store.Read(kind)
		if err != nil {
			return nil, err
		}
		if ok {
			recs := parseAll(names, logger)
			newest, nonEmpty := orbit.MaxValidityStart(recs)
			if nonEmpty && !orbit.NeedsRefresh(newest, maxTime) {
				logger.Info().
					Str(xlog.FieldOrbitKind, string(kind)).
					Int("count", len(recs)).
					Msg("using cached orbit file list")
				metrics.CacheReads.WithLabelValues(string(kind), "hit").Inc()
				s.records[kind] = recs
				return recs, nil
			}
			logger.Warn().
				Str(xlog.FieldOrbitKind, string(kind)).
				Time("cached_max", newest).
				Time("requested_max", maxTime).
				Msg("cached orbit file list is stale, clearing")
			metrics.CacheReads.WithLabelValues(string(kind), "stale").Inc()
			if err := s.store.Clear(kind); err != nil {
				return nil, err
			}
		} else {
			metrics.CacheReads.WithLabelValues(string(kind), "miss").Inc()
		}
	}

	names, err := s.provider.Fetch(ctx, kind)
	if err != nil {
		metrics.CatalogFetches.WithLabelValues(s.provider.Name(), string(kind), "error").Inc()
		return nil, fmt.Errorf("fetch %s catalog from %s: %w", kind, s.provider.Name(), err)
	}
	metrics.CatalogFetches.WithLabelValues(s.provider.Name(), string(kind), "ok").Inc()

	recs := parseAll(names, logger)
	logger.Info().
		Str(xlog.FieldBackend, s.provider.Name()).
		Str(xlog.FieldOrbitKind, string(kind)).
		Int("count", len(recs)).
		Msg("fetched orbit file list")

	if s.store != nil {
		if err := s.store.Write(kind, names); err != nil {
			return nil, err
		}
	}
	s.records[kind] = recs
	return recs, nil
}

// Partitioned returns the session catalog grouped by mission, in the
// shape orbit.ResolveBatch consumes.
func (s *Session) Partitioned(ctx context.Context) orbit.CatalogFunc {
	return func(kind orbit.Kind, maxTime time.Time) (map[product.Mission][]orbit.Record, error) {
		recs, err := s.Records(ctx, kind, maxTime)
		if err != nil {
			return nil, err
		}
		return orbit.PartitionByMission(recs), nil
	}
}

// parseAll converts raw filenames to records. Unparseable names are
// skipped with a debug log; one bad name never aborts a catalog.
func parseAll(names []string, logger zerolog.Logger) []orbit.Record {
	recs := make([]orbit.Record, 0, len(names))
	for _, name := range names {
		r, err := orbit.ParseRecord(name)
		if err != nil {
			logger.Debug().Str(xlog.FieldFilename, name).Msg("skipping unparseable orbit filename")
			continue
		}
		recs = append(recs, r)
	}
	return recs
}
