// SPDX-License-Identifier: MIT

package download

import (
	"context"
	"errors"

	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
)

// ErrThrottled reports an upstream rate limit (HTTP 429). The
// orchestrator treats it as a signal to hand the affected requests to
// the next source rather than hammer the throttled one.
var ErrThrottled = errors.New("upstream rate limited")

// Orchestrator tries sources in order until every request is satisfied.
// A request drops out of the batch as soon as its file is on disk;
// failed downloads and coverage misses carry over to the next source.
type Orchestrator struct {
	sources []Source
	fetcher *Fetcher
}

// NewOrchestrator builds an Orchestrator over the given source order.
func NewOrchestrator(fetcher *Fetcher, sources ...Source) *Orchestrator {
	return &Orchestrator{sources: sources, fetcher: fetcher}
}

// Run resolves and downloads orbit files for the requests. It returns
// the paths of every file now on disk and the requests no source could
// cover. Source failures are logged and fall through to the next
// source; Run errors only when the last source fails with requests
// still outstanding.
func (o *Orchestrator) Run(ctx context.Context, reqs []orbit.Request, kind orbit.Kind) (paths []string, unresolved []orbit.Request, err error) {
	logger := xlog.WithComponentFromContext(ctx, "download")

	remaining := reqs
	var lastErr error
	for _, src := range o.sources {
		if len(remaining) == 0 {
			break
		}

		files, missed, err := src.Resolve(ctx, remaining, kind)
		if err != nil {
			logger.Warn().
				Err(err).
				Str(xlog.FieldBackend, src.Name()).
				Int("requests", len(remaining)).
				Msg("source failed, trying next")
			lastErr = err
			continue
		}

		results := o.fetcher.FetchAll(ctx, files)
		var failed []orbit.Request
		var downloadErr error
		for _, r := range results {
			if r.Err != nil {
				logger.Warn().
					Err(r.Err).
					Str(xlog.FieldBackend, src.Name()).
					Str(xlog.FieldFilename, r.File.Name).
					Msg("download failed")
				failed = append(failed, r.File.Request)
				downloadErr = r.Err
				continue
			}
			paths = append(paths, r.Path)
		}

		// Requests whose files landed are done; only failed downloads
		// and coverage misses move on to the next source.
		remaining = append(failed, missed...)
		lastErr = downloadErr
	}

	if lastErr != nil {
		return paths, remaining, lastErr
	}
	return paths, remaining, nil
}
