// SPDX-License-Identifier: MIT

package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/metrics"
)

// DefaultMaxWorkers caps concurrent downloads when the caller does not.
const DefaultMaxWorkers = 3

// fileTimeout bounds a single file download.
const fileTimeout = 5 * time.Minute

// Fetcher downloads resolved orbit files to a directory.
type Fetcher struct {
	http       *http.Client
	destDir    string
	maxWorkers int
}

// NewFetcher returns a Fetcher writing into destDir. A maxWorkers of
// zero or less falls back to DefaultMaxWorkers.
func NewFetcher(destDir string, maxWorkers int) *Fetcher {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &Fetcher{
		http:       &http.Client{Timeout: fileTimeout},
		destDir:    destDir,
		maxWorkers: maxWorkers,
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func (f *Fetcher) WithHTTPClient(h *http.Client) *Fetcher {
	f.http = h
	return f
}

// FetchOne downloads a single file, skipping work when the destination
// already exists. The returned path is the final on-disk location.
func (f *Fetcher) FetchOne(ctx context.Context, rf RemoteFile) (string, error) {
	logger := xlog.WithComponentFromContext(ctx, "download")
	dest := filepath.Join(f.destDir, rf.Name)

	if _, err := os.Stat(dest); err == nil {
		logger.Debug().Str(xlog.FieldFilename, rf.Name).Msg("already downloaded, skipping")
		metrics.Downloads.WithLabelValues(rf.Backend, "skipped").Inc()
		return dest, nil
	}

	start := time.Now()
	if err := f.fetch(ctx, rf, dest); err != nil {
		metrics.Downloads.WithLabelValues(rf.Backend, "error").Inc()
		return "", fmt.Errorf("download %s: %w", rf.Name, err)
	}
	metrics.Downloads.WithLabelValues(rf.Backend, "ok").Inc()
	metrics.DownloadDuration.WithLabelValues(rf.Backend).Observe(time.Since(start).Seconds())

	logger.Info().
		Str(xlog.FieldFilename, rf.Name).
		Str(xlog.FieldBackend, rf.Backend).
		Dur("duration", time.Since(start)).
		Msg("orbit file downloaded")
	return dest, nil
}

func (f *Fetcher) fetch(ctx context.Context, rf RemoteFile, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rf.URL, nil)
	if err != nil {
		return err
	}
	for k, vs := range rf.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	res, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return ErrThrottled
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}

	if err := os.MkdirAll(f.destDir, 0o755); err != nil {
		return err
	}
	// Atomic write so an interrupted download never leaves a truncated
	// EOF behind to be picked up as valid.
	pf, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := io.Copy(pf, res.Body); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}

// Result pairs one attempted download with its outcome.
type Result struct {
	File RemoteFile
	Path string
	Err  error
}

// FetchAll downloads the files in parallel, bounded by maxWorkers.
// Individual failures do not abort the batch; each outcome is reported
// in the returned slice, ordered like the input.
func (f *Fetcher) FetchAll(ctx context.Context, files []RemoteFile) []Result {
	results := make([]Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxWorkers)

	for i, rf := range files {
		i, rf := i, rf
		g.Go(func() error {
			path, err := f.FetchOne(ctx, rf)
			results[i] = Result{File: rf, Path: path, Err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return results
}
