// SPDX-License-Identifier: MIT

// Package download orchestrates resolving orbit requests against the
// configured backends and fetching the selected files to disk.
package download

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/perigee-io/eofetch/internal/asf"
	"github.com/perigee-io/eofetch/internal/catalog"
	"github.com/perigee-io/eofetch/internal/dataspace"
	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/scrape"
)

// RemoteFile is one selected orbit file, addressed for download.
type RemoteFile struct {
	// Name is the canonical EOF filename used on disk.
	Name string
	// URL is where to fetch the file.
	URL string
	// Header carries extra request headers (e.g. Authorization).
	Header http.Header
	// Backend names the source for logs and metrics.
	Backend string
	// Request is the orbit request this file satisfies.
	Request orbit.Request
}

// Source resolves orbit requests to downloadable files. Implementations
// cascade precise to restituted internally, per request; residual misses
// come back in unresolved, never as an error.
type Source interface {
	Name() string
	Resolve(ctx context.Context, reqs []orbit.Request, kind orbit.Kind) (files []RemoteFile, unresolved []orbit.Request, err error)
}

// ListingSource resolves requests by listing a full catalog (with the
// filename cache in between) and running the selection core over it.
type ListingSource struct {
	name    string
	urlFor  func(kind orbit.Kind, r orbit.Record) string
	session *catalog.Session
}

// NewListingSource wires an ASF client and a cache store into a Source.
// A nil store disables persistent caching.
func NewListingSource(client *asf.Client, store catalog.Store) *ListingSource {
	return &ListingSource{
		name: client.Name(),
		urlFor: func(_ orbit.Kind, r orbit.Record) string {
			// Bucket listings yield full keys; keep them as-is.
			return client.DownloadURL(r.Filename)
		},
		session: catalog.NewSession(client, store),
	}
}

// NewScrapeSource wires a legacy HTML listing endpoint into a Source.
func NewScrapeSource(client *scrape.Client, store catalog.Store) *ListingSource {
	return &ListingSource{
		name: client.Name(),
		urlFor: func(_ orbit.Kind, r orbit.Record) string {
			return client.DownloadURL(r.Kind, path.Base(r.Filename))
		},
		session: catalog.NewSession(client, store),
	}
}

// Name identifies the backend.
func (s *ListingSource) Name() string { return s.name }

// Resolve picks the best covering record per request from the listed
// catalog, cascading precise to restituted.
func (s *ListingSource) Resolve(ctx context.Context, reqs []orbit.Request, kind orbit.Kind) ([]RemoteFile, []orbit.Request, error) {
	resolved, unresolved, err := orbit.ResolveBatch(reqs, kind, s.session.Partitioned(ctx))
	if err != nil {
		return nil, reqs, err
	}

	files := make([]RemoteFile, 0, len(resolved))
	for _, res := range resolved {
		files = append(files, RemoteFile{
			Name:    path.Base(res.Record.Filename),
			URL:     s.urlFor(kind, res.Record),
			Backend: s.name,
			Request: res.Request,
		})
	}
	return files, unresolved, nil
}

// QuerySource resolves requests with per-instant CDSE catalogue queries;
// the upstream applies the coverage filter server side.
type QuerySource struct {
	client *dataspace.Client
}

// NewQuerySource wires a CDSE client into a Source.
func NewQuerySource(client *dataspace.Client) *QuerySource {
	return &QuerySource{client: client}
}

// Name identifies the backend.
func (s *QuerySource) Name() string { return s.client.Name() }

// Resolve queries the catalogue for each request, retrying restituted
// when a precise request finds nothing.
func (s *QuerySource) Resolve(ctx context.Context, reqs []orbit.Request, kind orbit.Kind) ([]RemoteFile, []orbit.Request, error) {
	logger := xlog.WithComponentFromContext(ctx, "dataspace")

	var files []RemoteFile
	var unresolved []orbit.Request
	for _, req := range reqs {
		results, err := s.queryWithFallback(ctx, req.Time, req, kind)
		if err != nil {
			return files, reqs, err
		}
		if len(results) == 0 {
			logger.Debug().
				Str(xlog.FieldMission, string(req.Mission)).
				Time("target", req.Time).
				Msg("catalogue returned no covering orbit file")
			unresolved = append(unresolved, req)
			continue
		}
		// $top=1: at most one hit per query.
		rawURL, header, err := s.client.DownloadTarget(ctx, results[0])
		if err != nil {
			return files, reqs, err
		}
		files = append(files, RemoteFile{
			Name:    results[0].Name,
			URL:     rawURL,
			Header:  header,
			Backend: s.Name(),
			Request: req,
		})
	}
	return files, unresolved, nil
}

func (s *QuerySource) queryWithFallback(ctx context.Context, t time.Time, req orbit.Request, kind orbit.Kind) ([]dataspace.Result, error) {
	results, err := s.client.QueryCovering(ctx, t, req.Mission, kind, orbit.DefaultMargins(kind))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && kind == orbit.Precise {
		return s.client.QueryCovering(ctx, t, req.Mission, orbit.Restituted, orbit.DefaultMargins(orbit.Restituted))
	}
	return results, nil
}
