// SPDX-License-Identifier: MIT

// Package catalog assembles orbit file catalogs from upstream providers
// with a flat-file filename cache in between.
package catalog

import (
	"context"
	"errors"

	"github.com/perigee-io/eofetch/internal/orbit"
)

// ErrUnavailable reports that an upstream catalog could not be reached.
// Retry policy belongs to the provider or the caller, never to the
// selection core.
var ErrUnavailable = errors.New("orbit catalog unavailable")

// Provider lists raw orbit filenames from an upstream catalog: an
// object-store listing, a search API, or a scraped file-listing page.
// A transient network failure must surface as an error wrapping
// ErrUnavailable, never as a silently empty list.
type Provider interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Fetch returns every known orbit filename of the given kind.
	Fetch(ctx context.Context, kind orbit.Kind) ([]string, error)
}

// Store persists the flat filename list per orbit kind between runs.
// Entries are invalidated wholesale, never patched.
type Store interface {
	// Read returns the cached filenames, or ok=false when no cache entry
	// exists for the kind.
	Read(kind orbit.Kind) (names []string, ok bool, err error)
	// Write replaces the cache entry for the kind.
	Write(kind orbit.Kind, names []string) error
	// Clear removes the cache entry for the kind.
	Clear(kind orbit.Kind) error
}
