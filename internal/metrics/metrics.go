// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for eofetch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label cardinality is bounded: backend and kind come from fixed enums,
// outcome is one of a handful of constants. No per-file labels.
var (
	// CatalogFetches counts upstream catalog listings by backend, orbit
	// kind and outcome (ok/error).
	CatalogFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eofetch_catalog_fetch_total",
		Help: "Total upstream catalog fetches, by backend, orbit kind and outcome.",
	}, []string{"backend", "kind", "outcome"})

	// CacheReads counts filename cache lookups by orbit kind and outcome
	// (hit/miss/stale).
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eofetch_cache_read_total",
		Help: "Total filename cache reads, by orbit kind and outcome.",
	}, []string{"kind", "outcome"})

	// SelectionMisses counts requests that no record of a kind covered.
	SelectionMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eofetch_selection_miss_total",
		Help: "Total selection requests with no covering orbit file, by orbit kind.",
	}, []string{"kind"})

	// Downloads counts orbit file downloads by backend and outcome
	// (ok/skipped/error).
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eofetch_download_total",
		Help: "Total orbit file downloads, by backend and outcome.",
	}, []string{"backend", "outcome"})

	// DownloadDuration observes wall time per completed download.
	DownloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eofetch_download_duration_seconds",
		Help:    "Orbit file download duration in seconds, by backend.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"backend"})
)
