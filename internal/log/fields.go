// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldRequestID = "request_id"

	// Domain fields
	FieldMission   = "mission"
	FieldOrbitKind = "orbit_kind"
	FieldBackend   = "backend"
	FieldFilename  = "filename"
	FieldURL       = "url"
	FieldPath      = "path"
	FieldCacheDir  = "cache_dir"
)
