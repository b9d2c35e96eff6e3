// SPDX-License-Identifier: MIT

// Package orbit implements parsing and selection of Sentinel-1 orbit
// ephemeris (EOF) files.
//
// An orbit filename encodes both a validity interval and a creation time:
//
//	S1A_OPER_AUX_POEORB_OPOD_20140828T122040_V20140806T225944_20140808T005944.EOF
//
//	S1A              mission
//	OPER             routine operations file
//	AUX_POEORB       precise orbit ephemerides (AUX_RESORB = restituted)
//	OPOD             originating centre
//	20140828T122040  creation time
//	V...             validity start
//	...              validity stop
package orbit

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/perigee-io/eofetch/internal/product"
)

// ErrFormat reports a filename that does not match the orbit file grammar.
var ErrFormat = errors.New("not a Sentinel-1 orbit filename")

// ErrNoCoverage reports that no catalog record fully covers the requested
// interval with the given margins.
var ErrNoCoverage = errors.New("no orbit file covers the requested interval")

// Period is the orbital period of Sentinel-1: 175 orbits per 12-day
// cycle, about 5924.57 s.
const Period = 12 * 86400 * time.Second / 175

// Kind distinguishes precise from restituted orbit products.
type Kind string

const (
	// Precise (POEORB) orbits are published with a few days of latency.
	Precise Kind = "precise"
	// Restituted (RESORB) orbits are lower accuracy but near real time.
	Restituted Kind = "restituted"
)

// Valid reports whether k is a known orbit kind.
func (k Kind) Valid() bool {
	return k == Precise || k == Restituted
}

// ProductType returns the AUX_ product type string used by upstream
// catalogs for this kind.
func (k Kind) ProductType() string {
	if k == Restituted {
		return "AUX_RESORB"
	}
	return "AUX_POEORB"
}

// ParseKind converts a user-supplied string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown orbit type %q (want %q or %q)", s, Precise, Restituted)
	}
	return k, nil
}

// Margins is the safety buffer applied around a requested interval before
// checking coverage. The front margin must be large enough that the orbit
// file's first epoch precedes the ascending-node crossing before the
// requested time.
type Margins struct {
	Before time.Duration
	After  time.Duration
}

// DefaultMargins returns the standard margins for the given orbit kind.
func DefaultMargins(kind Kind) Margins {
	if kind == Restituted {
		return Margins{Before: time.Minute, After: time.Minute}
	}
	return Margins{Before: Period + time.Minute, After: 5 * time.Minute}
}

const timeLayout = "20060102T150405"

var fileRe = regexp.MustCompile(
	`(S1A|S1B|S1C)_OPER_AUX_(POEORB|RESORB)_OPOD_(\d{8}T\d{6})_V(\d{8}T\d{6})_(\d{8}T\d{6})`)

// Record is the parsed metadata of a single orbit file. Values are fixed
// at parse time.
type Record struct {
	Filename      string
	Mission       product.Mission
	Kind          Kind
	CreationTime  time.Time
	ValidityStart time.Time
	ValidityStop  time.Time
}

// ParseRecord extracts orbit metadata from an orbit filename. The name may
// carry a leading path or S3 key prefix and the .EOF extension.
func ParseRecord(name string) (Record, error) {
	m := fileRe.FindStringSubmatch(name)
	if m == nil {
		return Record{}, fmt.Errorf("%w: %q", ErrFormat, name)
	}

	created, err := time.Parse(timeLayout, m[3])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad creation time in %q: %v", ErrFormat, name, err)
	}
	start, err := time.Parse(timeLayout, m[4])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad validity start in %q: %v", ErrFormat, name, err)
	}
	stop, err := time.Parse(timeLayout, m[5])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad validity stop in %q: %v", ErrFormat, name, err)
	}
	if stop.Before(start) {
		return Record{}, fmt.Errorf("%w: validity stop before start in %q", ErrFormat, name)
	}

	kind := Precise
	if m[2] == "RESORB" {
		kind = Restituted
	}

	return Record{
		Filename:      name,
		Mission:       product.Mission(m[1]),
		Kind:          kind,
		CreationTime:  created,
		ValidityStart: start,
		ValidityStop:  stop,
	}, nil
}

// Covers reports whether t falls inside the record's validity interval.
func (r Record) Covers(t time.Time) bool {
	return !t.Before(r.ValidityStart) && !t.After(r.ValidityStop)
}

// CoversInterval reports whether the record's validity interval contains
// the whole of [t0-m.Before, t1+m.After]. Partial overlap is not coverage.
func (r Record) CoversInterval(t0, t1 time.Time, m Margins) bool {
	return !r.ValidityStart.After(t0.Add(-m.Before)) && !r.ValidityStop.Before(t1.Add(m.After))
}

// SameWindow reports whether two records describe the same validity
// interval. Creation time is deliberately excluded: a newer reprocessing
// of the same window is "the same coverage".
func (r Record) SameWindow(o Record) bool {
	return r.ValidityStart.Equal(o.ValidityStart) && r.ValidityStop.Equal(o.ValidityStop)
}

// Before orders records by (validity start, validity stop). Used only for
// deterministic sorting, never to decide freshness.
func (r Record) Before(o Record) bool {
	if !r.ValidityStart.Equal(o.ValidityStart) {
		return r.ValidityStart.Before(o.ValidityStart)
	}
	return r.ValidityStop.Before(o.ValidityStop)
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s [%s, %s] created %s",
		r.Mission, r.Kind,
		r.ValidityStart.Format(time.RFC3339), r.ValidityStop.Format(time.RFC3339),
		r.CreationTime.Format(time.RFC3339))
}
