// SPDX-License-Identifier: MIT

package orbit

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// StateVector is one orbit state vector (OSV) from an EOF file: a UTC
// epoch with ECEF position and velocity.
type StateVector struct {
	UTC        time.Time
	X, Y, Z    float64
	VX, VY, VZ float64
}

// SecondsOfDay returns the epoch as seconds since the start of its UTC day.
func (s StateVector) SecondsOfDay() float64 {
	h, m, sec := s.UTC.Clock()
	return float64(h*3600+m*60+sec) + float64(s.UTC.Nanosecond())/1e9
}

type eofDocument struct {
	OSVs []rawOSV `xml:"Data_Block>List_of_OSVs>OSV"`
}

type rawOSV struct {
	UTC string  `xml:"UTC"`
	X   float64 `xml:"X"`
	Y   float64 `xml:"Y"`
	Z   float64 `xml:"Z"`
	VX  float64 `xml:"VX"`
	VY  float64 `xml:"VY"`
	VZ  float64 `xml:"VZ"`
}

const osvTimeLayout = "2006-01-02T15:04:05.000000"

// ParseStateVectors reads the OSV list from an EOF document, keeping only
// vectors with min <= epoch <= max. Zero min/max disable that bound.
func ParseStateVectors(r io.Reader, min, max time.Time) ([]StateVector, error) {
	var doc eofDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode EOF document: %w", err)
	}

	out := make([]StateVector, 0, len(doc.OSVs))
	for _, raw := range doc.OSVs {
		// Timestamps are tagged with their reference system, e.g.
		// "UTC=2014-08-06T22:59:44.000000"
		ts := strings.TrimPrefix(raw.UTC, "UTC=")
		epoch, err := time.Parse(osvTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse OSV epoch %q: %w", raw.UTC, err)
		}
		if !min.IsZero() && epoch.Before(min) {
			continue
		}
		if !max.IsZero() && epoch.After(max) {
			continue
		}
		out = append(out, StateVector{
			UTC: epoch,
			X:   raw.X, Y: raw.Y, Z: raw.Z,
			VX: raw.VX, VY: raw.VY, VZ: raw.VZ,
		})
	}
	return out, nil
}

// WriteOrbTiming writes state vectors in the flat text form consumed by
// legacy timing tools: three zero header lines, a count, then one line of
// "seconds x y z vx vy vz ax ay az" per vector (accelerations zeroed).
func WriteOrbTiming(w io.Writer, vectors []StateVector) error {
	if _, err := fmt.Fprintf(w, "0\n0\n0\n%d\n", len(vectors)); err != nil {
		return err
	}
	for _, v := range vectors {
		_, err := fmt.Fprintf(w, "%v %v %v %v %v %v %v 0.0 0.0 0.0\n",
			v.SecondsOfDay(), v.X, v.Y, v.Z, v.VX, v.VY, v.VZ)
		if err != nil {
			return err
		}
	}
	return nil
}
