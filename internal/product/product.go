// SPDX-License-Identifier: MIT

// Package product parses Sentinel-1 product filenames.
//
// Naming convention reference:
// https://sentinel.esa.int/web/sentinel/user-guides/sentinel-1-sar/naming-conventions
//
// Example:
//
//	S1A_IW_SLC__1SDV_20180408T043025_20180408T043053_021371_024C9B_1B70.zip
package product

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrFormat reports a filename that does not match the Sentinel-1 product
// naming convention.
var ErrFormat = errors.New("not a Sentinel-1 product filename")

// Mission identifies the Sentinel-1 satellite a file belongs to.
type Mission string

// Known Sentinel-1 missions.
const (
	S1A Mission = "S1A"
	S1B Mission = "S1B"
	S1C Mission = "S1C"
)

// Valid reports whether m is a known mission identifier.
func (m Mission) Valid() bool {
	switch m {
	case S1A, S1B, S1C:
		return true
	}
	return false
}

// timeLayout is the compact timestamp layout used in Sentinel filenames.
const timeLayout = "20060102T150405"

// fileRe captures the positional fields of a product name:
// MMM_BB_TTTR_LFPP_start_stop_orbit_datatake_uid
var fileRe = regexp.MustCompile(
	`(S1A|S1B|S1C)_([\w\d]{2})_([\w_]{3})([FHM_])_(\d)([SA])([SDHV]{2})_(\d{8}T\d{6})_(\d{8}T\d{6})_(\d{6})_([\d\w]{6})_([\d\w]{4})`)

// Product holds the fields parsed from a Sentinel-1 product filename.
// Values are fixed at parse time.
type Product struct {
	Filename        string
	Mission         Mission
	BeamMode        string
	ProductType     string
	Resolution      string
	ProcessingLevel string
	ProductClass    string
	Polarization    string
	StartTime       time.Time
	StopTime        time.Time
	AbsoluteOrbit   uint32
	DataTakeID      string
	UniqueID        string
}

// Parse extracts the typed fields from a Sentinel-1 product filename.
// The name may carry a leading path and any extension (.zip, .SAFE); the
// convention fields are matched positionally anywhere in the string.
func Parse(name string) (Product, error) {
	m := fileRe.FindStringSubmatch(name)
	if m == nil {
		return Product{}, fmt.Errorf("%w: %q", ErrFormat, name)
	}

	start, err := time.Parse(timeLayout, m[8])
	if err != nil {
		return Product{}, fmt.Errorf("%w: bad start time in %q: %v", ErrFormat, name, err)
	}
	stop, err := time.Parse(timeLayout, m[9])
	if err != nil {
		return Product{}, fmt.Errorf("%w: bad stop time in %q: %v", ErrFormat, name, err)
	}
	if stop.Before(start) {
		return Product{}, fmt.Errorf("%w: stop before start in %q", ErrFormat, name)
	}
	orbit, err := strconv.ParseUint(m[10], 10, 32)
	if err != nil {
		return Product{}, fmt.Errorf("%w: bad orbit number in %q: %v", ErrFormat, name, err)
	}

	return Product{
		Filename:        name,
		Mission:         Mission(m[1]),
		BeamMode:        m[2],
		ProductType:     m[3],
		Resolution:      m[4],
		ProcessingLevel: m[5],
		ProductClass:    m[6],
		Polarization:    m[7],
		StartTime:       start,
		StopTime:        stop,
		AbsoluteOrbit:   uint32(orbit),
		DataTakeID:      m[11],
		UniqueID:        m[12],
	}, nil
}

// RelativeOrbit derives the relative orbit number (track) from the absolute
// orbit using the mission-specific offsets. Formulas from
// https://forum.step.esa.int/t/sentinel-1-relative-orbit-from-filename/7042
func (p Product) RelativeOrbit() int {
	var offset int
	switch p.Mission {
	case S1A:
		offset = 73
	case S1B:
		offset = 27
	case S1C:
		offset = 172
	default:
		return 0
	}
	// Keep the track in 1..175 even for absolute orbits below the offset,
	// where Go's % would go negative.
	return ((int(p.AbsoluteOrbit)-offset)%175+175)%175 + 1
}

func (p Product) String() string {
	return fmt.Sprintf("%s %s track %d at %s",
		p.Mission, p.ProductType, p.RelativeOrbit(), p.StartTime.Format(time.RFC3339))
}
