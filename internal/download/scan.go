// SPDX-License-Identifier: MIT

package download

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/product"
)

// FindProducts walks searchPath and returns one Product per distinct
// acquisition start time. SAFE directories, zip archives and anything
// else carrying a parseable Sentinel-1 name all count; duplicates of
// the same acquisition collapse to one entry.
func FindProducts(searchPath string) ([]product.Product, error) {
	logger := xlog.WithComponent("scan")

	seen := make(map[string]product.Product)
	err := filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		p, perr := product.Parse(filepath.Base(path))
		if perr != nil {
			return nil
		}
		key := p.StartTime.UTC().Format("20060102T150405")
		if _, ok := seen[key]; !ok {
			seen[key] = p
		}
		if d.IsDir() {
			// No nested products inside a SAFE directory.
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	products := make([]product.Product, 0, len(seen))
	for _, p := range seen {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].StartTime.Before(products[j].StartTime)
	})

	logger.Debug().Str(xlog.FieldPath, searchPath).Int("products", len(products)).Msg("scanned for products")
	return products, nil
}

// FindLocalOrbits lists the orbit files already present in dir.
// Unparseable names are skipped.
func FindLocalOrbits(dir string) ([]orbit.Record, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []orbit.Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".EOF") {
			continue
		}
		r, err := orbit.ParseRecord(e.Name())
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// MissingRequests turns products into orbit requests, dropping any
// whose acquisition is already covered by a matching file on disk.
func MissingRequests(products []product.Product, local []orbit.Record, kind orbit.Kind) []orbit.Request {
	m := orbit.DefaultMargins(kind)

	var reqs []orbit.Request
	for _, p := range products {
		if covered(p, local, kind, m) {
			continue
		}
		reqs = append(reqs, orbit.Request{Time: p.StartTime, Mission: p.Mission})
	}
	return reqs
}

func covered(p product.Product, local []orbit.Record, kind orbit.Kind, m orbit.Margins) bool {
	for _, r := range local {
		if r.Mission == p.Mission && r.Kind == kind && r.CoversInterval(p.StartTime, p.StopTime, m) {
			return true
		}
	}
	return false
}
