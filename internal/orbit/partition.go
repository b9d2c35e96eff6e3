// SPDX-License-Identifier: MIT

package orbit

import (
	"time"

	"github.com/perigee-io/eofetch/internal/product"
)

// PartitionByMission regroups a flat catalog by mission. Pure regrouping:
// no records are filtered or reordered within a mission.
func PartitionByMission(records []Record) map[product.Mission][]Record {
	out := make(map[product.Mission][]Record)
	for _, r := range records {
		out[r.Mission] = append(out[r.Mission], r)
	}
	return out
}

// MaxValidityStart returns the latest validity start across records, and
// false when records is empty.
func MaxValidityStart(records []Record) (time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, false
	}
	max := records[0].ValidityStart
	for _, r := range records[1:] {
		if r.ValidityStart.After(max) {
			max = r.ValidityStart
		}
	}
	return max, true
}

// NeedsRefresh reports whether a cached catalog whose newest record starts
// at cachedMaxStart is too old to serve a request reaching requestedMax.
// A stale catalog must be re-fetched in full; the cache is never patched
// incrementally.
func NeedsRefresh(cachedMaxStart, requestedMax time.Time) bool {
	return cachedMaxStart.Before(requestedMax)
}
