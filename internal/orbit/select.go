// SPDX-License-Identifier: MIT

package orbit

import (
	"fmt"
	"sort"
	"time"
)

// Candidates returns every record in catalog that fully covers the
// widened interval [t0-m.Before, t1+m.After] (closed on both ends;
// partial overlap never qualifies). Records sharing an identical validity
// window are collapsed to the one with the latest creation time, so a
// reprocessed file supersedes the original. The result is sorted
// ascending by (validity start, validity stop).
//
// Returns ErrNoCoverage when nothing qualifies.
func Candidates(t0, t1 time.Time, catalog []Record, m Margins) ([]Record, error) {
	earliest := t0.Add(-m.Before)
	latest := t1.Add(m.After)

	// window start/stop -> index into kept, to collapse reprocessings
	type window struct{ start, stop time.Time }
	byWindow := make(map[window]int)
	var kept []Record

	for _, r := range catalog {
		if r.ValidityStart.After(earliest) || r.ValidityStop.Before(latest) {
			continue
		}
		w := window{r.ValidityStart.Truncate(0), r.ValidityStop.Truncate(0)}
		if i, ok := byWindow[w]; ok {
			// Strictly newer wins; on equal creation time the earlier
			// catalog entry is kept, so the result stays deterministic.
			if r.CreationTime.After(kept[i].CreationTime) {
				kept[i] = r
			}
			continue
		}
		byWindow[w] = len(kept)
		kept = append(kept, r)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: [%s, %s] with margins -%s/+%s",
			ErrNoCoverage,
			t0.Format(time.RFC3339), t1.Format(time.RFC3339),
			m.Before, m.After)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Before(kept[j]) })
	return kept, nil
}

// Best returns the single candidate with the latest creation time.
// Freshness of publication wins over tightness of fit: a recently
// reprocessed file with a wide window beats an older tightly-fitting one.
func Best(t0, t1 time.Time, catalog []Record, m Margins) (Record, error) {
	candidates, err := Candidates(t0, t1, catalog, m)
	if err != nil {
		return Record{}, err
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.CreationTime.After(best.CreationTime) {
			best = c
		}
	}
	return best, nil
}
