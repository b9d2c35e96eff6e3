// SPDX-License-Identifier: MIT

package orbit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perigee-io/eofetch/internal/product"
)

// staticCatalog serves fixed partitions per kind and records which kinds
// were fetched.
type staticCatalog struct {
	precise    map[product.Mission][]Record
	restituted map[product.Mission][]Record
	fetched    []Kind
	err        error
}

func (s *staticCatalog) fetch(kind Kind, _ time.Time) (map[product.Mission][]Record, error) {
	s.fetched = append(s.fetched, kind)
	if s.err != nil {
		return nil, s.err
	}
	if kind == Restituted {
		return s.restituted, nil
	}
	return s.precise, nil
}

func TestResolveBatchAllPrecise(t *testing.T) {
	preciseA := rec("20200501T120000", "20200101T225942", "20200103T005942")
	cat := &staticCatalog{precise: map[product.Mission][]Record{product.S1A: {preciseA}}}

	resolved, unresolved, err := ResolveBatch(
		[]Request{{Time: mustTime("20200102T043000"), Mission: product.S1A}},
		Precise, cat.fetch)

	require.NoError(t, err)
	assert.Empty(t, unresolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, preciseA.Filename, resolved[0].Record.Filename)
	assert.Equal(t, product.S1A, resolved[0].Request.Mission)
	assert.Equal(t, []Kind{Precise}, cat.fetched, "no restituted fetch when precise covers everything")
}

func TestResolveBatchFallsBackPerRequest(t *testing.T) {
	// S1A covered by precise; S1B only by restituted.
	preciseA := rec("20200501T120000", "20200101T225942", "20200103T005942")
	restitutedB := Record{
		Mission:       product.S1B,
		Kind:          Restituted,
		CreationTime:  mustTime("20200102T060000"),
		ValidityStart: mustTime("20200102T030000"),
		ValidityStop:  mustTime("20200102T060000"),
		Filename:      "S1B_OPER_AUX_RESORB_OPOD_20200102T060000_V20200102T030000_20200102T060000.EOF",
	}
	cat := &staticCatalog{
		precise:    map[product.Mission][]Record{product.S1A: {preciseA}},
		restituted: map[product.Mission][]Record{product.S1B: {restitutedB}},
	}

	target := mustTime("20200102T043000")
	resolved, unresolved, err := ResolveBatch(
		[]Request{
			{Time: target, Mission: product.S1A},
			{Time: target, Mission: product.S1B},
		},
		Precise, cat.fetch)

	require.NoError(t, err)
	assert.Empty(t, unresolved)
	require.Len(t, resolved, 2)
	assert.Equal(t, preciseA.Filename, resolved[0].Record.Filename, "already-resolved request untouched by fallback")
	assert.Equal(t, restitutedB.Filename, resolved[1].Record.Filename)
	assert.Equal(t, product.S1B, resolved[1].Request.Mission, "fallback record keeps its request")
	assert.Equal(t, []Kind{Precise, Restituted}, cat.fetched)
}

func TestResolveBatchReportsUnresolved(t *testing.T) {
	cat := &staticCatalog{}

	reqs := []Request{{Time: mustTime("20200102T043000"), Mission: product.S1A}}
	resolved, unresolved, err := ResolveBatch(reqs, Precise, cat.fetch)

	require.NoError(t, err, "coverage misses degrade gracefully, never error")
	assert.Empty(t, resolved)
	assert.Equal(t, reqs, unresolved)
	assert.Equal(t, []Kind{Precise, Restituted}, cat.fetched, "both passes attempted")
}

func TestResolveBatchRestitutedOnlyNoCascade(t *testing.T) {
	cat := &staticCatalog{}

	_, unresolved, err := ResolveBatch(
		[]Request{{Time: mustTime("20200102T043000"), Mission: product.S1A}},
		Restituted, cat.fetch)

	require.NoError(t, err)
	assert.Len(t, unresolved, 1)
	assert.Equal(t, []Kind{Restituted}, cat.fetched, "no fallback beyond restituted")
}

func TestResolveBatchPropagatesCatalogError(t *testing.T) {
	boom := errors.New("catalog unavailable")
	cat := &staticCatalog{err: boom}

	reqs := []Request{{Time: mustTime("20200102T043000"), Mission: product.S1A}}
	_, unresolved, err := ResolveBatch(reqs, Precise, cat.fetch)

	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, reqs, unresolved)
}

func TestResolveBatchEmpty(t *testing.T) {
	cat := &staticCatalog{}
	resolved, unresolved, err := ResolveBatch(nil, Precise, cat.fetch)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Empty(t, unresolved)
	assert.Empty(t, cat.fetched)
}
