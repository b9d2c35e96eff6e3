// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perigee-io/eofetch/internal/catalog"
	"github.com/perigee-io/eofetch/internal/download"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/product"
)

const poeName = "S1A_OPER_AUX_POEORB_OPOD_20200521T120000_V20200430T225942_20200502T005942.EOF"

type fakeSource struct {
	files      []download.RemoteFile
	unresolved []orbit.Request
	err        error
	lastReqs   []orbit.Request
	lastKind   orbit.Kind
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Resolve(_ context.Context, reqs []orbit.Request, kind orbit.Kind) ([]download.RemoteFile, []orbit.Request, error) {
	f.lastReqs = reqs
	f.lastKind = kind
	return f.files, f.unresolved, f.err
}

func testConfig() Config {
	return Config{Listen: ":0", RateLimit: 100, ReadTimeout: time.Second, WriteTimeout: time.Second}
}

func TestOrbitsReturnsSelection(t *testing.T) {
	src := &fakeSource{files: []download.RemoteFile{{
		Name: poeName, URL: "https://example.com/" + poeName,
	}}}
	srv := New(testConfig(), src)

	req := httptest.NewRequest(http.MethodGet, "/api/orbits?time=2020-05-01T06:12:34Z&mission=S1A&kind=precise", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Filename      string    `json:"filename"`
		URL           string    `json:"url"`
		Mission       string    `json:"mission"`
		Kind          string    `json:"kind"`
		ValidityStart time.Time `json:"validity_start"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, poeName, resp.Filename)
	assert.Equal(t, "S1A", resp.Mission)
	assert.Equal(t, "precise", resp.Kind)
	assert.Equal(t, time.Date(2020, 4, 30, 22, 59, 42, 0, time.UTC), resp.ValidityStart)

	require.Len(t, src.lastReqs, 1)
	assert.Equal(t, product.S1A, src.lastReqs[0].Mission)
	assert.Equal(t, orbit.Precise, src.lastKind)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestOrbitsCompactTime(t *testing.T) {
	src := &fakeSource{files: []download.RemoteFile{{Name: poeName}}}
	srv := New(testConfig(), src)

	req := httptest.NewRequest(http.MethodGet, "/api/orbits?time=20200501T061234", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2020, 5, 1, 6, 12, 34, 0, time.UTC), src.lastReqs[0].Time)
}

func TestOrbitsMissingTime(t *testing.T) {
	srv := New(testConfig(), &fakeSource{})

	req := httptest.NewRequest(http.MethodGet, "/api/orbits", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrbitsBadMissionAndKind(t *testing.T) {
	srv := New(testConfig(), &fakeSource{})

	for _, target := range []string{
		"/api/orbits?time=2020-05-01T06:12:34Z&mission=S2A",
		"/api/orbits?time=2020-05-01T06:12:34Z&kind=approximate",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestOrbitsNoCoverage(t *testing.T) {
	src := &fakeSource{unresolved: []orbit.Request{{Time: time.Now(), Mission: product.S1A}}}
	srv := New(testConfig(), src)

	req := httptest.NewRequest(http.MethodGet, "/api/orbits?time=2020-05-01T06:12:34Z", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrbitsUpstreamUnavailable(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("listing: %w", catalog.ErrUnavailable)}
	srv := New(testConfig(), src)

	req := httptest.NewRequest(http.MethodGet, "/api/orbits?time=2020-05-01T06:12:34Z", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := New(testConfig(), &fakeSource{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsExposed(t *testing.T) {
	srv := New(testConfig(), &fakeSource{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRateLimit(t *testing.T) {
	srv := New(Config{Listen: ":0", RateLimit: 2, ReadTimeout: time.Second, WriteTimeout: time.Second}, &fakeSource{})

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.1.2.3:4444"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRecovererCatchesPanic(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
