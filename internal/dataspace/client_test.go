// SPDX-License-Identifier: MIT

package dataspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perigee-io/eofetch/internal/catalog"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/product"
)

func TestQueryCoveringBuildsODataFilter(t *testing.T) {
	var gotFilter, gotOrder, gotTop string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("$filter")
		gotOrder = r.URL.Query().Get("$orderby")
		gotTop = r.URL.Query().Get("$top")
		fmt.Fprint(w, `{"value":[{"Id":"abc-123","Name":"S1A_OPER_AUX_POEORB_OPOD_20200522T120000_V20200101T225942_20200103T005942.EOF"}]}`)
	}))
	defer srv.Close()

	c := New(Credentials{}, WithEndpoints(srv.URL, srv.URL, srv.URL))
	target := time.Date(2020, 1, 2, 4, 30, 0, 0, time.UTC)

	results, err := c.QueryCovering(context.Background(), target, product.S1A, orbit.Precise,
		orbit.Margins{Before: time.Hour, After: time.Minute})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "abc-123", results[0].ID)

	assert.Contains(t, gotFilter, "Collection/Name eq 'SENTINEL-1'")
	assert.Contains(t, gotFilter, "startswith(Name,'S1A')")
	assert.Contains(t, gotFilter, "contains(Name,'AUX_POEORB')")
	assert.Contains(t, gotFilter, "ContentDate/Start lt '2020-01-02T03:30:00.000000Z'")
	assert.Contains(t, gotFilter, "ContentDate/End gt '2020-01-02T04:31:00.000000Z'")
	assert.Equal(t, "ContentDate/Start asc", gotOrder)
	assert.Equal(t, "1", gotTop)
}

func TestQueryRangeOmitsTop(t *testing.T) {
	var gotTop []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTop = r.URL.Query()["$top"]
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer srv.Close()

	c := New(Credentials{}, WithEndpoints(srv.URL, srv.URL, srv.URL))
	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	results, err := c.QueryRange(context.Background(), first, first.Add(24*time.Hour), product.S1B, orbit.Restituted)
	require.NoError(t, err)
	assert.Empty(t, results, "empty result set is not an error")
	assert.Empty(t, gotTop)
}

func TestQueryCatalogueDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Credentials{}, WithEndpoints(srv.URL, srv.URL, srv.URL))
	_, err := c.QueryCovering(context.Background(), time.Now(), product.S1A, orbit.Precise, orbit.DefaultMargins(orbit.Precise))
	assert.True(t, errors.Is(err, catalog.ErrUnavailable), "got %v", err)
}

func TestDownloadTargetExchangesToken(t *testing.T) {
	var sawGrant, sawTOTP string
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		sawGrant = r.PostForm.Get("grant_type")
		sawTOTP = r.PostForm.Get("totp")
		fmt.Fprint(w, `{"access_token":"tok-1"}`)
	}))
	defer auth.Close()

	c := New(Credentials{Username: "u", Password: "p", TOTP: "424242"},
		WithEndpoints("http://unused", auth.URL, "https://zipper.example/odata/v1/Products"))

	rawURL, header, err := c.DownloadTarget(context.Background(), Result{ID: "abc-123", Name: "x.EOF"})
	require.NoError(t, err)
	assert.Equal(t, "https://zipper.example/odata/v1/Products(abc-123)/$value", rawURL)
	assert.Equal(t, "Bearer tok-1", header.Get("Authorization"))
	assert.Equal(t, "password", sawGrant)
	assert.Equal(t, "424242", sawTOTP)

	// Token reused: a second call must not hit the auth endpoint again.
	auth.Close()
	_, header, err = c.DownloadTarget(context.Background(), Result{ID: "def-456"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", header.Get("Authorization"))
}

func TestDownloadTargetUsesProvidedToken(t *testing.T) {
	c := New(Credentials{AccessToken: "preset"},
		WithEndpoints("http://unused", "http://unreachable.invalid", DownloadURL))

	_, header, err := c.DownloadTarget(context.Background(), Result{ID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer preset", header.Get("Authorization"))
}

func TestCredentialsFromNetrc(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/netrc"
	require.NoError(t, os.WriteFile(path, []byte("machine "+Host+" login alice password s3cret\n"), 0o600))

	creds := Credentials{NetrcFile: path}
	require.NoError(t, creds.resolve())
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestCredentialsMissingNetrcEntry(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/netrc"
	require.NoError(t, os.WriteFile(path, []byte("machine other.example login bob password x\n"), 0o600))

	creds := Credentials{NetrcFile: path}
	assert.Error(t, creds.resolve())
}
