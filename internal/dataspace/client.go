// SPDX-License-Identifier: MIT

// Package dataspace queries and downloads Sentinel-1 orbit files from the
// Copernicus Data Space Ecosystem (CDSE) OData API.
//
// Unlike the flat bucket listing backends, CDSE filters coverage server
// side: one query per requested instant, asking for the single product
// whose content window spans the margin-widened interval.
package dataspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/perigee-io/eofetch/internal/catalog"
	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/product"
)

// Default CDSE endpoints.
const (
	QueryURL    = "https://catalogue.dataspace.copernicus.eu/odata/v1/Products"
	AuthURL     = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
	DownloadURL = "https://zipper.dataspace.copernicus.eu/odata/v1/Products"
)

const odataTimeLayout = "2006-01-02T15:04:05.000000Z"

// Result is one product hit from the OData catalogue.
type Result struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Client talks to the CDSE catalogue and download services.
type Client struct {
	queryURL    string
	authURL     string
	downloadURL string
	http        *http.Client
	creds       Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the service endpoints (tests).
func WithEndpoints(query, auth, download string) Option {
	return func(c *Client) {
		c.queryURL = query
		c.authURL = auth
		c.downloadURL = download
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a CDSE client using the given credentials. Queries need no
// authentication; downloads exchange the credentials for a Bearer token
// on first use.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		queryURL:    QueryURL,
		authURL:     AuthURL,
		downloadURL: DownloadURL,
		http:        &http.Client{Timeout: 60 * time.Second},
		creds:       creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string { return "dataspace" }

// QueryCovering asks the catalogue for the single orbit file of the given
// kind and mission whose content window spans [t-m.Before, t+m.After].
// An empty result is not an error; an unreachable catalogue is.
func (c *Client) QueryCovering(ctx context.Context, t time.Time, mission product.Mission, kind orbit.Kind, m orbit.Margins) ([]Result, error) {
	filter := fmt.Sprintf(
		"Collection/Name eq 'SENTINEL-1' "+
			"and startswith(Name,'%s') and contains(Name,'%s') "+
			"and ContentDate/Start lt '%s' and ContentDate/End gt '%s'",
		mission, kind.ProductType(),
		t.Add(-m.Before).UTC().Format(odataTimeLayout),
		t.Add(m.After).UTC().Format(odataTimeLayout),
	)
	return c.query(ctx, filter, 1)
}

// QueryRange asks for every orbit file of the kind/mission intersecting
// [first, last].
func (c *Client) QueryRange(ctx context.Context, first, last time.Time, mission product.Mission, kind orbit.Kind) ([]Result, error) {
	filter := fmt.Sprintf(
		"Collection/Name eq 'SENTINEL-1' "+
			"and startswith(Name,'%s') and contains(Name,'%s') "+
			"and ContentDate/Start lt '%s' and ContentDate/End gt '%s'",
		mission, kind.ProductType(),
		last.UTC().Format(odataTimeLayout),
		first.UTC().Format(odataTimeLayout),
	)
	return c.query(ctx, filter, 0)
}

func (c *Client) query(ctx context.Context, filter string, top int) ([]Result, error) {
	params := url.Values{
		"$filter":  {filter},
		"$orderby": {"ContentDate/Start asc"},
	}
	if top > 0 {
		params.Set("$top", fmt.Sprint(top))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: catalogue query status %s", catalog.ErrUnavailable, res.Status)
	}

	var payload struct {
		Value []Result `json:"value"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalogue response: %w", err)
	}

	logger := xlog.WithComponentFromContext(ctx, "dataspace")
	logger.Debug().
		Int("hits", len(payload.Value)).
		Msg("catalogue query complete")
	return payload.Value, nil
}

// DownloadTarget returns the download URL and auth header for a query
// result. The token exchange happens lazily on the first call.
func (c *Client) DownloadTarget(ctx context.Context, r Result) (rawURL string, header http.Header, err error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", nil, err
	}
	header = http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return fmt.Sprintf("%s(%s)/$value", c.downloadURL, r.ID), header, nil
}
