// SPDX-License-Identifier: MIT

// Package asf lists Sentinel-1 orbit files from the public ASF S3 bucket.
//
// The bucket is world readable, so listing is plain anonymous HTTP against
// the S3 ListObjects endpoint; no AWS credentials or SDK involved.
package asf

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/perigee-io/eofetch/internal/catalog"
	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
)

// Bucket is the public S3 bucket holding Sentinel-1 orbit files.
const Bucket = "s1-orbits"

// Client lists and addresses orbit files in the public bucket.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the bucket endpoint (tests).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for the public orbit bucket. Listing requests are
// paced to stay polite toward the open endpoint.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint: "https://" + Bucket + ".s3.amazonaws.com",
		http:     &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string { return "asf" }

// Fetch lists every orbit file key of the given kind.
func (c *Client) Fetch(ctx context.Context, kind orbit.Kind) ([]string, error) {
	keys, err := c.listBucket(ctx, kind.ProductType())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	return keys, nil
}

// DownloadURL returns the public HTTPS URL for a listed bucket key.
func (c *Client) DownloadURL(key string) string {
	return c.endpoint + "/" + key
}

// listResult is the subset of the S3 ListObjects response we consume.
type listResult struct {
	Contents []struct {
		Key string `xml:"Key"`
	} `xml:"Contents"`
	IsTruncated bool   `xml:"IsTruncated"`
	NextMarker  string `xml:"NextMarker"`
}

// listBucket pages through the bucket listing with marker pagination.
func (c *Client) listBucket(ctx context.Context, prefix string) ([]string, error) {
	logger := xlog.WithComponentFromContext(ctx, "asf")

	var keys []string
	marker := ""
	for page := 0; ; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{"prefix": {prefix}}
		if marker != "" {
			params.Set("marker", marker)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("list bucket: unexpected status %s", res.Status)
		}

		var result listResult
		err = xml.NewDecoder(res.Body).Decode(&result)
		res.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode bucket listing: %w", err)
		}

		for _, obj := range result.Contents {
			keys = append(keys, obj.Key)
		}

		if !result.IsTruncated {
			break
		}
		// NextMarker is only guaranteed with delimiter requests; fall
		// back to the last key of the page.
		marker = result.NextMarker
		if marker == "" {
			if len(result.Contents) == 0 {
				break
			}
			marker = result.Contents[len(result.Contents)-1].Key
		}
		logger.Debug().Int("page", page+1).Int("keys", len(keys)).Msg("continuing bucket listing")
	}

	logger.Debug().Str("prefix", prefix).Int("keys", len(keys)).Msg("bucket listing complete")
	return keys, nil
}
