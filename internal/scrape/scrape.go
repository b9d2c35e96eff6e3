// SPDX-License-Identifier: MIT

// Package scrape lists orbit files from a plain HTML file-listing page,
// the way the legacy ESA aux-data mirrors publish them: one Apache-style
// directory index per product type, anchors pointing at .EOF files.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/perigee-io/eofetch/internal/catalog"
	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
)

// Client scrapes orbit filenames from directory-index pages.
type Client struct {
	base string
	http *http.Client
}

// New returns a scraper rooted at base; the orbit kind's product type is
// appended as a path segment (base/AUX_POEORB/, base/AUX_RESORB/).
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Name identifies the backend in logs and metrics.
func (c *Client) Name() string { return "scrape" }

// Fetch lists the orbit filenames linked from the kind's index page.
func (c *Client) Fetch(ctx context.Context, kind orbit.Kind) ([]string, error) {
	pageURL := c.base + "/" + kind.ProductType() + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: listing page status %s", catalog.ErrUnavailable, res.Status)
	}

	doc, err := html.Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	names := extractOrbitLinks(doc)
	logger := xlog.WithComponentFromContext(ctx, "scrape")
	logger.Debug().
		Str(xlog.FieldURL, pageURL).
		Int("count", len(names)).
		Msg("scraped listing page")
	return names, nil
}

// DownloadURL returns the full URL for a scraped filename.
func (c *Client) DownloadURL(kind orbit.Kind, name string) string {
	return c.base + "/" + kind.ProductType() + "/" + url.PathEscape(name)
}

// extractOrbitLinks walks the document collecting anchor targets that
// name EOF files. Navigation anchors (parent dir, sort columns) fall out
// naturally because they don't end in .EOF.
func extractOrbitLinks(doc *html.Node) []string {
	var names []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSuffix(attr.Val, "/")
				if strings.HasSuffix(href, ".EOF") {
					// Keep only the file name; hrefs may be relative
					// or absolute.
					if i := strings.LastIndex(href, "/"); i >= 0 {
						href = href[i+1:]
					}
					names = append(names, href)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return names
}
