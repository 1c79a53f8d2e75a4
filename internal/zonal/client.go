// Package zonal talks to the zonal-statistics service for raster and vector
// assets.
package zonal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// rasterOnlyStats are statistics that only make sense for cell-counting over
// raster bands; they are meaningless for point-in-polygon aggregation over
// vector columns and get filtered from vector requests.
var rasterOnlyStats = map[string]bool{
	"majority":  true,
	"minority":  true,
	"unique":    true,
	"histogram": true,
}

// defaultVectorStats replaces a vector statistic list that filtering left
// empty; the service rejects an empty stats array.
var defaultVectorStats = []string{"mean", "min", "max"}

// aoi is the buffered-point area of interest the service expects.
type aoi struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Radius      float64   `json:"radius"`
}

type rasterRequest struct {
	AOI         aoi      `json:"aoi"`
	Stats       []string `json:"stats"`
	URL         string   `json:"url"`
	ApproxStats bool     `json:"approx_stats"`
}

type vectorRequest struct {
	AOI     aoi      `json:"aoi"`
	Stats   []string `json:"stats"`
	URL     string   `json:"url"`
	Columns []string `json:"columns"`
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client is an HTTP zonal-statistics client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a zonal-statistics client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pointAOI builds the request AOI from a point and buffer radius.
func pointAOI(point *geom.Point, radiusMeters float64) aoi {
	return aoi{
		Type:        "Point",
		Coordinates: []float64{point.X(), point.Y()},
		Radius:      radiusMeters,
	}
}

// RasterStats requests zonal statistics for a raster asset. Statistics are
// requested in approximate mode: the service trades exactness for latency,
// which suits interactive extraction.
func (c *Client) RasterStats(ctx context.Context, point *geom.Point, radiusMeters float64, stats []string, assetURL string) (model.StatResult, error) {
	return c.post(ctx, "/zonal-stats/raster", rasterRequest{
		AOI:         pointAOI(point, radiusMeters),
		Stats:       stats,
		URL:         assetURL,
		ApproxStats: true,
	})
}

// VectorStats requests zonal statistics for a vector asset over the given
// numeric columns. Raster-only statistics are filtered out first.
func (c *Client) VectorStats(ctx context.Context, point *geom.Point, radiusMeters float64, stats []string, assetURL string, columns []string) (model.StatResult, error) {
	return c.post(ctx, "/zonal-stats/vector", vectorRequest{
		AOI:     pointAOI(point, radiusMeters),
		Stats:   FilterVectorStats(stats),
		URL:     assetURL,
		Columns: columns,
	})
}

// FilterVectorStats removes raster-only statistics from the list. When the
// filter removes everything it substitutes the default minimal set.
func FilterVectorStats(stats []string) []string {
	var filtered []string
	for _, s := range stats {
		if !rasterOnlyStats[s] {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return defaultVectorStats
	}
	return filtered
}

func (c *Client) post(ctx context.Context, path string, payload any) (model.StatResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "zonal: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "zonal: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zonal: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zonal: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("zonal stats failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var result model.StatResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "zonal: parse response")
	}

	return result, nil
}
