// Package catalog talks to the STAC catalog: collection listings, capability
// probing, and temporal nearest-match item resolution.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// Item is one dated catalog record carrying named assets.
type Item struct {
	ID         string           `json:"id"`
	Collection string           `json:"collection"`
	Properties ItemProperties   `json:"properties"`
	Assets     map[string]Asset `json:"assets"`
}

// ItemProperties holds the item metadata the pipeline reads.
type ItemProperties struct {
	Datetime string `json:"datetime"`
}

// Asset is one file reference with type metadata. TableColumns carries the
// STAC table extension schema when present; Columns is the plain fallback
// some producers emit instead.
type Asset struct {
	Href         string        `json:"href"`
	Type         string        `json:"type"`
	Title        string        `json:"title,omitempty"`
	TableColumns []TableColumn `json:"table:columns,omitempty"`
	Columns      []string      `json:"columns,omitempty"`
}

// TableColumn is one column of the table extension schema.
type TableColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Collections []string     `json:"collections"`
	Datetime    string       `json:"datetime"`
	SortBy      []searchSort `json:"sortby"`
	Limit       int          `json:"limit"`
}

type searchSort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// featureCollection is the item-list response shape shared by /search and
// /collections/{id}/items.
type featureCollection struct {
	Features []Item `json:"features"`
}

type collectionsResponse struct {
	Collections []model.Collection `json:"collections"`
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client is an HTTP STAC catalog client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a STAC catalog client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
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

// Collections fetches all catalog collections.
func (c *Client) Collections(ctx context.Context) ([]model.Collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: build collections request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: fetch collections")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("catalog: collections returned status %d", resp.StatusCode)
	}

	var parsed collectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "catalog: parse collections")
	}

	return parsed.Collections, nil
}

// SampleItem fetches one representative item of a collection, or nil when
// the collection is empty.
func (c *Client) SampleItem(ctx context.Context, collectionID string) (*Item, error) {
	url := fmt.Sprintf("%s/collections/%s/items?limit=1", c.baseURL, collectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: build items request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: fetch sample item")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("catalog: items returned status %d", resp.StatusCode)
	}

	var parsed featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "catalog: parse items")
	}

	if len(parsed.Features) == 0 {
		return nil, nil
	}
	return &parsed.Features[0], nil
}

// Search runs one POST /search query and returns the first matching item,
// or nil when nothing matches.
func (c *Client) Search(ctx context.Context, collectionID, datetime, direction string) (*Item, error) {
	body, err := json.Marshal(searchRequest{
		Collections: []string{collectionID},
		Datetime:    datetime,
		SortBy:      []searchSort{{Field: "datetime", Direction: direction}},
		Limit:       1,
	})
	if err != nil {
		return nil, eris.Wrap(err, "catalog: marshal search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "catalog: build search request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: search")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read search response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("catalog: search returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed featureCollection
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrap(err, "catalog: parse search response")
	}

	if len(parsed.Features) == 0 {
		return nil, nil
	}
	return &parsed.Features[0], nil
}
