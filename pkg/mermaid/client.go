// Package mermaid provides a client for the MERMAID API: paginated sample
// event listings, user profile, and per-project protocol CSV exports.
package mermaid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/datamermaid/covariates-cli/internal/model"
)

// TokenSource supplies a bearer token for each request. Token acquisition
// (login, refresh) is the caller's concern.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Client defines the MERMAID API operations used by the pipeline.
type Client interface {
	// Me fetches the authenticated user's profile.
	Me(ctx context.Context) (*User, error)
	// ProjectSummarySampleEvents fetches all project summaries, following
	// pagination. onProgress, if non-nil, receives (loaded, total) counts.
	ProjectSummarySampleEvents(ctx context.Context, onProgress func(loaded, total int)) ([]ProjectSummary, error)
	// ProtocolCSV fetches the per-project CSV export for one protocol and
	// returns the raw CSV text.
	ProtocolCSV(ctx context.Context, projectID, protocol string) (string, error)
}

// User is the authenticated user's profile.
type User struct {
	ID       string        `json:"id"`
	FullName string        `json:"full_name"`
	Email    string        `json:"email"`
	Projects []UserProject `json:"projects"`
}

// UserProject is one project the user is a member of.
type UserProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectSummary is one project's summary with its sample event records.
type ProjectSummary struct {
	ProjectID   string              `json:"project_id"`
	ProjectName string              `json:"project_name"`
	Tags        []model.Tag         `json:"tags"`
	Records     []model.SampleEvent `json:"records"`
}

// summaryPage is one page of the paginated summary listing.
type summaryPage struct {
	Count   int              `json:"count"`
	Next    *string          `json:"next"`
	Results []ProjectSummary `json:"results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithPageSize sets the pagination page size.
func WithPageSize(n int) Option {
	return func(c *httpClient) { c.pageSize = n }
}

// WithRateLimit overrides the request rate limiter.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) { c.limiter = l }
}

type httpClient struct {
	baseURL  string
	tokens   TokenSource
	pageSize int
	limiter  *rate.Limiter
	http     *http.Client
}

// NewClient creates a MERMAID API client.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) Client {
	c := &httpClient{
		baseURL:  baseURL,
		tokens:   tokens,
		pageSize: 300,
		limiter:  rate.NewLimiter(10, 10),
		http: &http.Client{
			Timeout: 60 * time.Second,
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

// get performs an authenticated GET and returns the response body.
func (c *httpClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "mermaid: rate limiter wait")
	}

	token, err := c.tokens(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "mermaid: acquire token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "mermaid: build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "mermaid: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "mermaid: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("mermaid: %s returned status %d", url, resp.StatusCode)
	}

	return body, nil
}

// Me fetches the authenticated user's profile.
func (c *httpClient) Me(ctx context.Context) (*User, error) {
	body, err := c.get(ctx, c.baseURL+"/me/")
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, eris.Wrap(err, "mermaid: parse user")
	}
	return &user, nil
}

// ProjectSummarySampleEvents fetches all project summaries, following the
// paginated listing until next is null.
func (c *httpClient) ProjectSummarySampleEvents(ctx context.Context, onProgress func(loaded, total int)) ([]ProjectSummary, error) {
	var summaries []ProjectSummary
	loaded := 0

	nextURL := fmt.Sprintf("%s/projectsummarysampleevents/?limit=%d&page=1", c.baseURL, c.pageSize)
	for nextURL != "" {
		body, err := c.get(ctx, nextURL)
		if err != nil {
			return nil, err
		}

		var page summaryPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, eris.Wrap(err, "mermaid: parse summary page")
		}

		summaries = append(summaries, page.Results...)
		loaded += len(page.Results)
		if onProgress != nil {
			onProgress(loaded, page.Count)
		}

		if page.Next != nil {
			nextURL = *page.Next
		} else {
			nextURL = ""
		}
	}

	return summaries, nil
}

// ProtocolCSV fetches the per-project CSV export for one protocol.
func (c *httpClient) ProtocolCSV(ctx context.Context, projectID, protocol string) (string, error) {
	endpoint, ok := ProtocolEndpoints[protocol]
	if !ok {
		return "", eris.Errorf("mermaid: unknown protocol %q", protocol)
	}

	url := fmt.Sprintf("%s/projects/%s/%s/sampleevents/csv/", c.baseURL, projectID, endpoint.Endpoint)
	body, err := c.get(ctx, url)
	if err != nil {
		return "", eris.Wrapf(err, "mermaid: fetch %s data", protocol)
	}

	return string(body), nil
}
