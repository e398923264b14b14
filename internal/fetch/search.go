// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// SearchProvider turns a search string into candidate URLs. Implementations
// wrap an external search service; tests supply a mock.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchHit, error)
}

// SearchHit is one candidate source returned by a search provider.
type SearchHit struct {
	URL   string
	Title string
}

// SearxBackend queries a SearxNG-compatible JSON search endpoint.
type SearxBackend struct {
	Config types.SearchConfig
	Client *http.Client
}

// NewSearxBackend returns a search provider for cfg.
func NewSearxBackend(cfg types.SearchConfig) *SearxBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearxBackend{
		Config: cfg,
		Client: &http.Client{Timeout: timeout},
	}
}

// searxResponse is the SearxNG JSON result shape.
type searxResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"results"`
}

// Search queries the endpoint and returns at most ResultsPerQuery hits.
func (b *SearxBackend) Search(ctx context.Context, query string) ([]SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
	}
	reqURL := b.Config.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	if b.Config.UserAgent != "" {
		req.Header.Set("User-Agent", b.Config.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search service returned HTTP %d", resp.StatusCode)
	}

	var sr searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	limit := b.Config.ResultsPerQuery
	if limit <= 0 {
		limit = 3
	}

	var hits []SearchHit
	for _, r := range sr.Results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, SearchHit{URL: r.URL, Title: r.Title})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}
