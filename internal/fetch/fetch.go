// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves and extracts plain text from web sources. Fetch
// failures are non-fatal by design: every outcome maps to a FetchStatus and
// an empty document, and the research cycle skips the result rather than
// aborting.
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// userAgents is rotated across requests to reduce trivial blocking.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// Fetcher retrieves URLs and extracts visible text, branching by content
// type (HTML or PDF).
type Fetcher struct {
	Config types.FetchConfig
	Client *http.Client

	uaIndex atomic.Uint64
}

// NewFetcher returns a fetcher for cfg. Redirects are followed by the
// default http.Client policy.
func NewFetcher(cfg types.FetchConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{
		Config: cfg,
		Client: &http.Client{Timeout: timeout},
	}
}

// nextUserAgent returns the configured User-Agent, or rotates through the
// built-in set.
func (f *Fetcher) nextUserAgent() string {
	if f.Config.UserAgent != "" {
		return f.Config.UserAgent
	}
	n := f.uaIndex.Add(1)
	return userAgents[int(n)%len(userAgents)]
}

// Fetch retrieves url and returns its extracted plain text. The status is
// FetchOK only when usable text was produced; all failure modes return an
// empty string and a classifying status, never an error the caller must
// branch on.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, types.FetchStatus) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", types.FetchParseError
	}
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", types.FetchTimeout
		}
		return "", types.FetchBlocked
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusUnauthorized:
		return "", types.FetchBlocked
	case resp.StatusCode != http.StatusOK:
		return "", types.FetchParseError
	}

	maxBytes := f.Config.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return "", types.FetchTimeout
	}

	contentType := resp.Header.Get("Content-Type")
	var text string
	switch {
	case strings.Contains(contentType, "application/pdf") || looksLikePDF(body):
		text, err = f.extractPDF(ctx, body)
	case strings.Contains(contentType, "text/plain"):
		text = string(body)
	default:
		text, err = extractHTML(body)
	}
	if err != nil || strings.TrimSpace(text) == "" {
		return "", types.FetchParseError
	}
	return strings.TrimSpace(text), types.FetchOK
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func looksLikePDF(body []byte) bool {
	return len(body) > 4 && string(body[:5]) == "%PDF-"
}
