package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the public Modrinth v2 API.
	DefaultBaseURL = "https://api.modrinth.com/v2"

	httpTimeout = 30 * time.Second

	// maxRetries bounds transient/rate-limit retries per request.
	maxRetries = 3

	// backoffBase is the first retry delay; it doubles each attempt.
	backoffBase = time.Second
)

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// RateLimitInfo is the most recently observed quota state from the
// catalog's X-Ratelimit-* response headers.
type RateLimitInfo struct {
	Remaining int
	Limit     int
	Reset     int // seconds until the window resets
}

// Client talks to the Modrinth API. It retries transient failures with
// exponential backoff, honors Retry-After on rate limiting, and records
// quota headers for introspection. It never blocks preemptively on
// remaining quota.
type Client struct {
	http      HTTPDoer
	BaseURL   string
	userAgent string
	sleep     func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	rateLimit *RateLimitInfo
}

// New creates a client with the default HTTP client. userAgent identifies
// this tool to the catalog on every request; supplying an empty string is
// a programming error and panics.
func New(userAgent string) *Client {
	return NewWith(userAgent, &http.Client{Timeout: httpTimeout})
}

// NewWith creates a client with a custom HTTPDoer (for testing).
func NewWith(userAgent string, h HTTPDoer) *Client {
	if userAgent == "" {
		panic("modrinth: client identity (User-Agent) must not be empty")
	}
	if h == nil {
		h = &http.Client{Timeout: httpTimeout}
	}
	return &Client{
		http:      h,
		BaseURL:   DefaultBaseURL,
		userAgent: userAgent,
		sleep:     sleepCtx,
	}
}

// SetSleep replaces the retry wait function (tests inject a no-op to
// avoid real delays).
func (c *Client) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	if fn != nil {
		c.sleep = fn
	}
}

// RateLimit returns the last observed quota state, if any response has
// carried the headers yet.
func (c *Client) RateLimit() (RateLimitInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rateLimit == nil {
		return RateLimitInfo{}, false
	}
	return *c.rateLimit, true
}

// Project fetches project metadata by slug.
func (c *Client) Project(ctx context.Context, slug string) (Project, error) {
	var p Project
	if err := c.getJSON(ctx, "/project/"+url.PathEscape(slug), nil, slug, &p); err != nil {
		return Project{}, err
	}
	return p, nil
}

// Versions fetches the full version list for a project, newest first as
// returned by the catalog.
func (c *Client) Versions(ctx context.Context, slug string) ([]Version, error) {
	var vs []Version
	if err := c.getJSON(ctx, "/project/"+url.PathEscape(slug)+"/version", nil, slug, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// Search queries the catalog. limit is capped by the server at 100.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) (SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var res SearchResult
	if err := c.getJSON(ctx, "/search", q, "", &res); err != nil {
		return SearchResult{}, err
	}
	return res, nil
}

// getJSON performs a GET with the retry policy and decodes the body.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, slug string, out any) error {
	body, err := c.get(ctx, path, query, slug)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Message: "malformed response body", Cause: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, slug string) ([]byte, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, retryDelay(lastErr, attempt-1)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, &APIError{Message: "build request", Cause: err}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Network errors (including per-attempt timeouts) are transient.
			lastErr = &APIError{Message: "request failed", Retryable: true, Cause: err}
			continue
		}

		body, err := c.consume(resp, slug)
		if err == nil {
			return body, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// consume reads one response, updating rate-limit bookkeeping and
// mapping error statuses onto the client's error taxonomy.
func (c *Client) consume(resp *http.Response, slug string) ([]byte, error) {
	defer resp.Body.Close()
	c.updateRateLimit(resp.Header)

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &APIError{Message: "read response", Retryable: true, Cause: err}
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Slug: slug}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode >= 500:
		return nil, &APIError{
			Status:    resp.StatusCode,
			Message:   "server error",
			Retryable: true,
		}
	default:
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected status %s", resp.Status),
		}
	}
}

func (c *Client) updateRateLimit(h http.Header) {
	remaining := h.Get("X-Ratelimit-Remaining")
	limit := h.Get("X-Ratelimit-Limit")
	reset := h.Get("X-Ratelimit-Reset")
	if remaining == "" || limit == "" || reset == "" {
		return
	}
	rem, err1 := strconv.Atoi(remaining)
	lim, err2 := strconv.Atoi(limit)
	res, err3 := strconv.Atoi(reset)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}
	c.mu.Lock()
	c.rateLimit = &RateLimitInfo{Remaining: rem, Limit: lim, Reset: res}
	c.mu.Unlock()
}

// retryDelay is the pure backoff policy: rate-limited requests wait the
// server-requested interval, everything else doubles from backoffBase.
// attempt is zero-based (the number of retries already performed).
func retryDelay(lastErr error, attempt int) time.Duration {
	if rl, ok := lastErr.(*RateLimitError); ok && rl.RetryAfter > 0 {
		return time.Duration(rl.RetryAfter) * time.Second
	}
	return backoffBase << attempt
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
