// Package tmdb implements the HTTP client for The Movie Database (TMDB) API.
// All methods are context-aware, respect the shared rate limiter, retry on
// transient errors (429, 5xx), and fail fast through a circuit breaker once
// the API keeps failing.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3/"
	maxRetries     = 4

	// breakerFailures is the number of consecutive failed requests
	// (after retries) that opens the circuit.
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// ErrNotFound is returned when TMDB reports that a resource does not exist.
var ErrNotFound = errors.New("not found")

// Client is the TMDB API HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	discover   DiscoverOptions
	debug      bool
}

// NewClient creates a Client with the given API key and timeout.
// apiKey may be either a v3 API key or a v4 read access token.
func NewClient(apiKey, baseURL string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), burst),
		breaker:  newBreaker("tmdb-api"),
		discover: DefaultDiscoverOptions(),
		debug:    debug,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// a missing movie is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// WithDiscover sets the filters applied to discovery listings and returns c.
func (c *Client) WithDiscover(opts DiscoverOptions) *Client {
	c.discover = opts
	return c
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// usesBearer reports whether the credential is a v4 read access token (a JWT)
// rather than a v3 API key.
func (c *Client) usesBearer() bool {
	return strings.Count(c.apiKey, ".") == 2
}

// get performs a GET request to the TMDB API, handling rate limiting,
// retries and the circuit breaker, and decodes the body into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	if !c.usesBearer() {
		params.Set("api_key", c.apiKey)
	}
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	if c.debug {
		// Log URL with API key redacted
		safe := reqURL
		if c.apiKey != "" {
			safe = strings.Replace(reqURL, c.apiKey, "REDACTED", 1)
		}
		slog.Debug("tmdb request", "url", safe)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// fetch runs the retry loop for one request and returns the response body.
func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))*500) * time.Millisecond
			slog.Debug("retrying after backoff", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "marquee-cli/1.0")
		if c.usesBearer() {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}

		if c.debug {
			slog.Debug("tmdb response", "status", resp.StatusCode, "bytes", len(body))
		}

		// Retry on server errors and rate limiting
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiMessage(body))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, apiMessage(body))
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiMessage(body))
		}
		return body, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// apiMessage extracts the TMDB status_message from an error body, falling
// back to the raw body.
func apiMessage(body []byte) string {
	var apiErr struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.StatusMessage != "" {
		return apiErr.StatusMessage
	}
	return strings.TrimSpace(string(body))
}
