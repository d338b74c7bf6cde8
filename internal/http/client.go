// Package http wraps net/http with the throttling, retry and circuit breaking
// the import uses for every outbound call.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"github.com/tene/catalog-import/internal/http/ratelimit"
	"github.com/tene/catalog-import/internal/metrics"
)

// DefaultUserAgent is sent when Options.UserAgent is empty
const DefaultUserAgent = "catalog-import/1.0"

// ErrCircuitOpen is returned while the breaker rejects requests
var ErrCircuitOpen = gobreaker.ErrOpenState

// errServerStatus marks a 5xx as a breaker failure without hiding the response
var errServerStatus = errors.New("server error status")

// BreakerConfig configures the circuit breaker guarding a host
type BreakerConfig struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

// Options configures a Client
type Options struct {
	// Target labels request metrics (admin, legacy, storage)
	Target string
	// Timeout bounds each attempt; 0 means no timeout
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
	RateLimit          ratelimit.Config
	Breaker            BreakerConfig
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is an HTTP client with rate limiting, retry logic and an optional
// circuit breaker. It is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.RateLimiter
	breaker     *gobreaker.CircuitBreaker[*Response]
	opts        Options
}

// NewClient creates a client; connections are pooled across all requests
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 32
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		rateLimiter: ratelimit.NewRateLimiter(opts.RateLimit),
		opts:        opts,
	}

	if opts.Breaker.Enabled {
		cfg := opts.Breaker
		c.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:        opts.Target,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
			},
		})
	}

	return c
}

// Send performs a single attempt and returns the response whatever its
// status. Only transport failures, an open breaker or ctx return an error.
func (c *Client) Send(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	if err := c.rateLimiter.Throttle(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if c.breaker == nil {
		return c.send(ctx, method, url, body, header)
	}

	resp, err := c.breaker.Execute(func() (*Response, error) {
		resp, err := c.send(ctx, method, url, body, header)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}

	started := time.Now()
	defer metrics.ObserveHTTP(c.opts.Target, started)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Do performs a request, retrying transport errors and retryable statuses up
// to RateLimit.MaxRetries times. A non-2xx final outcome is a FetchRetryError.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	var lastStatus, attempts int
	var lastErr error

	for attempt := 0; attempt <= c.opts.RateLimit.MaxRetries; attempt++ {
		attempts = attempt + 1
		resp, err := c.Send(ctx, method, url, body, header)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || errors.Is(err, ErrCircuitOpen) || attempt == c.opts.RateLimit.MaxRetries {
				break
			}
			if err := ratelimit.Sleep(ctx, ratelimit.CalculateBackoff(attempt, c.opts.RateLimit)); err != nil {
				break
			}
			continue
		}

		lastStatus = resp.StatusCode
		lastErr = nil

		if resp.OK() {
			return resp, nil
		}

		if !ratelimit.IsRetryableStatus(resp.StatusCode) || attempt == c.opts.RateLimit.MaxRetries {
			return nil, &ratelimit.FetchRetryError{
				URL:        url,
				Attempts:   attempt + 1,
				LastStatus: resp.StatusCode,
			}
		}

		var backoff time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			backoff = ratelimit.CalculateRateLimitBackoff(attempt, c.opts.RateLimit, resp.Header.Get("Retry-After"))
		} else {
			backoff = ratelimit.CalculateBackoff(attempt, c.opts.RateLimit)
		}
		if err := ratelimit.Sleep(ctx, backoff); err != nil {
			return nil, &ratelimit.FetchRetryError{URL: url, Attempts: attempts, LastStatus: lastStatus, LastError: err}
		}
	}

	return nil, &ratelimit.FetchRetryError{
		URL:        url,
		Attempts:   attempts,
		LastStatus: lastStatus,
		LastError:  lastErr,
	}
}

// GetBytes performs a GET with retries and returns the body
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
