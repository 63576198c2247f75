// Package marketplace provides the shared authenticated-request client used
// by every platform adapter. Each adapter supplies only its signing function
// and its expired-token predicate; the retry-on-expired policy lives here,
// once, with a hard ceiling of a single re-authentication and a single retry
// per logical request.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"commerce-sync-layer/internal/domain"
	"commerce-sync-layer/internal/infrastructure/metrics"
)

// DefaultTimeout bounds every outbound marketplace call. A timed-out call is
// an UpstreamError, never a hang.
const DefaultTimeout = 20 * time.Second

// maxResponseSize limits the response body read to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024

// SignFunc mutates the outgoing request with the platform's signature,
// headers, or query parameters. It is re-evaluated on every attempt so a
// refreshed token is picked up by the retry.
type SignFunc func(req *http.Request) error

// Options configures a Client for one platform.
type Options struct {
	Platform domain.Platform
	BaseURL  string
	Timeout  time.Duration

	// Sign builds the platform-specific signature and headers.
	Sign SignFunc

	// TokenExpired recognizes the platform's expired-token response.
	TokenExpired func(status int, body []byte) bool

	// Reauthenticate re-runs the platform's token exchange. Concurrent
	// callers share one in-flight refresh.
	Reauthenticate func(ctx context.Context) error

	// NeedsRefresh, when non-nil, is consulted before each request so tokens
	// with known lifetimes are refreshed proactively. Platforms that re-sign
	// per request leave it nil and rely on TokenExpired instead.
	NeedsRefresh func() bool

	Logger zerolog.Logger
}

// Client issues signed requests with the one-retry-on-expired policy.
type Client struct {
	opts    Options
	http    *http.Client
	refresh singleflight.Group
}

// NewClient creates a request client for one platform adapter.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
}

// Do issues one logical request: sign, send, and on a recognized
// expired-token response perform exactly one re-authentication and one retry.
// A second failure propagates as *domain.UpstreamError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if c.opts.NeedsRefresh != nil && c.opts.NeedsRefresh() {
		if err := c.reauthenticate(ctx); err != nil {
			return nil, err
		}
	}

	status, respBody, err := c.attempt(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}

	if c.opts.TokenExpired != nil && c.opts.TokenExpired(status, respBody) {
		c.opts.Logger.Info().
			Str("platform", string(c.opts.Platform)).
			Str("path", path).
			Msg("token expired, re-authenticating once")

		if err := c.reauthenticate(ctx); err != nil {
			return nil, err
		}

		status, respBody, err = c.attempt(ctx, method, path, query, body)
		if err != nil {
			return nil, err
		}
		if c.opts.TokenExpired(status, respBody) {
			// Retry ceiling reached; credentials are likely just wrong.
			return nil, &domain.UpstreamError{
				Platform: c.opts.Platform,
				Path:     path,
				Status:   status,
				Body:     string(respBody),
			}
		}
	}

	if status < 200 || status >= 300 {
		return nil, &domain.UpstreamError{
			Platform: c.opts.Platform,
			Path:     path,
			Status:   status,
			Body:     string(respBody),
		}
	}

	return respBody, nil
}

// attempt performs one signed HTTP exchange. Transport failures surface as
// UpstreamError with status 0.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	endpoint := c.opts.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.opts.Sign != nil {
		if err := c.opts.Sign(req); err != nil {
			return 0, nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(string(c.opts.Platform), 0, time.Since(start))
		return 0, nil, &domain.UpstreamError{
			Platform: c.opts.Platform,
			Path:     path,
			Err:      err,
		}
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(string(c.opts.Platform), resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, &domain.UpstreamError{
			Platform: c.opts.Platform,
			Path:     path,
			Status:   resp.StatusCode,
			Err:      err,
		}
	}

	return resp.StatusCode, respBody, nil
}

// reauthenticate funnels concurrent refreshes through singleflight: a request
// arriving while a refresh is in flight awaits that refresh instead of
// triggering a second token exchange.
func (c *Client) reauthenticate(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		return nil, c.opts.Reauthenticate(ctx)
	})
	return err
}
