// Package api is the HTTP client for the assistant backend.
//
// The backend mounts the conversation surface under /ai and account
// operations under /auth. All responses are JSON; failures are either
// transport errors or a [StatusError] carrying the HTTP status and the
// backend's detail message. Idempotent requests (GET, DELETE) are retried
// with exponential backoff; POSTs are never retried, so a chat query runs
// at most once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a response body is read, protecting
// against a misbehaving server streaming unbounded output.
const maxResponseBytes = 10 << 20

// TokenSource yields the bearer token for outgoing requests. An empty
// token with a nil error means "unauthenticated": the Authorization
// header is omitted.
type TokenSource interface {
	Token() (string, error)
}

// TokenSourceFunc adapts a function to a TokenSource.
type TokenSourceFunc func() (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token() (string, error) { return f() }

// StaticToken returns a TokenSource that always yields tok.
func StaticToken(tok string) TokenSource {
	return TokenSourceFunc(func() (string, error) { return tok, nil })
}

// StatusError is returned for non-2xx responses. Detail carries the
// backend's error description when the body had one.
type StatusError struct {
	Code   int
	Detail string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string

	// Token supplies the bearer credential. Optional; nil means all
	// requests go out unauthenticated.
	Token TokenSource

	// Logger for request diagnostics. Required.
	Logger *slog.Logger

	// HTTPClient overrides the underlying client. Optional.
	HTTPClient *http.Client

	// Timeout bounds each request when HTTPClient is not supplied.
	// Default: 60s.
	Timeout time.Duration

	// Retry tunes backoff for idempotent requests. Zero value uses
	// DefaultRetryConfig.
	Retry RetryConfig

	// RateLimit and Burst bound outgoing request rate. Defaults: 10 rps,
	// burst 30.
	RateLimit rate.Limit
	Burst     int
}

// validate checks required fields and applies defaults.
func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Retry.MaxRetries == 0 && c.Retry.InitialInterval == 0 {
		c.Retry = DefaultRetryConfig()
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.Burst <= 0 {
		c.Burst = 30
	}
	return nil
}

// Client talks to the assistant backend. Safe for concurrent use.
type Client struct {
	base    *url.URL
	httpc   *http.Client
	tokens  TokenSource
	logger  *slog.Logger
	limiter *rate.Limiter
	retry   RetryConfig
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid api config: %w", err)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		base:    base,
		httpc:   httpc,
		tokens:  cfg.Token,
		logger:  cfg.Logger,
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.Burst),
		retry:   cfg.Retry,
	}, nil
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, p string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, p, query, "", nil, out, true)
}

// postJSON issues a POST with a JSON body and decodes the response into
// out. Never retried.
func (c *Client) postJSON(ctx context.Context, p string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, p, nil, "application/json", payload, out, false)
}

// postForm issues a POST with a form-encoded body. Never retried.
func (c *Client) postForm(ctx context.Context, p string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, p, nil, "application/x-www-form-urlencoded", []byte(form.Encode()), out, false)
}

// delete issues a DELETE.
func (c *Client) delete(ctx context.Context, p string, out any) error {
	return c.do(ctx, http.MethodDelete, p, nil, "", nil, out, true)
}

// do runs one logical request. Idempotent requests go through the retry
// loop; others run exactly once.
func (c *Client) do(ctx context.Context, method, p string, query url.Values, contentType string, payload []byte, out any, idempotent bool) error {
	u := *c.base
	u.Path = path.Join(c.base.Path, p)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	attempts := 1
	if idempotent {
		attempts = c.retry.MaxRetries + 1
	}

	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt < attempts; attempt++ {
		// Rate limit each attempt, retries included.
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		err := c.once(ctx, method, &u, contentType, payload, out)
		if err == nil {
			c.logger.Debug("request completed",
				"method", method,
				"path", p,
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return nil
		}

		lastErr = err

		if !retryableError(err) || attempt == attempts-1 {
			return lastErr
		}

		c.logger.Debug("retrying after error",
			"method", method,
			"path", p,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return lastErr
}

// once executes a single HTTP round trip.
func (c *Client) once(ctx context.Context, method string, u *url.URL, contentType string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("loading token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: errorDetail(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// errorDetail extracts the backend's error description from a failure
// body. FastAPI puts it under "detail"; fall back to a body snippet.
func errorDetail(data []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}

	snippet := strings.TrimSpace(string(data))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return snippet
}

// Health checks backend liveness via GET /health and returns the reported
// status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", nil, &resp); err != nil {
		return "", fmt.Errorf("checking health: %w", err)
	}
	return resp.Status, nil
}
