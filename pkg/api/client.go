// Package api wraps the shop's REST backend: authentication, user
// administration, seller and delivery applications, products and addresses.
// Mutating calls are CSRF-primed and carry the caller's idempotency key; reads
// retry transient failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/retry"
	"github.com/oshocks/bikeshop/pkg/security"
	"github.com/oshocks/bikeshop/pkg/submit"
)

// DefaultAPIPrefix is the path prefix of every API route.
const DefaultAPIPrefix = "/api"

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, e.g. https://api.oshocks.co.ke.
	BaseURL string

	// APIPrefix is prepended to every endpoint except CSRF (default "/api").
	APIPrefix string

	// Timeout bounds each HTTP exchange (default 30s).
	Timeout time.Duration

	// Endpoints overrides individual routes. Empty paths use the defaults.
	Endpoints Endpoints
}

// TokenSource persists the bearer token. *state.TokenStore implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. A cookie jar is added if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.http = &clone
	}
}

// WithTokens sets where the bearer token is read from and saved to.
func WithTokens(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRetry sets the retry policy for idempotent reads.
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// Client talks to the backend.
type Client struct {
	base      *url.URL
	prefix    string
	endpoints Endpoints

	http   *http.Client
	tokens TokenSource
	logger logging.Logger
	retry  *retry.Config
	csrf   *CSRF
}

// New creates a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL must be http or https, got %q", cfg.BaseURL)
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	endpoints := cfg.Endpoints.Merge(DefaultEndpoints())
	if err := endpoints.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		base:      base,
		prefix:    "/" + strings.Trim(prefix, "/"),
		endpoints: endpoints,
		logger:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	c.http.Transport = logging.RoundTripper(c.logger, c.http.Transport)
	if c.retry == nil {
		c.retry = retry.DefaultConfig()
	}
	c.csrf = newCSRF(c)
	return c, nil
}

// Endpoints returns the resolved routes.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// CSRF returns the CSRF primer.
func (c *Client) CSRF() *CSRF {
	return c.csrf
}

// Tokens returns the token source, which may be nil.
func (c *Client) Tokens() TokenSource {
	return c.tokens
}

// URL returns the absolute URL of an API path.
func (c *Client) URL(path string) string {
	return c.base.String() + c.prefix + path
}

func (c *Client) originURL(path string) string {
	return c.base.String() + path
}

type idempotencyKey struct{}

// WithIdempotencyKey attaches key to mutating requests made with ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// IdempotencyKey returns the key attached to ctx.
func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKey{}).(string)
	return key
}

// Do sends a request to an API path and decodes a 2xx JSON response into out.
// A top-level "data" envelope is unwrapped. Reads retry transient failures;
// writes are sent once, plus one resend after refreshing a rejected CSRF token.
func (c *Client) Do(ctx context.Context, method, path string, body submit.Payload, out any) error {
	if security.IsSafeMethod(method) {
		cfg := *c.retry
		cfg.RetryIf = isTransient
		cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
			c.logger.Debug("retrying request",
				logging.String("path", path),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Err(err))
		}
		return retry.Do(ctx, &cfg, func(ctx context.Context) error {
			return c.send(ctx, method, path, body, out)
		})
	}

	if err := c.csrf.Ensure(ctx); err != nil {
		return err
	}
	err := c.send(ctx, method, path, body, out)
	if IsStatus(err, StatusCSRFMismatch) {
		c.logger.Info("csrf token rejected, refreshing", logging.String("path", path))
		if err := c.csrf.Prime(ctx); err != nil {
			return err
		}
		err = c.send(ctx, method, path, body, out)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body submit.Payload, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		b, err := body.Encode()
		if err != nil {
			return err
		}
		reader, contentType = b.Reader, b.ContentType
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	if !security.IsSafeMethod(method) {
		if tok := c.csrf.Token(); tok != "" {
			req.Header.Set(security.XSRFHeader, tok)
		}
		if key := IdempotencyKey(ctx); key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
	}
	if c.tokens != nil {
		if tok, err := c.tokens.Token(ctx); err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseError(resp)
		c.logger.Debug("request rejected",
			logging.String("path", path),
			logging.Int("status", apiErr.Status),
			logging.String("message", apiErr.Message))
		return apiErr
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s: %w", path, err)
	}
	return decode(data, out)
}

// decode unmarshals data into out, unwrapping a {"data": ...} envelope.
func decode(data []byte, out any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("%w: %w", ErrBadResponse, err)
		}
		if inner, ok := env["data"]; ok && len(inner) > 0 && string(inner) != "null" {
			data = inner
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}

func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
