package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/retry"
	"github.com/oshocks/bikeshop/pkg/security"
)

// CSRF primes the XSRF-TOKEN cookie. At most one priming request is in flight
// at a time; concurrent callers wait for and share its result.
type CSRF struct {
	client *Client
	group  singleflight.Group
}

func newCSRF(c *Client) *CSRF {
	return &CSRF{client: c}
}

// Token returns the current XSRF-TOKEN cookie value, decoded, or "".
func (s *CSRF) Token() string {
	for _, ck := range s.client.http.Jar.Cookies(s.client.base) {
		if ck.Name == security.XSRFCookie {
			if v, err := url.QueryUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}

// Ensure primes only when no token cookie is held.
func (s *CSRF) Ensure(ctx context.Context) error {
	if s.Token() != "" {
		return nil
	}
	return s.Prime(ctx)
}

// Prime fetches a fresh token cookie. A caller whose ctx ends stops waiting,
// but the shared request carries on for the others.
func (s *CSRF) Prime(ctx context.Context) error {
	ch := s.group.DoChan("csrf", func() (any, error) {
		return nil, s.fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *CSRF) fetch(ctx context.Context) error {
	c := s.client
	target := c.originURL(c.endpoints.CSRF)
	start := time.Now()

	cfg := *c.retry
	cfg.RetryIf = isTransient
	err := retry.Do(ctx, &cfg, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("api: prime csrf: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return parseError(resp)
		}
		io.Copy(io.Discard, resp.Body)
		return nil
	})
	if err != nil {
		c.logger.Warn("csrf priming failed", logging.Err(err))
		return err
	}
	if s.Token() == "" {
		return ErrNoCSRFToken
	}
	c.logger.Debug("csrf primed", logging.Duration("duration", time.Since(start)))
	return nil
}
