// internal/adapters/foursquare/client.go
package foursquare

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"venue_submit/internal/adapters/observability"
	"venue_submit/internal/domain"
)

const (
	DefaultBase    = "https://api.foursquare.com/v2/"
	DefaultVersion = "20190815"

	maxBody = 4 << 20
)

// Client is the authenticated transport for the v2 venues API.
type Client struct {
	base    string
	hc      *http.Client
	token   string
	version string
	rl      *rate.Limiter
}

func New(base, token, version string, rps int) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("oauth token is required")
	}
	if base == "" {
		base = DefaultBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if version == "" {
		version = DefaultVersion
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:    base,
		hc:      &http.Client{Timeout: 20 * time.Second},
		token:   token,
		version: version,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Get sends params as the query string. 429 and transient 5xx answers are
// retried; the last answer is returned if retries run out.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (domain.Response, error) {
	return c.do(ctx, http.MethodGet, path, params, 4)
}

// Post sends params form-encoded. Writes are never retried: a lost answer to
// venues/add may still have created the venue.
func (c *Client) Post(ctx context.Context, path string, params url.Values) (domain.Response, error) {
	return c.do(ctx, http.MethodPost, path, params, 1)
}

// ---- Internals ----

func (c *Client) do(ctx context.Context, method, path string, params url.Values, attempts int) (domain.Response, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Response{}, &domain.TransportError{Method: method, Path: path, Err: err}
	}

	query := url.Values{"oauth_token": {c.token}, "v": {c.version}}
	payload := nonEmpty(params)
	var lastErr error
	var last domain.Response

	for i := 0; i < attempts; i++ {
		req, err := c.newRequest(ctx, method, path, query, payload)
		if err != nil {
			return domain.Response{}, &domain.TransportError{Method: method, Path: path, Err: err}
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveFoursquare(endpointLabel(path), 0, time.Since(start))
			if ctx.Err() != nil {
				return domain.Response{}, &domain.TransportError{Method: method, Path: path, Err: ctx.Err()}
			}
			lastErr = err
			log.Warn().
				Err(err).
				Str("kind", observability.LabelErr(err)).
				Str("path", path).
				Int("attempt", i+1).
				Msg("foursquare request failed")
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
			}
			return domain.Response{}, &domain.TransportError{Method: method, Path: path, Err: lastErr}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		resp.Body.Close()
		observability.ObserveFoursquare(endpointLabel(path), resp.StatusCode, time.Since(start))
		logQuota(path, resp)
		if err != nil {
			return domain.Response{}, &domain.TransportError{Method: method, Path: path, Err: err}
		}
		last = domain.Response{StatusCode: resp.StatusCode, Body: body}

		if !retryable(resp.StatusCode) {
			break
		}
		wait := retryAfter(resp)
		if wait == 0 {
			wait = backoff(i)
		}
		if i == attempts-1 || !sleepCtx(ctx, wait) {
			break
		}
	}

	if !last.OK() {
		log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", last.StatusCode).
			Str("body", strings.TrimSpace(string(last.Body))).
			Msg("foursquare non-2xx")
	}
	return last, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query, payload url.Values) (*http.Request, error) {
	u := c.base + strings.TrimPrefix(path, "/")
	var body io.Reader
	if method == http.MethodGet {
		q := url.Values{}
		for k, v := range payload {
			q[k] = v
		}
		for k, v := range query {
			q[k] = v
		}
		u += "?" + q.Encode()
	} else {
		u += "?" + query.Encode()
		body = strings.NewReader(payload.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "venue-submit/1.0")
	return req, nil
}

// nonEmpty drops parameters whose values are all empty; the API treats an
// empty value differently from an absent one.
func nonEmpty(params url.Values) url.Values {
	out := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				out.Add(k, v)
			}
		}
	}
	return out
}

// endpointLabel collapses venue and user ids so metric labels stay bounded.
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && (parts[0] == "venues" || parts[0] == "users") {
		switch parts[1] {
		case "search", "add", "self":
		default:
			parts[1] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func logQuota(path string, resp *http.Response) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}
	log.Debug().
		Str("path", path).
		Str("remaining", remaining).
		Str("limit", resp.Header.Get("X-RateLimit-Limit")).
		Msg("rate limit")
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
