package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
	"github.com/custodia-labs/stratus-sync/internal/logger"
)

// DefaultMaxPages caps pagination so a malformed vendor response that
// never returns an empty token cannot loop forever.
const DefaultMaxPages = 1000

// Config describes one vendor client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration // per-request; default 30s
	Backoff   Backoff
	MaxPages  int
	Headers   map[string]string
	UserAgent string
}

// Request describes one paginated vendor call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // marshalled to JSON when non-nil

	// FirstPageQuery holds filter parameters sent only on the initial
	// request. Some vendors reject filters once a continuation token is
	// present.
	FirstPageQuery url.Values

	// ItemsKey is the dot-separated path to the items array in each
	// response body. Empty means the body itself is the array.
	ItemsKey string
}

// Client is a rate-limited, retrying HTTP client for one vendor API.
// Fetching is synchronous per request; independent domains run their own
// Client instances concurrently without shared limiter state.
type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *AdaptiveLimiter
	strategy TokenStrategy
	usage    UsageFunc
}

// NewClient creates a vendor client. limiter must not be shared across
// clients; usage may be nil when the vendor reports no usage signal.
func NewClient(cfg Config, limiter *AdaptiveLimiter, strategy TokenStrategy, usage UsageFunc) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Backoff = cfg.Backoff.withDefaults()
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if limiter == nil {
		limiter = NewAdaptiveLimiter(LimiterConfig{})
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		strategy: strategy,
		usage:    usage,
	}
}

// Pages starts a lazy fetch of all pages for req. No network I/O happens
// until the first Next call.
func (c *Client) Pages(_ context.Context, req *Request) driven.PageIter {
	return &PageIter{client: c, req: req}
}

// PageIter pulls pages one vendor call at a time.
type PageIter struct {
	client *Client
	req    *Request
	token  string
	pages  int
	done   bool
}

// Next fetches the next page, or returns nil when the stream is
// exhausted. It fails with domain.ErrPageLimitExceeded if the vendor
// never stops returning continuation tokens.
func (it *PageIter) Next(ctx context.Context) (*driven.Page, error) {
	if it.done {
		return nil, nil
	}
	if it.pages >= it.client.cfg.MaxPages {
		return nil, fmt.Errorf("%w: %s after %d pages", domain.ErrPageLimitExceeded, it.req.Path, it.pages)
	}

	body, resp, err := it.client.do(ctx, it.req, it.token)
	if err != nil {
		return nil, err
	}
	it.pages++

	items, err := arrayAtPath(body, it.req.ItemsKey)
	if err != nil {
		return nil, &PermanentError{
			URL:     it.req.Path,
			Message: fmt.Sprintf("malformed page payload at %q", it.req.ItemsKey),
			Err:     err,
		}
	}

	var next string
	if it.client.strategy != nil {
		next = it.client.strategy.Next(resp, body)
	}
	if next == "" {
		it.done = true
	}
	it.token = next

	return &driven.Page{Items: items, Token: next}, nil
}

// do performs one vendor call with bounded retry. Transient failures
// (429, 5xx, connection errors, timeouts) are retried with exponential
// backoff; other 4xx responses fail immediately. On retry exhaustion the
// last transient error is escalated to a PermanentError.
func (c *Client) do(ctx context.Context, req *Request, token string) ([]byte, *http.Response, error) {
	u, err := c.buildURL(req, token)
	if err != nil {
		return nil, nil, &PermanentError{URL: req.Path, Message: "bad request URL", Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Backoff.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		httpReq, err := c.buildRequest(ctx, req, u)
		if err != nil {
			return nil, nil, &PermanentError{URL: u, Message: "building request", Err: err}
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = &TransientError{URL: u, Err: err}
			logger.Debug("fetch attempt %d/%d failed: %v", attempt, c.cfg.Backoff.MaxAttempts, err)
			if err := c.sleep(ctx, c.cfg.Backoff.Delay(attempt)); err != nil {
				return nil, nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &TransientError{URL: u, Err: readErr}
			if err := c.sleep(ctx, c.cfg.Backoff.Delay(attempt)); err != nil {
				return nil, nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := c.limiter.RecordRetryAfter(retryAfter(resp))
			lastErr = &RateLimitError{RetryAfter: delay, URL: u}
			logger.Debug("rate limited on attempt %d/%d, backing off %s", attempt, c.cfg.Backoff.MaxAttempts, delay)
			continue

		case resp.StatusCode >= 500:
			lastErr = &TransientError{Status: resp.StatusCode, URL: u}
			logger.Debug("server error %d on attempt %d/%d", resp.StatusCode, attempt, c.cfg.Backoff.MaxAttempts)
			if err := c.sleep(ctx, c.cfg.Backoff.Delay(attempt)); err != nil {
				return nil, nil, err
			}
			continue

		case resp.StatusCode >= 400:
			return nil, nil, &PermanentError{
				Status:  resp.StatusCode,
				URL:     u,
				Message: truncate(string(body), 200),
			}
		}

		if c.usage != nil {
			if ratio, ok := c.usage(resp); ok {
				c.limiter.Observe(ratio)
			}
		}
		return body, resp, nil
	}

	return nil, nil, &PermanentError{
		URL:     u,
		Message: fmt.Sprintf("retry budget exhausted after %d attempts", c.cfg.Backoff.MaxAttempts),
		Err:     lastErr,
	}
}

func (c *Client) buildURL(req *Request, token string) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	u := base.JoinPath(req.Path)

	q := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if token == "" {
		for k, vs := range req.FirstPageQuery {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
	} else if c.strategy != nil {
		c.strategy.Apply(q, token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) buildRequest(ctx context.Context, req *Request, u string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
