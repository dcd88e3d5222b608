package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig tunes the adaptive rate limiter for one vendor client.
// Zero fields take the defaults below.
type LimiterConfig struct {
	// RequestsPerSecond is the proactive token-bucket rate.
	RequestsPerSecond float64
	// Burst is the bucket size.
	Burst int

	// HighWater is the usage ratio above which the limiter pauses for
	// HighCooldown before the next request.
	HighWater    float64
	HighCooldown time.Duration

	// LowWater is the usage ratio above which the limiter pauses for
	// LowCooldown.
	LowWater    float64
	LowCooldown time.Duration

	// DefaultRetryDelay is used for a 429 response that carries no
	// vendor-supplied delay.
	DefaultRetryDelay time.Duration
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 2.0
	}
	if c.Burst == 0 {
		c.Burst = 5
	}
	if c.HighWater == 0 {
		c.HighWater = 0.9
	}
	if c.HighCooldown == 0 {
		c.HighCooldown = 2 * time.Second
	}
	if c.LowWater == 0 {
		c.LowWater = 0.7
	}
	if c.LowCooldown == 0 {
		c.LowCooldown = 500 * time.Millisecond
	}
	if c.DefaultRetryDelay == 0 {
		c.DefaultRetryDelay = 10 * time.Second
	}
	return c
}

// AdaptiveLimiter implements dual-strategy rate limiting for vendor APIs:
// a proactive token bucket plus reactive cooldowns computed from the
// usage ratio the vendor reports on each response. Each vendor client
// owns its own instance; there is no process-wide limiter state.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
	cfg     LimiterConfig
}

// NewAdaptiveLimiter creates a limiter with the given configuration.
func NewAdaptiveLimiter(cfg LimiterConfig) *AdaptiveLimiter {
	cfg = cfg.withDefaults()
	return &AdaptiveLimiter{
		bucket: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:    cfg,
	}
}

// Wait blocks until it's safe to make a request. It honours both the
// token bucket and any cooldown set by Observe or RecordRetryAfter.
func (l *AdaptiveLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return l.bucket.Wait(ctx)
}

// Observe records the vendor-reported usage ratio (0.0..1.0) after a
// response and schedules a cooldown when usage is running hot. This keeps
// steady-state traffic from ever reaching a 429.
func (l *AdaptiveLimiter) Observe(ratio float64) {
	var cooldown time.Duration
	switch {
	case ratio >= l.cfg.HighWater:
		cooldown = l.cfg.HighCooldown
	case ratio >= l.cfg.LowWater:
		cooldown = l.cfg.LowCooldown
	default:
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	until := time.Now().Add(cooldown)
	if until.After(l.retryAt) {
		l.retryAt = until
	}
}

// RecordRetryAfter schedules the delay demanded by a 429 response.
// A non-positive delay falls back to the configured default.
func (l *AdaptiveLimiter) RecordRetryAfter(d time.Duration) time.Duration {
	if d <= 0 {
		d = l.cfg.DefaultRetryDelay
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(l.retryAt) {
		l.retryAt = until
	}
	return d
}

// UsageFunc extracts the current usage ratio (0.0..1.0) from a vendor
// response. Returning ok=false means the response carries no usage signal.
type UsageFunc func(resp *http.Response) (ratio float64, ok bool)

// CallLimitUsage parses "used/limit" style headers such as Shopify's
// X-Shopify-Shop-Api-Call-Limit: 32/40.
func CallLimitUsage(header string) UsageFunc {
	return func(resp *http.Response) (float64, bool) {
		v := resp.Header.Get(header)
		if v == "" {
			return 0, false
		}
		parts := strings.SplitN(v, "/", 2)
		if len(parts) != 2 {
			return 0, false
		}
		used, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		limit, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || limit <= 0 {
			return 0, false
		}
		return float64(used) / float64(limit), true
	}
}

// RemainingUsage parses X-RateLimit-Limit / X-RateLimit-Remaining style
// header pairs into a usage ratio.
func RemainingUsage(limitHeader, remainingHeader string) UsageFunc {
	return func(resp *http.Response) (float64, bool) {
		limit, err1 := strconv.Atoi(resp.Header.Get(limitHeader))
		remaining, err2 := strconv.Atoi(resp.Header.Get(remainingHeader))
		if err1 != nil || err2 != nil || limit <= 0 {
			return 0, false
		}
		return float64(limit-remaining) / float64(limit), true
	}
}

// retryAfter parses the Retry-After header (seconds). Zero means absent.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
