package rest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiter() *AdaptiveLimiter {
	return NewAdaptiveLimiter(LimiterConfig{
		RequestsPerSecond: 1000,
		Burst:             1000,
		HighCooldown:      50 * time.Millisecond,
		LowCooldown:       15 * time.Millisecond,
		DefaultRetryDelay: 20 * time.Millisecond,
	})
}

func TestAdaptiveLimiter_ObserveHighWater(t *testing.T) {
	l := testLimiter()
	l.Observe(0.95)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAdaptiveLimiter_ObserveLowWater(t *testing.T) {
	l := testLimiter()
	l.Observe(0.75)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Less(t, elapsed, 50*time.Millisecond)
}

func TestAdaptiveLimiter_ObserveBelowThresholds(t *testing.T) {
	l := testLimiter()
	l.Observe(0.2)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestAdaptiveLimiter_RecordRetryAfter(t *testing.T) {
	l := testLimiter()

	// Vendor-supplied delay wins.
	d := l.RecordRetryAfter(30 * time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, d)

	// Absent delay falls back to the configured default.
	l = testLimiter()
	d = l.RecordRetryAfter(0)
	assert.Equal(t, 20*time.Millisecond, d)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestAdaptiveLimiter_WaitCancelled(t *testing.T) {
	l := testLimiter()
	l.RecordRetryAfter(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallLimitUsage(t *testing.T) {
	usage := CallLimitUsage("X-Shopify-Shop-Api-Call-Limit")

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-Shopify-Shop-Api-Call-Limit", "32/40")
	ratio, ok := usage(resp)
	require.True(t, ok)
	assert.InDelta(t, 0.8, ratio, 0.001)

	resp = &http.Response{Header: http.Header{}}
	_, ok = usage(resp)
	assert.False(t, ok)

	resp.Header.Set("X-Shopify-Shop-Api-Call-Limit", "garbage")
	_, ok = usage(resp)
	assert.False(t, ok)
}

func TestRemainingUsage(t *testing.T) {
	usage := RemainingUsage("X-RateLimit-Limit", "X-RateLimit-Remaining")

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Limit", "100")
	resp.Header.Set("X-RateLimit-Remaining", "10")
	ratio, ok := usage(resp)
	require.True(t, ok)
	assert.InDelta(t, 0.9, ratio, 0.001)
}
