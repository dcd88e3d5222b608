package rest

import (
	"math"
	"time"
)

// Backoff configures exponential retry backoff: the delay before attempt
// n+1 is Multiplier * 2^(n-1) seconds, clamped to [Min, Max].
type Backoff struct {
	Multiplier  float64
	Min         time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultBackoff matches the production retry posture: five attempts,
// delays between 4s and 60s.
func DefaultBackoff() Backoff {
	return Backoff{
		Multiplier:  1,
		Min:         4 * time.Second,
		Max:         60 * time.Second,
		MaxAttempts: 5,
	}
}

// Delay returns the sleep before the attempt following attempt n (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(b.Multiplier * math.Pow(2, float64(attempt-1)) * float64(time.Second))
	if d < b.Min {
		d = b.Min
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// withDefaults fills zero fields.
func (b Backoff) withDefaults() Backoff {
	def := DefaultBackoff()
	if b.Multiplier == 0 {
		b.Multiplier = def.Multiplier
	}
	if b.Min == 0 {
		b.Min = def.Min
	}
	if b.Max == 0 {
		b.Max = def.Max
	}
	if b.MaxAttempts == 0 {
		b.MaxAttempts = def.MaxAttempts
	}
	return b
}
