package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Exponential returns base * 2^attempt, capped at max when max > 0.
func Exponential(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mul := math.Pow(2, float64(attempt))
	f := float64(base) * mul
	if max > 0 && f >= float64(max) {
		return max
	}
	return time.Duration(f)
}

// ExponentialJitter is Exponential starting at base for attempt 1, with +/- 20% jitter.
func ExponentialJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	return Jitter(Exponential(base, max, attempt-1), 0.2)
}

// Jitter spreads d uniformly over [d - d*fraction, d + d*fraction).
func Jitter(d time.Duration, fraction float64) time.Duration {
	j := time.Duration(float64(d) * fraction)
	if j <= 0 {
		return d
	}
	return d - j + time.Duration(rand.Int64N(int64(2*j)))
}
