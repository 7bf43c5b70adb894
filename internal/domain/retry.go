package domain

import (
	"time"

	"postqueue/pkg/backoff"
)

const DefaultMaxAttempts = 3

type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
	// Jitter is a fraction of the delay, 0 disables it.
	Jitter float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Base:        time.Minute,
		Max:         24 * time.Hour,
	}
}

// Exhausted reports whether a post with retryCount failures must not be retried.
func (p RetryPolicy) Exhausted(retryCount int) bool {
	max := p.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	return retryCount >= max
}

// Delay returns Base * 2^retryCount, capped at Max.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	d := backoff.Exponential(p.Base, p.Max, retryCount)
	if p.Jitter > 0 {
		d = backoff.Jitter(d, p.Jitter)
	}
	return d
}
