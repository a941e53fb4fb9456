package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"optix/pkg/errors"
)

// Limiter throttles calls to an outbound delivery target
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter allows perSecond calls with the given burst. perSecond <= 0 disables throttling
func NewLimiter(name string, perSecond float64, burst int) *Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		name:    name,
	}
}

// NewPerMinute converts a per-minute budget, with a burst of 10% of it
func NewPerMinute(name string, requestsPerMinute int) *Limiter {
	burst := requestsPerMinute / 10
	return NewLimiter(name, float64(requestsPerMinute)/60.0, burst)
}

// Wait blocks until the limiter allows the call or ctx ends
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(errors.Tag(errors.ErrRateLimitExceeded, err), "rate limiter %s", l.name)
	}
	return nil
}

// Allow checks if a call is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

func (l *Limiter) Name() string {
	return l.name
}
