package retry

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"optix/pkg/errors"
)

// Strategy defines the backoff shape
type Strategy string

const (
	StrategyExponential Strategy = "exponential"
	StrategyLinear      Strategy = "linear"
	StrategyFixed       Strategy = "fixed"
)

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // exponential only
}

// DefaultConfig returns the delivery retry defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Strategy:     StrategyExponential,
		Multiplier:   2.0,
	}
}

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "unexpected status " + http.StatusText(e.Code)
	}
	return "unexpected status " + http.StatusText(e.Code) + ": " + e.Body
}

// StatusCode makes the error classifiable by Retryable
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Retrier runs a call with backoff between retryable failures
type Retrier struct {
	config Config
}

// New creates a retrier. MaxRetries 0 means a single attempt
func New(config Config) *Retrier {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyExponential
	}
	return &Retrier{config: config}
}

// Do executes fn until it succeeds, fails permanently or retries run out.
// It returns the number of attempts made.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		lastErr = err

		if !Retryable(err) {
			return attempt + 1, err
		}
		if attempt == r.config.MaxRetries {
			break
		}

		if err := Sleep(ctx, r.Delay(attempt)); err != nil {
			return attempt + 1, errors.Wrap(err, "retry cancelled")
		}
	}

	return r.config.MaxRetries + 1, errors.Wrapf(lastErr, "max retries (%d) exceeded", r.config.MaxRetries)
}

// Delay returns the backoff before retry number attempt+1
func (r *Retrier) Delay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case StrategyExponential:
		d := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt))
		if d >= float64(r.config.MaxDelay) {
			return r.config.MaxDelay
		}
		delay = time.Duration(d)
	case StrategyLinear:
		delay = r.config.InitialDelay * time.Duration(1+attempt)
	default:
		delay = r.config.InitialDelay
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

// Sleep waits for d or until ctx ends, returning ctx.Err() in the latter case
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryable reports whether err is worth another attempt
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errors.ErrRateLimitExceeded) {
		return false
	}

	var httpErr interface{ StatusCode() int }
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "temporary failure", "too many requests"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
