package requester

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy decides whether and when a failed attempt is retried.
type Policy struct {
	// MaxAttempts caps the total number of attempts, first try included.
	// Zero means retry forever.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Jitter is the backoff randomisation factor in [0, 1].
	Jitter float64
	// Retryable classifies errors. Nil means IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy starts at 10s, doubles up to 5m and gives up after ten attempts.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     10,
		InitialInterval: 10 * time.Second,
		MaxInterval:     300 * time.Second,
		Multiplier:      2,
		Jitter:          0.1,
		Retryable:       IsTransient,
	}
}

// NoRetry makes exactly one attempt.
func NoRetry() Policy {
	p := DefaultPolicy()
	p.MaxAttempts = 1
	return p
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return IsTransient(err)
	}
	return p.Retryable(err)
}

// schedule returns a fresh backoff sequence for one logical request.
func (p Policy) schedule() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = p.Jitter
	// Attempts bound the schedule, not elapsed time.
	exp.MaxElapsedTime = 0
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.Reset()

	if p.MaxAttempts <= 0 {
		return exp
	}
	return backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1))
}

// IsTransient reports whether err is an HTTP status error, a transport
// failure (client timeouts included) or a truncated response body.
// Cancellation, request construction and decoding errors are not. Do checks
// the caller's context itself, so a caller deadline never reaches here.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return true
	}
	var readErr *ReadError
	if errors.As(err, &readErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
