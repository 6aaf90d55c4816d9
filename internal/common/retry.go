package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// ErrMaxRetries indicates that every attempt allowed by a RetryPolicy failed.
var ErrMaxRetries = errors.New("max retries exceeded")

// RetryPolicy bounds how often and how patiently WithRetry calls an OCR
// backend. Zero fields take the values of DefaultRetryPolicy.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy is used for any field left unset.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2,
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultRetryPolicy.Multiplier
	}
	return p
}

// Backoff returns the wait before retry n (1-based) after err. Quota errors
// wait the full MaxDelay so the backend has time to refill.
func (p RetryPolicy) Backoff(n int, err error) time.Duration {
	p = p.normalized()
	if errors.Is(err, ErrRateLimit) {
		return p.MaxDelay
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(n-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// WithRetry calls operation until it succeeds, fails with an error IsRetryable
// rejects, or the policy runs out of attempts.
func WithRetry(ctx context.Context, operation func() error, policy RetryPolicy) error {
	policy = policy.normalized()

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= policy.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}

		wait := policy.Backoff(attempt, err)
		slog.Warn("OCR call failed, retrying",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"wait", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
