package connector

import (
	"context"
	"errors"
	"time"
)

// Retry policy defaults for a single upstream request.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// RetryPolicy is bounded exponential backoff applied to one upstream call.
// The zero value means the defaults.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns 3 attempts, 2s base, doubling, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// Do runs fn until it succeeds, attempts run out, or ctx ends.
// Every error class is retried. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, sleep SleepFunc, fn func(ctx context.Context, attempt int) error) error {
	p = p.normalized()
	if sleep == nil {
		sleep = Sleep
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if sleepErr := sleep(ctx, p.Delay(attempt)); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
	return err
}
