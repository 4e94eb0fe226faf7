package services

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultBackoffBase  = 500 * time.Millisecond
	defaultBackoffLimit = 8 * time.Second
)

// RetryPolicy controls the shared retry loop used by the service adapters.
// The zero value selects three attempts with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	// Sleep is overridable in tests. When nil, time.Sleep is used.
	Sleep func(time.Duration)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return defaultMaxAttempts
}

func (p RetryPolicy) base() time.Duration {
	if p.BackoffBase > 0 {
		return p.BackoffBase
	}
	return defaultBackoffBase
}

// Invoke runs fn until it succeeds, fails permanently, or the attempt budget
// is spent. Between transient failures it sleeps for an exponentially growing
// interval with jitter. Context cancellation aborts immediately.
func Invoke(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.attempts()
	sleep := policy.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == attempts-1 {
			return lastErr
		}
		sleep(backoffDelay(policy.base(), attempt))
	}
	return lastErr
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt)
	if delay > defaultBackoffLimit {
		delay = defaultBackoffLimit
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
