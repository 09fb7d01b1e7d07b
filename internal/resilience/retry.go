// Package resilience provides the cross-cutting wrappers placed around
// outbound provider calls: exponential-backoff retry, sliding-window rate
// limiting, and a TTL response cache. Each wrapped operation owns its
// limiter and cache instances for the lifetime of the process.
package resilience

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// RetryPolicy controls exponential backoff for a fallible operation.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero means a single attempt with no retry.
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// Factor is the multiplicative backoff growth per attempt.
	Factor float64
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = time.Second
	}
	if p.Factor < 1 {
		p.Factor = 2
	}
	return p
}

// Retrier retries fallible operations with exponential backoff.
type Retrier struct {
	Policy RetryPolicy
	Logger *logging.Logger

	// Sleep overrides the backoff sleep. Tests inject it to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is invoked before each backoff sleep with the 1-based number
	// of the attempt that just failed. Used for metrics hooks.
	OnRetry func(attempt int, err error)
}

// Do runs op until it succeeds or the retry budget is exhausted: at most
// Policy.MaxRetries+1 attempts, with delays InitialBackoff, InitialBackoff*Factor,
// InitialBackoff*Factor^2, ... between them. The error from the final attempt is
// returned unchanged.
func Do[T any](ctx context.Context, r *Retrier, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if ctx == nil {
		ctx = context.Background()
	}

	var (
		policy  RetryPolicy
		logger  *logging.Logger
		sleepFn func(ctx context.Context, d time.Duration) error
		onRetry func(attempt int, err error)
	)
	if r != nil {
		policy = r.Policy
		logger = r.Logger
		sleepFn = r.Sleep
		onRetry = r.OnRetry
	}
	policy = policy.withDefaults()
	if sleepFn == nil {
		sleepFn = sleepContext
	}

	backoff := policy.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == policy.MaxRetries+1 {
			break
		}

		if logger != nil {
			logger.Warn("Operation attempt failed, retrying",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		if err := sleepFn(ctx, backoff); err != nil {
			return zero, err
		}
		backoff = time.Duration(float64(backoff) * policy.Factor)
	}

	if logger != nil {
		logger.Error("Operation retries exhausted",
			zap.String("operation", name),
			zap.Int("max_retries", policy.MaxRetries),
			zap.Error(lastErr))
	}

	return zero, lastErr
}

// sleepContext blocks the calling goroutine for d, honoring ctx cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
