package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// ErrRateLimited is returned by limiters configured with PolicyReject when
// the window is full.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitPolicy selects the behavior when a limiter window is full.
type LimitPolicy string

const (
	// PolicyWait blocks the caller until the oldest admission ages out of
	// the window. The wait is bounded by the window period.
	PolicyWait LimitPolicy = "wait"
	// PolicyReject fails fast with ErrRateLimited.
	PolicyReject LimitPolicy = "reject"
)

// ParseLimitPolicy validates a configured policy string.
func ParseLimitPolicy(value string) (LimitPolicy, error) {
	switch LimitPolicy(value) {
	case PolicyWait, "":
		return PolicyWait, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown rate limit policy %q", value)
	}
}

// Limiter enforces a sliding-window rate limit: at most MaxCalls admissions
// within any trailing Period. Each wrapped operation owns one Limiter, shared
// by all concurrent requests, so all window state is mutex-protected.
type Limiter struct {
	MaxCalls int
	Period   time.Duration
	Policy   LimitPolicy
	Logger   *logging.Logger

	// OnWait is invoked once per blocking wait under PolicyWait, before the
	// sleep. Owners hook metrics here.
	OnWait func(wait time.Duration)

	// Clock and Sleep are injection points for tests.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	stamps []time.Time
}

// NewLimiter returns a limiter admitting maxCalls per trailing period.
func NewLimiter(maxCalls int, period time.Duration, policy LimitPolicy) *Limiter {
	return &Limiter{
		MaxCalls: maxCalls,
		Period:   period,
		Policy:   policy,
	}
}

// Admit blocks or rejects until the call may proceed, then records it.
// A nil or unlimited limiter admits immediately.
func (l *Limiter) Admit(ctx context.Context) error {
	if l == nil || l.MaxCalls <= 0 || l.Period <= 0 {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.stamps) < l.MaxCalls {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.stamps[0].Add(l.Period).Sub(now)
		l.mu.Unlock()

		if l.Policy == PolicyReject {
			return fmt.Errorf("%w: next slot in %s", ErrRateLimited, wait.Round(time.Millisecond))
		}

		if l.Logger != nil {
			l.Logger.Warn("Rate limit reached, waiting",
				zap.Duration("wait", wait),
				zap.Int("max_calls", l.MaxCalls),
				zap.Duration("period", l.Period))
		}
		if l.OnWait != nil {
			l.OnWait(wait)
		}

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending reports how many admissions are currently inside the window.
func (l *Limiter) Pending() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.stamps)
}

// prune drops stamps older than the trailing window. Callers hold the mutex.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.Period)
	idx := 0
	for idx < len(l.stamps) && !l.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[idx:]...)
	}
}

func (l *Limiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

func (l *Limiter) sleep(ctx context.Context, d time.Duration) error {
	if l.Sleep != nil {
		return l.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}
