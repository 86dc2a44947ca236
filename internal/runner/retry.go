package runner

import (
	"context"
	"math"
	"time"
)

// SleepFunc waits for d or until the context ends. Injected so tests run
// the runners against a fake clock.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy bounds a job runner's attempts and computes the wait before
// each retry. Delay receives the number of failures so far and the
// provider-suggested delay when one was present (0 otherwise).
type RetryPolicy struct {
	MaxRetries int
	Delay      func(retries int, hint time.Duration) time.Duration
}

const (
	imageMaxRetries = 5
	imageBaseDelay  = 5000 * time.Millisecond
	hintPadding     = 2000 * time.Millisecond

	videoMaxRetries = 3
	videoRetryDelay = 3000 * time.Millisecond
)

// ImagePolicy is the image stage's backoff: exponential doubling from a
// 5s base, unless the provider stated its own delay, in which case that
// delay (rounded up to whole milliseconds) plus a small pad wins - the
// provider's number is more accurate than the exponential default.
func ImagePolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: imageMaxRetries,
		Delay: func(retries int, hint time.Duration) time.Duration {
			if hint > 0 {
				ms := math.Ceil(float64(hint) / float64(time.Millisecond))
				return time.Duration(ms)*time.Millisecond + hintPadding
			}
			return imageBaseDelay << uint(retries)
		},
	}
}

// VideoPolicy is the video stage's simpler policy: a fixed wait between
// attempts. Video failures are typically transient infra errors rather
// than quota signals, so no exponential or provider-hinted delay is
// modeled.
func VideoPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: videoMaxRetries,
		Delay: func(int, time.Duration) time.Duration {
			return videoRetryDelay
		},
	}
}
