package scheduler

import (
	"context"
	"errors"
	"sync"
)

// DefaultLimit is the concurrency ceiling both generation stages run
// with. It bounds load on the external gateway and avoids provider-side
// rate-limit storms while keeping wall-clock time sub-linear in scene
// count.
const DefaultLimit = 3

// FatalError marks a worker failure as batch-fatal: RunAll stops
// admitting new items once it surfaces, but still drains everything
// already in flight.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "batch-fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so the scheduler treats it as batch-fatal.
func Fatal(err error) error { return &FatalError{Err: err} }

// RunAll runs worker for indices 0..count-1 with at most limit
// invocations in flight. Items are admitted strictly in input order; as
// soon as any in-flight invocation settles the next admission happens.
//
// Worker errors do not cancel siblings and do not stop admission, with
// one exception: an error wrapping FatalError halts further admissions.
// RunAll always waits for every admitted invocation to settle before
// returning, so no dangling mutations are left behind. It returns the
// first batch-fatal error, or ctx.Err() if the context ended, else nil.
// Retry is not this package's concern; workers bring their own policy.
func RunAll(ctx context.Context, count, limit int, worker func(ctx context.Context, idx int) error) error {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var fatal error

	for i := 0; i < count; i++ {
		mu.Lock()
		halted := fatal != nil
		mu.Unlock()
		if halted {
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			// A worker may have recorded a batch-fatal error while this
			// admission was blocked; that cause outranks the cancellation.
			mu.Lock()
			f := fatal
			mu.Unlock()
			if f != nil {
				return f
			}
			return ctx.Err()
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := worker(ctx, idx); err != nil {
				var fe *FatalError
				if errors.As(err, &fe) {
					mu.Lock()
					if fatal == nil {
						fatal = err
					}
					mu.Unlock()
				}
			}
		}(i)
	}

	wg.Wait()
	return fatal
}
