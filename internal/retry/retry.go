// Package retry is an explicit, composable retry policy for call sites
// that need it. The deterministic assembly stages are never wrapped; the
// batch runner applies it around whole jobs when asked to.
package retry

import (
	"context"
	"time"
)

// Policy controls how Do re-attempts a failing call.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	// Retryable filters errors worth another attempt; nil retries all.
	Retryable func(error) bool
}

// Do runs fn up to MaxAttempts times, sleeping InitialDelay multiplied by
// BackoffFactor after each failure. It returns the last error, or the
// context error if the wait is interrupted.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = 1
	}

	delay := p.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}
}
