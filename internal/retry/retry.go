// Package retry provides a bounded retry helper with incremental backoff
// for remote calls issued by the ingestion pipeline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted indicates all retry attempts failed.
var ErrAttemptsExhausted = errors.New("retry: attempts exhausted")

// Do runs fn until it succeeds or attempts are exhausted.
//
// After the n-th failed attempt it waits n*backoff before trying again
// (incremental backoff). The wait honours ctx: cancellation stops the
// loop and returns ctx.Err().
//
// Parameters:
//   - ctx: Context for cancellation
//   - attempts: Maximum number of attempts (minimum 1)
//   - backoff: Base backoff duration between attempts
//   - fn: Operation to retry
//
// Returns:
//   - error: nil on success, ctx.Err() on cancellation, or
//     ErrAttemptsExhausted wrapping the last failure
func Do(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		wait := time.Duration(attempt) * backoff
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}
