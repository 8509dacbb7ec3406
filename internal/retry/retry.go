// Package retry runs bounded attempt loops whose waits are decided per
// failure by a classifier. The same loop serves extrinsic construction,
// where every failure earns a growing wait, and submission, where the wait
// depends on how the node rejected the attempt.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/altuslabsxyz/chainup/internal/output"
)

// DefaultMaxAttempts bounds an attempt loop when the policy does not say
// otherwise.
const DefaultMaxAttempts = 3

// Decision tells the loop what to do with a failed attempt.
type Decision struct {
	Retry   bool
	Backoff time.Duration
}

// Classifier maps a failed attempt to a Decision. attempt is 1-based.
type Classifier func(err error, attempt int) Decision

// Exponential returns a classifier that always retries, waiting
// unit*2^attempt after the attempt that failed: 2s, 4s, 8s for a one
// second unit.
func Exponential(unit time.Duration) Classifier {
	return func(_ error, attempt int) Decision {
		return Decision{Retry: true, Backoff: unit << attempt}
	}
}

// Operation is a single attempt. attempt is 1-based.
type Operation func(ctx context.Context, attempt int) error

// ExhaustedError reports that the attempt budget ran out. Last is the
// final attempt's error and is reachable through errors.Is/As.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Policy runs operations under a bounded, classified retry loop.
type Policy struct {
	MaxAttempts int
	Classify    Classifier
	Logger      *output.Logger

	// Sleep waits between attempts. Nil means a context-aware real sleep;
	// tests inject a recorder here.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op until it succeeds, the classifier refuses to retry, ctx is
// cancelled, or the attempt budget runs out. A refused retry returns the
// attempt's own error so callers can match it; exhaustion returns an
// ExhaustedError wrapping the last one.
func (p Policy) Do(ctx context.Context, op Operation) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := p.Logger
	if logger == nil {
		logger = output.DefaultLogger
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		decision := p.Classify(err, attempt)
		if !decision.Retry {
			return err
		}

		// Last attempt, don't wait
		if attempt == maxAttempts {
			break
		}

		logger.Warn("Attempt %d/%d failed: %v. Retrying in %v...",
			attempt, maxAttempts, err, decision.Backoff)

		if err := sleep(ctx, decision.Backoff); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

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
