package upgrade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/internal/retry"
	"github.com/altuslabsxyz/chainup/pkg/chain"
)

// SubmitOptions contains inputs for broadcasting a signed extrinsic.
type SubmitOptions struct {
	Client        chain.Client
	Timeout       time.Duration // Per-attempt deadline; 0 uses DefaultTimeoutSeconds
	Attempts      int           // Submission attempts; 0 uses MaxSubmissionAttempts
	BackoffUnit   time.Duration // Exponential backoff seed; 0 uses SubmissionBackoffUnit
	BannedBackoff time.Duration // Flat cooldown after a ban; 0 uses BannedBackoff
	Logger        *output.Logger
	OnAttempt     func(attempt int) // Called at the start of every attempt
	Sleep         SleepFunc
}

// SubmitAndWait broadcasts ext and watches it until inclusion or a terminal
// error.
//
// Transient errors are retried with exponential backoff and a temporary ban
// waits out the node's flat cooldown. A stale extrinsic comes straight back
// to the caller: resubmitting the same bytes cannot succeed, it has to be
// rebuilt from fresh state. An attempt that outlives the per-attempt deadline
// ends the run as ErrConfirmationTimeout; by then the mortality window has
// passed and the bytes are dead anyway.
func SubmitAndWait(ctx context.Context, ext *chain.SignedExtrinsic, opts *SubmitOptions) (*chain.Inclusion, error) {
	logger := opts.Logger
	if logger == nil {
		logger = output.DefaultLogger
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds * time.Second
	}
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = MaxSubmissionAttempts
	}
	unit := opts.BackoffUnit
	if unit == 0 {
		unit = SubmissionBackoffUnit
	}
	banned := opts.BannedBackoff
	if banned == 0 {
		banned = BannedBackoff
	}

	policy := retry.Policy{
		MaxAttempts: attempts,
		Classify: func(err error, attempt int) retry.Decision {
			if errors.Is(err, ErrConfirmationTimeout) {
				return retry.Decision{}
			}
			switch chain.Classify(err) {
			case chain.ClassStale:
				return retry.Decision{}
			case chain.ClassBanned:
				return retry.Decision{Retry: true, Backoff: banned}
			default:
				return retry.Exponential(unit)(err, attempt)
			}
		},
		Logger: logger,
		Sleep:  opts.Sleep,
	}

	var inclusion *chain.Inclusion
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt)
		}
		logger.Debug("Submission attempt %d/%d: tx=%s deadline=%v", attempt, attempts, ext.Hash, timeout)

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		inc, err := opts.Client.SubmitAndWatch(attemptCtx, ext)
		if err != nil {
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return fmt.Errorf("%w after %v", ErrConfirmationTimeout, timeout)
			}
			return err
		}
		inclusion = inc
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrSubmissionFailed, exhausted.Attempts, exhausted.Last)
		}
		return nil, err
	}

	return inclusion, nil
}
