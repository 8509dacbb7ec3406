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

// BuildOptions contains inputs for constructing a signed upgrade extrinsic.
type BuildOptions struct {
	Client      chain.Client
	Key         chain.SigningKey
	Call        chain.Call
	EraPeriod   uint64        // Mortality window in blocks; 0 uses DefaultEraPeriod
	Tip         uint64        // Tip in base units; upgrades pay none
	Attempts    int           // Construction attempts; 0 uses MaxConstructionAttempts
	BackoffUnit time.Duration // Exponential backoff seed; 0 uses ConstructionBackoffUnit
	Logger      *output.Logger
	OnAttempt   func(attempt int) // Called at the start of every attempt
	Sleep       SleepFunc
}

// BuildSignedExtrinsic constructs and signs an upgrade extrinsic.
//
// Each attempt re-reads the account nonce and the chain head so the extrinsic
// is anchored to the freshest state available; whatever a failed attempt read
// is thrown away. On exhaustion the last error is wrapped in
// ErrConstructionFailed.
func BuildSignedExtrinsic(ctx context.Context, opts *BuildOptions) (*chain.SignedExtrinsic, error) {
	logger := opts.Logger
	if logger == nil {
		logger = output.DefaultLogger
	}
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = MaxConstructionAttempts
	}
	eraPeriod := opts.EraPeriod
	if eraPeriod == 0 {
		eraPeriod = DefaultEraPeriod
	}
	unit := opts.BackoffUnit
	if unit == 0 {
		unit = ConstructionBackoffUnit
	}

	policy := retry.Policy{
		MaxAttempts: attempts,
		Classify:    retry.Exponential(unit),
		Logger:      logger,
		Sleep:       opts.Sleep,
	}

	var signed *chain.SignedExtrinsic
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt)
		}

		account, err := opts.Client.QueryAccount(ctx, opts.Key.Address)
		if err != nil {
			return fmt.Errorf("query account: %w", err)
		}
		head, err := opts.Client.CurrentBlock(ctx)
		if err != nil {
			return fmt.Errorf("fetch chain head: %w", err)
		}

		logger.Debug("Construction attempt %d/%d: nonce=%d anchor block=%d",
			attempt, attempts, account.Nonce, head.Number)

		ext, err := opts.Client.CreateSignedExtrinsic(ctx, opts.Key, opts.Call, chain.TxOptions{
			Nonce: account.Nonce,
			Era:   chain.EraWindow{Period: eraPeriod, Anchor: head},
			Tip:   opts.Tip,
		})
		if err != nil {
			return err
		}
		signed = ext
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrConstructionFailed, exhausted.Attempts, exhausted.Last)
		}
		return nil, err
	}

	return signed, nil
}
