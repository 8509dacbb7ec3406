package upgrade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/pkg/chain"
)

// ExecuteUpgrade performs the complete runtime upgrade process.
func ExecuteUpgrade(ctx context.Context, cfg *UpgradeConfig, opts *ExecuteOptions) (*UpgradeResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = output.DefaultLogger
	}

	startTime := time.Now()
	progress := UpgradeProgress{
		Stage:     StageConnecting,
		StartedAt: startTime,
	}

	notifyProgress := func() {
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(progress)
		}
	}

	result := &UpgradeResult{
		RunID:          uuid.NewString(),
		ExtrinsicIndex: -1,
	}

	fail := func(err error) (*UpgradeResult, error) {
		progress.Stage = StageFailed
		progress.Error = err
		now := time.Now()
		progress.CompletedAt = &now
		notifyProgress()

		result.Success = false
		result.Outcome = outcomeForError(err)
		result.Error = err
		result.Duration = time.Since(startTime)
		return result, err
	}

	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	// Stage 1: Connect to the node
	progress.Stage = StageConnecting
	notifyProgress()

	client, err := opts.Dial(ctx, chain.Endpoint{URL: cfg.NodeURL, NetworkID: cfg.NetworkID})
	if err != nil {
		return fail(WrapError(StageConnecting, "dial node", err, ErrorWithSuggestion(err)))
	}
	defer client.Close()

	// Stage 2: Load the sudo key
	progress.Stage = StageLoadingKey
	notifyProgress()

	cred, err := opts.Keys.Load(cfg.KeyName)
	if err != nil {
		return fail(WrapError(StageLoadingKey, "load sudo key", err, ErrorWithSuggestion(err)))
	}
	key := chain.SigningKey{Address: cred.Address, PublicKey: cred.PublicKey, URI: cred.URI}
	result.Signer = cred.Address
	progress.Signer = cred.Address

	// Stage 3: Check the sudo account and gate on its free balance
	progress.Stage = StageCheckingAccount
	notifyProgress()

	account, err := client.QueryAccount(ctx, cred.Address)
	if err != nil {
		return fail(WrapError(StageCheckingAccount, "query sudo account", err, ErrorWithSuggestion(err)))
	}

	required := RequiredBalance(cfg.MinBalanceTokens)
	if account.Free.LT(required) {
		err := fmt.Errorf("%w: free balance %s, need %d tokens",
			ErrInsufficientBalance, FormatTokens(account.Free), cfg.MinBalanceTokens)
		return fail(WrapError(StageCheckingAccount, "check balance", err, ErrorWithSuggestion(err)))
	}

	logger.Debug("Sudo account %s: nonce=%d free=%s", cred.Address, account.Nonce, FormatTokens(account.Free))

	// Stage 4: Read the runtime artifact
	progress.Stage = StageLoadingArtifact
	notifyProgress()

	artifact, err := LoadArtifact(cfg.WasmPath)
	if err != nil {
		return fail(WrapError(StageLoadingArtifact, "read wasm artifact", err, ErrorWithSuggestion(err)))
	}
	result.CodeHash = artifact.Hash
	result.CodeSize = artifact.Size()
	progress.CodeHash = artifact.Hash

	logger.Debug("Runtime artifact: %s (%.2f MB, %s)", artifact.Path, artifact.SizeMB(), artifact.Hash)

	// Stages 5-6: construct and submit, rebuilding once if the extrinsic
	// goes stale under us.
	call, err := ComposeUpgradeCall(client, artifact.Code)
	if err != nil {
		return fail(WrapError(StageConstructing, "compose upgrade call", err, ErrorWithSuggestion(err)))
	}

	var inclusion *chain.Inclusion
	for rebuild := 0; ; rebuild++ {
		progress.Stage = StageConstructing
		progress.Rebuilds = rebuild
		result.Rebuilds = rebuild
		notifyProgress()

		signed, err := BuildSignedExtrinsic(ctx, &BuildOptions{
			Client:    client,
			Key:       key,
			Call:      call,
			EraPeriod: cfg.EraPeriod,
			Logger:    logger,
			OnAttempt: func(attempt int) {
				progress.Attempt = attempt
				notifyProgress()
			},
			Sleep: opts.Sleep,
		})
		if err != nil {
			return fail(WrapError(StageConstructing, "construct extrinsic", err, ErrorWithSuggestion(err)))
		}
		result.TxHash = signed.Hash
		progress.TxHash = signed.Hash

		progress.Stage = StageSubmitting
		progress.Attempt = 0
		notifyProgress()

		inclusion, err = SubmitAndWait(ctx, signed, &SubmitOptions{
			Client:  client,
			Timeout: cfg.Timeout,
			Logger:  logger,
			OnAttempt: func(attempt int) {
				result.Attempts++
				progress.Attempt = attempt
				notifyProgress()
			},
			Sleep: opts.Sleep,
		})
		if err == nil {
			break
		}

		if chain.Classify(err) == chain.ClassStale && ctx.Err() == nil {
			if rebuild < MaxRebuilds {
				logger.Warn("Extrinsic went stale before inclusion. Rebuilding from fresh chain state (%d/%d)...",
					rebuild+1, MaxRebuilds)
				continue
			}
			err = fmt.Errorf("%w (%d rebuilds): %v", ErrStaleAfterRebuild, rebuild, err)
		}
		return fail(WrapError(StageSubmitting, "submit extrinsic", err, ErrorWithSuggestion(err)))
	}

	result.BlockHash = inclusion.BlockHash
	result.ExtrinsicIndex = inclusion.Index
	result.Events = inclusion.Events

	if !inclusion.Success {
		result.FailureReason = inclusion.FailureReason
		err := fmt.Errorf("%w: %s", ErrUpgradeRejected, inclusion.FailureReason)
		return fail(WrapError(StageSubmitting, "verify dispatch", err, ErrorWithSuggestion(err)))
	}

	// Success!
	progress.Stage = StageCompleted
	now := time.Now()
	progress.CompletedAt = &now
	notifyProgress()

	result.Success = true
	result.Outcome = OutcomeIncluded
	result.Duration = time.Since(startTime)
	return result, nil
}

// outcomeForError buckets a terminal error for an UpgradeResult.
func outcomeForError(err error) Outcome {
	switch {
	case errors.Is(err, context.Canceled):
		return OutcomeAborted
	case errors.Is(err, ErrConfirmationTimeout):
		return OutcomeTimedOut
	case errors.Is(err, ErrUpgradeRejected):
		return OutcomeRejected
	case errors.Is(err, ErrStaleAfterRebuild),
		errors.Is(err, ErrSubmissionFailed),
		errors.Is(err, ErrConstructionFailed):
		return OutcomeRetriesExhausted
	default:
		return OutcomeFailed
	}
}
