package upgrade

import (
	"errors"
	"fmt"

	"github.com/altuslabsxyz/chainup/internal/keystore"
	"github.com/altuslabsxyz/chainup/pkg/chain"
)

// Base errors for upgrade operations.
var (
	ErrKeyNameRequired     = errors.New("invalid upgrade configuration: key name is required")
	ErrWasmPathRequired    = errors.New("invalid upgrade configuration: wasm path is required")
	ErrInvalidNodeURL      = errors.New("node URL must be a ws:// or wss:// endpoint")
	ErrInvalidTimeout      = errors.New("timeout must be positive")
	ErrInvalidEraPeriod    = errors.New("era period must be positive")
	ErrArtifactNotFound    = errors.New("runtime artifact not found")
	ErrEmptyArtifact       = errors.New("runtime artifact is empty")
	ErrInsufficientBalance = errors.New("insufficient balance for the upgrade")
	ErrConstructionFailed  = errors.New("extrinsic construction failed")
	ErrSubmissionFailed    = errors.New("extrinsic submission failed")
	ErrConfirmationTimeout = errors.New("timed out waiting for inclusion")
	ErrUpgradeRejected     = errors.New("upgrade dispatch failed on chain")
	ErrStaleAfterRebuild   = errors.New("extrinsic went stale again after a rebuild")
)

// UpgradeError wraps an error with upgrade context.
type UpgradeError struct {
	Stage      UpgradeStage
	Operation  string
	Err        error
	Suggestion string
}

func (e *UpgradeError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("[%s] %s: %v\nHint: %s", e.Stage, e.Operation, e.Err, e.Suggestion)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Operation, e.Err)
}

func (e *UpgradeError) Unwrap() error {
	return e.Err
}

// WrapError creates an UpgradeError with context.
func WrapError(stage UpgradeStage, operation string, err error, suggestion string) *UpgradeError {
	return &UpgradeError{
		Stage:      stage,
		Operation:  operation,
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrorWithSuggestion returns common errors with recovery suggestions.
func ErrorWithSuggestion(err error) string {
	switch {
	case errors.Is(err, ErrArtifactNotFound), errors.Is(err, ErrEmptyArtifact):
		return "Verify --wasm-path points at the compiled runtime blob"
	case errors.Is(err, keystore.ErrKeyNotFound):
		return "Check the key name and --key-dir; 'ls' the key directory to see what is there"
	case errors.Is(err, keystore.ErrUnsupportedKey):
		return "Re-export the key with its mnemonic or seed included"
	case errors.Is(err, ErrInsufficientBalance):
		return fmt.Sprintf("Fund the sudo account with at least %d tokens and retry", MinBalanceTokens)
	case errors.Is(err, chain.ErrConnection):
		return "Check the node URL and that the endpoint accepts websocket connections"
	case errors.Is(err, chain.ErrAccountNotFound):
		return "The sudo account has no record on this chain. Verify the key and the node URL."
	case errors.Is(err, ErrConfirmationTimeout):
		return "The network may be congested. Increase --timeout or retry later."
	case errors.Is(err, ErrStaleAfterRebuild), errors.Is(err, chain.ErrStale):
		return "Another transaction from this account may be racing. Wait a block and retry."
	case errors.Is(err, chain.ErrBanned):
		return "The node has temporarily banned these bytes. Wait 30 seconds and retry."
	case errors.Is(err, ErrUpgradeRejected):
		return "Check that the key is the chain's sudo key and the wasm targets this runtime."
	default:
		return ""
	}
}
