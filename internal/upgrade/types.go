package upgrade

import (
	"context"
	"strings"
	"time"

	"github.com/altuslabsxyz/chainup/internal/keystore"
	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/pkg/chain"
)

// UpgradeStage represents the current stage of the upgrade process.
type UpgradeStage string

const (
	StageConnecting      UpgradeStage = "connecting"
	StageLoadingKey      UpgradeStage = "loading_key"
	StageCheckingAccount UpgradeStage = "checking_account"
	StageLoadingArtifact UpgradeStage = "loading_artifact"
	StageConstructing    UpgradeStage = "constructing"
	StageSubmitting      UpgradeStage = "submitting"
	StageCompleted       UpgradeStage = "completed"
	StageFailed          UpgradeStage = "failed"
)

// String returns a human-readable description of the stage.
func (s UpgradeStage) String() string {
	switch s {
	case StageConnecting:
		return "Connecting to node"
	case StageLoadingKey:
		return "Loading sudo key"
	case StageCheckingAccount:
		return "Checking sudo account"
	case StageLoadingArtifact:
		return "Reading runtime artifact"
	case StageConstructing:
		return "Constructing extrinsic"
	case StageSubmitting:
		return "Submitting extrinsic"
	case StageCompleted:
		return "Upgrade completed"
	case StageFailed:
		return "Upgrade failed"
	default:
		return string(s)
	}
}

// StageNumber returns the stage number (1-6) for progress display.
func (s UpgradeStage) StageNumber() int {
	switch s {
	case StageConnecting:
		return 1
	case StageLoadingKey:
		return 2
	case StageCheckingAccount:
		return 3
	case StageLoadingArtifact:
		return 4
	case StageConstructing:
		return 5
	case StageSubmitting:
		return 6
	case StageCompleted, StageFailed:
		return 6
	default:
		return 0
	}
}

// TotalStages is the number of stages shown in progress output.
const TotalStages = 6

// Outcome classifies how a run ended.
type Outcome string

const (
	// OutcomeIncluded: the extrinsic landed in a block and dispatched cleanly.
	OutcomeIncluded Outcome = "included"
	// OutcomeRejected: the extrinsic landed but its dispatch failed, or the
	// node refused it outright.
	OutcomeRejected Outcome = "rejected"
	// OutcomeTimedOut: no inclusion within the per-attempt deadline.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeRetriesExhausted: every retry and rebuild budget was spent.
	OutcomeRetriesExhausted Outcome = "retries_exhausted"
	// OutcomeAborted: the operator cancelled the run.
	OutcomeAborted Outcome = "aborted"
	// OutcomeFailed: a stage before submission failed.
	OutcomeFailed Outcome = "failed"
)

// UpgradeConfig holds configuration for a runtime upgrade run.
type UpgradeConfig struct {
	KeyName          string        // Name of the sudo key in the key store (required)
	WasmPath         string        // Path to the compiled runtime wasm (required)
	NodeURL          string        // Websocket RPC endpoint
	NetworkID        uint16        // SS58 address format of the chain
	KeyDir           string        // Key store directory
	Timeout          time.Duration // Per-attempt deadline for submission
	EraPeriod        uint64        // Extrinsic mortality window in blocks
	MinBalanceTokens int64         // Required free balance in whole tokens
}

// Validate checks if the config is valid.
func (c *UpgradeConfig) Validate() error {
	if c.KeyName == "" {
		return ErrKeyNameRequired
	}
	if c.WasmPath == "" {
		return ErrWasmPathRequired
	}
	if !strings.HasPrefix(c.NodeURL, "ws://") && !strings.HasPrefix(c.NodeURL, "wss://") {
		return ErrInvalidNodeURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.EraPeriod == 0 {
		return ErrInvalidEraPeriod
	}
	return nil
}

// UpgradeProgress tracks the overall upgrade process state.
type UpgradeProgress struct {
	Stage       UpgradeStage // Current stage
	Attempt     int          // Attempt within the stage, 0 when not applicable
	Rebuilds    int          // Completed stale-rebuild cycles
	Signer      string       // SS58 address of the sudo account
	CodeHash    string       // Blake2-256 hash of the wasm artifact
	TxHash      string       // Hash of the most recently signed extrinsic
	Error       error        // Error if the stage failed
	StartedAt   time.Time    // Run start timestamp
	CompletedAt *time.Time   // Completion timestamp, nil while in progress
}

// ProgressCallback is called when upgrade progress changes.
type ProgressCallback func(progress UpgradeProgress)

// UpgradeResult contains the final result of an upgrade run.
type UpgradeResult struct {
	RunID          string        // Unique identifier of this run
	Success        bool          // Whether the upgrade landed and dispatched
	Outcome        Outcome       // How the run ended
	Signer         string        // SS58 address of the sudo account
	CodeHash       string        // Blake2-256 hash of the uploaded runtime
	CodeSize       int           // Uploaded runtime size in bytes
	TxHash         string        // Hash of the signed extrinsic
	BlockHash      string        // Block that included the extrinsic
	ExtrinsicIndex int           // Index within the block, -1 if unresolved
	Events         []string      // Decoded event names from the inclusion block
	FailureReason  string        // On-chain dispatch failure, if any
	Attempts       int           // Submission attempts across all cycles
	Rebuilds       int           // Stale-rebuild cycles performed
	Duration       time.Duration // Total run duration
	Error          error         // Error if the run failed
}

// ExecuteOptions contains collaborators for ExecuteUpgrade.
type ExecuteOptions struct {
	Dial             chain.Dialer // Opens the node connection (required)
	Keys             KeyLoader    // Resolves the sudo key (required)
	Logger           *output.Logger
	ProgressCallback ProgressCallback
	Sleep            SleepFunc // Overrides backoff sleeps; nil uses the real clock
}

// KeyLoader resolves signing credentials by name.
type KeyLoader interface {
	Load(name string) (*keystore.Credential, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error
