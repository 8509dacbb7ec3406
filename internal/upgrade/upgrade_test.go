package upgrade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/chainup/internal/keystore"
	"github.com/altuslabsxyz/chainup/pkg/chain"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func writeWasm(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runtime.compact.compressed.wasm")
	require.NoError(t, os.WriteFile(path, wasmMagic, 0o644))
	return path
}

func testConfig(wasmPath string) *UpgradeConfig {
	return &UpgradeConfig{
		KeyName:          "sudo",
		WasmPath:         wasmPath,
		NodeURL:          "wss://node.example:443",
		NetworkID:        42,
		Timeout:          5 * time.Second,
		EraPeriod:        32,
		MinBalanceTokens: MinBalanceTokens,
	}
}

func testKeys() *fakeKeys {
	return &fakeKeys{creds: map[string]*keystore.Credential{
		"sudo": {
			Name:      "sudo",
			Address:   testKey.Address,
			PublicKey: testKey.PublicKey,
			URI:       testKey.URI,
		},
	}}
}

func TestExecuteUpgradeHappyPath(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	dialer := &fakeDialer{client: client}

	var stages []UpgradeStage
	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
		ProgressCallback: func(p UpgradeProgress) {
			stages = append(stages, p.Stage)
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, OutcomeIncluded, result.Outcome)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, testKey.Address, result.Signer)
	assert.True(t, strings.HasPrefix(result.CodeHash, "0x"))
	assert.Equal(t, len(wasmMagic), result.CodeSize)
	assert.Equal(t, "0xtx0", result.TxHash)
	assert.Equal(t, "0xincluded", result.BlockHash)
	assert.Equal(t, 2, result.ExtrinsicIndex)
	assert.Contains(t, result.Events, "System.CodeUpdated")
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 0, result.Rebuilds)
	assert.Greater(t, result.Duration, time.Duration(0))

	assert.Equal(t, cfg.NodeURL, dialer.endpoint.URL)
	assert.Equal(t, uint16(42), dialer.endpoint.NetworkID)
	assert.True(t, client.closed)

	var order []UpgradeStage
	for _, s := range stages {
		if len(order) == 0 || order[len(order)-1] != s {
			order = append(order, s)
		}
	}
	// Connect-first ordering: chain state is touched before any local
	// inputs beyond the config are trusted.
	assert.Equal(t, []UpgradeStage{
		StageConnecting,
		StageLoadingKey,
		StageCheckingAccount,
		StageLoadingArtifact,
		StageConstructing,
		StageSubmitting,
		StageCompleted,
	}, order)
	for i, s := range order[:TotalStages] {
		assert.Equal(t, i+1, s.StageNumber(), s)
	}
}

func TestExecuteUpgradeValidatesConfig(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	cfg.KeyName = ""

	dialer := &fakeDialer{client: newFakeClient()}
	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, ErrKeyNameRequired)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 0, dialer.dials)
}

func TestExecuteUpgradeMissingArtifact(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.wasm"))
	client := newFakeClient()
	dialer := &fakeDialer{client: client}

	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, ErrArtifactNotFound)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 0, client.signCalls)
	assert.True(t, client.closed)

	var uerr *UpgradeError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, StageLoadingArtifact, uerr.Stage)
	assert.NotEmpty(t, uerr.Suggestion)
}

func TestExecuteUpgradeUnknownKey(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	cfg.KeyName = "nobody"
	client := newFakeClient()
	dialer := &fakeDialer{client: client}

	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, keystore.ErrKeyNotFound)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 0, client.queryCalls)
	assert.True(t, client.closed)

	var uerr *UpgradeError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, StageLoadingKey, uerr.Stage)
}

func TestExecuteUpgradeDialFailure(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	dialer := &fakeDialer{err: fmt.Errorf("%w: connection refused", chain.ErrConnection)}

	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, chain.ErrConnection)
	assert.Equal(t, OutcomeFailed, result.Outcome)

	var uerr *UpgradeError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, StageConnecting, uerr.Stage)
	assert.NotEmpty(t, uerr.Suggestion)
}

func TestExecuteUpgradeInsufficientBalance(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	client.free = sdkmath.NewIntWithDecimal(14, TokenDecimals)
	dialer := &fakeDialer{client: client}

	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "14.00")
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 0, client.signCalls)
	assert.True(t, client.closed)
}

func TestExecuteUpgradeBalanceBoundary(t *testing.T) {
	// The gate is an integer compare in base units: exactly 15 tokens
	// passes, one base unit short of it does not.
	t.Run("exactly at threshold", func(t *testing.T) {
		cfg := testConfig(writeWasm(t))
		client := newFakeClient()
		client.free = sdkmath.NewIntWithDecimal(15, TokenDecimals)

		result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
			Dial:   (&fakeDialer{client: client}).Dial,
			Keys:   testKeys(),
			Logger: quietLogger(),
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("one base unit short", func(t *testing.T) {
		cfg := testConfig(writeWasm(t))
		client := newFakeClient()
		client.free = sdkmath.NewIntWithDecimal(15, TokenDecimals).SubRaw(1)

		_, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
			Dial:   (&fakeDialer{client: client}).Dial,
			Keys:   testKeys(),
			Logger: quietLogger(),
		})
		require.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, 0, client.submitCalls)
	})
}

func TestExecuteUpgradeRecoversFromTransientDrops(t *testing.T) {
	drop := errors.New("websocket: close 1006 (abnormal closure)")

	path := filepath.Join(t.TempDir(), "runtime.wasm")
	code := make([]byte, 2<<20)
	for i := range code {
		code[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, code, 0o644))

	cfg := testConfig(path)
	client := newFakeClient()
	client.free = sdkmath.NewIntWithDecimal(20, TokenDecimals)
	client.submits = []submitResult{{err: drop}, {err: drop}, {}}
	dialer := &fakeDialer{client: client}

	var sleeps []time.Duration
	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
		Sleep:  recordSleeps(&sleeps),
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, OutcomeIncluded, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, len(code), result.CodeSize)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)
}

func TestExecuteUpgradeAllAttemptsBanned(t *testing.T) {
	banned := errors.New("RPC error: Transaction is temporarily banned")
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	client.submits = []submitResult{{err: banned}, {err: banned}, {err: banned}}
	dialer := &fakeDialer{client: client}

	var sleeps []time.Duration
	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
		Sleep:  recordSleeps(&sleeps),
	})
	require.ErrorIs(t, err, ErrSubmissionFailed)

	assert.Equal(t, OutcomeRetriesExhausted, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
	// Flat cooldown between every pair of attempts, regardless of count.
	assert.Equal(t, []time.Duration{BannedBackoff, BannedBackoff}, sleeps)
}

func TestExecuteUpgradeRebuildsOnceAfterStale(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	client.submits = []submitResult{
		{err: fmt.Errorf("%w: Transaction is outdated", chain.ErrStale)},
		{},
	}
	dialer := &fakeDialer{client: client}

	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, OutcomeIncluded, result.Outcome)
	assert.Equal(t, 1, result.Rebuilds)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, client.signCalls)
	assert.Equal(t, "0xtx1", result.TxHash)
}

func TestExecuteUpgradeStaleAfterRebuildBudget(t *testing.T) {
	stale := fmt.Errorf("%w: Transaction is outdated", chain.ErrStale)
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	client.submits = []submitResult{{err: stale}, {err: stale}}
	dialer := &fakeDialer{client: client}

	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, ErrStaleAfterRebuild)
	assert.Equal(t, OutcomeRetriesExhausted, result.Outcome)
	assert.Equal(t, 1, result.Rebuilds)
	assert.Equal(t, 2, client.signCalls)
}

func TestExecuteUpgradeSubmissionExhausted(t *testing.T) {
	drop := errors.New("websocket: close 1006 (abnormal closure)")
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	client.submits = []submitResult{{err: drop}, {err: drop}, {err: drop}}
	dialer := &fakeDialer{client: client}

	var sleeps []time.Duration
	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
		Sleep:  recordSleeps(&sleeps),
	})
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, OutcomeRetriesExhausted, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 0, result.Rebuilds)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)
}

func TestExecuteUpgradeDispatchFailure(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	client.submits = []submitResult{{inclusion: &chain.Inclusion{
		BlockHash:     "0xblock",
		Index:         1,
		Success:       false,
		FailureReason: "Sudo.RequireSudo",
		Events:        []string{"System.ExtrinsicFailed"},
	}}}
	dialer := &fakeDialer{client: client}

	result, err := ExecuteUpgrade(context.Background(), cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, ErrUpgradeRejected)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "Sudo.RequireSudo", result.FailureReason)
	assert.Equal(t, "0xblock", result.BlockHash)
	assert.Equal(t, 1, result.ExtrinsicIndex)
	assert.False(t, result.Success)
}

func TestExecuteUpgradeAbortedByCancel(t *testing.T) {
	cfg := testConfig(writeWasm(t))
	client := newFakeClient()
	client.submits = []submitResult{{block: true}}
	dialer := &fakeDialer{client: client}

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(20*time.Millisecond, cancel)
	defer timer.Stop()

	result, err := ExecuteUpgrade(ctx, cfg, &ExecuteOptions{
		Dial:   dialer.Dial,
		Keys:   testKeys(),
		Logger: quietLogger(),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeAborted, result.Outcome)
	assert.False(t, result.Success)
}

func TestOutcomeForError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Outcome
	}{
		{"cancelled", context.Canceled, OutcomeAborted},
		{"timeout", fmt.Errorf("%w after 5m0s", ErrConfirmationTimeout), OutcomeTimedOut},
		{"rejected", fmt.Errorf("%w: BadOrigin", ErrUpgradeRejected), OutcomeRejected},
		{"stale budget", fmt.Errorf("%w (1 rebuilds): gone", ErrStaleAfterRebuild), OutcomeRetriesExhausted},
		{"submission", fmt.Errorf("%w after 3 attempts: eof", ErrSubmissionFailed), OutcomeRetriesExhausted},
		{"construction", fmt.Errorf("%w after 3 attempts: eof", ErrConstructionFailed), OutcomeRetriesExhausted},
		{"anything else", errors.New("boom"), OutcomeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, outcomeForError(WrapError(StageSubmitting, "op", tc.err, "")))
		})
	}
}
