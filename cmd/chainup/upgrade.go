package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/chainup/internal/config"
	"github.com/altuslabsxyz/chainup/internal/keystore"
	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/internal/paths"
	"github.com/altuslabsxyz/chainup/internal/upgrade"
	"github.com/altuslabsxyz/chainup/pkg/chain/substrate"
)

// Upgrade command flags
var (
	upgradeKeyName        string
	upgradeWasmPath       string
	upgradeNodeURL        string
	upgradeKeyDir         string
	upgradeNetworkID      uint16
	upgradeTimeoutSeconds int
	upgradeEraPeriod      uint64
	upgradeMinBalance     int64
	upgradeYes            bool
)

// NewUpgradeCmd creates the upgrade command.
func NewUpgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Submit a runtime upgrade and wait for inclusion",
		Long: `Submit a compiled runtime wasm to the node as Sudo.sudo_unchecked_weight
wrapping System.set_code, then watch the extrinsic until it reaches a block.

The run is staged: read the wasm, load the sudo key, connect, verify the
account holds the minimum balance, construct a signed extrinsic from fresh
chain state, and submit. Construction and submission each retry on their
own bounded budgets; an extrinsic that goes stale between signing and
inclusion is rebuilt from fresh state once before the run gives up.

Examples:
  # Submit with the defaults of the commune testnet
  chainup upgrade --key sudo --wasm-path ./runtime.compact.compressed.wasm

  # Skip the confirmation prompt (CI)
  chainup upgrade --key sudo --wasm-path ./runtime.wasm --yes

  # Read keys from a non-default key directory
  chainup upgrade --key sudo --wasm-path ./runtime.wasm --key-dir ./keys`,
		RunE: runUpgrade,
	}

	cmd.Flags().StringVarP(&upgradeKeyName, "key", "k", "", "Name of the sudo key in the key store (required)")
	cmd.Flags().StringVarP(&upgradeWasmPath, "wasm-path", "w", "", "Path to the compiled runtime wasm (required)")
	cmd.Flags().StringVar(&upgradeNodeURL, "node-url", upgrade.DefaultNodeURL, "Websocket RPC endpoint of the target node")
	cmd.Flags().StringVar(&upgradeKeyDir, "key-dir", upgrade.DefaultKeyDir, "Directory holding key files")
	cmd.Flags().Uint16Var(&upgradeNetworkID, "network-id", upgrade.DefaultNetworkID, "SS58 address format of the chain")
	cmd.Flags().IntVarP(&upgradeTimeoutSeconds, "timeout", "t", upgrade.DefaultTimeoutSeconds, "Per-attempt inclusion deadline in seconds")
	cmd.Flags().Uint64Var(&upgradeEraPeriod, "era-period", upgrade.DefaultEraPeriod, "Extrinsic mortality window in blocks")
	cmd.Flags().Int64Var(&upgradeMinBalance, "min-balance", upgrade.MinBalanceTokens, "Required free balance in whole tokens")
	cmd.Flags().BoolVarP(&upgradeYes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// UpgradeResultJSON represents the JSON output for the upgrade command.
type UpgradeResultJSON struct {
	Status         string `json:"status"`
	RunID          string `json:"run_id"`
	Outcome        string `json:"outcome"`
	Signer         string `json:"signer,omitempty"`
	CodeHash       string `json:"code_hash,omitempty"`
	CodeSize       int    `json:"code_size,omitempty"`
	TxHash         string `json:"tx_hash,omitempty"`
	BlockHash      string `json:"block_hash,omitempty"`
	ExtrinsicIndex int    `json:"extrinsic_index"`
	Attempts       int    `json:"attempts"`
	Rebuilds       int    `json:"rebuilds"`
	Duration       string `json:"duration"`
	Error          string `json:"error,omitempty"`
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	// Set up signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		fmt.Println()
		output.Warn("Upgrade interrupted. Nothing further will be submitted.")
		output.Info("An extrinsic already broadcast may still be included by the chain.")
		cancel()
	}()

	logger := output.DefaultLogger
	cfg := resolveUpgradeConfig(cmd)

	if err := cfg.Validate(); err != nil {
		return outputUpgradeError(nil, err)
	}

	keyDir, err := paths.Expand(cfg.KeyDir)
	if err != nil {
		return outputUpgradeError(nil, fmt.Errorf("resolve key directory: %w", err))
	}
	keys, err := keystore.NewFileStore(keyDir, cfg.NetworkID, logger)
	if err != nil {
		return outputUpgradeError(nil, err)
	}

	printUpgradePlan(cfg, keyDir)

	if !upgradeYes && !jsonMode {
		if !output.IsInteractive() {
			return outputUpgradeError(nil, fmt.Errorf("stdin is not a terminal; pass --yes to submit without confirmation"))
		}
		ok, err := output.Confirm("Submit this runtime upgrade")
		if err != nil {
			return outputUpgradeError(nil, fmt.Errorf("confirmation prompt: %w", err))
		}
		if !ok {
			output.Info("Aborted. Nothing was submitted.")
			return fmt.Errorf("upgrade not confirmed")
		}
	}

	rpcLogger := log.NewNopLogger()
	if verbose {
		rpcLogger = log.NewLogger(os.Stderr)
	}

	var lastStage upgrade.UpgradeStage
	result, err := upgrade.ExecuteUpgrade(ctx, cfg, &upgrade.ExecuteOptions{
		Dial:   substrate.NewDialer(rpcLogger),
		Keys:   keys,
		Logger: logger,
		ProgressCallback: func(p upgrade.UpgradeProgress) {
			if p.Stage == lastStage || p.Stage == upgrade.StageFailed {
				return
			}
			lastStage = p.Stage
			if p.Stage == upgrade.StageCompleted {
				return
			}
			logger.Step(p.Stage.StageNumber(), upgrade.TotalStages, "%s...", p.Stage)
		},
	})
	if err != nil {
		return outputUpgradeError(result, err)
	}

	if jsonMode {
		return outputUpgradeJSON(result, nil)
	}

	fmt.Println()
	logger.Success("Runtime upgrade included in block %s (extrinsic %d)",
		color.GreenString(result.BlockHash), result.ExtrinsicIndex)
	logger.Info("  Code hash: %s", result.CodeHash)
	logger.Info("  Run took %s over %d submission attempt(s)",
		result.Duration.Round(time.Millisecond), result.Attempts)
	return nil
}

// resolveUpgradeConfig merges flag, config-file, and environment values
// into the upgrade configuration. Flags win, then CHAINUP_NODE_URL, then
// the config file, then built-in defaults.
func resolveUpgradeConfig(cmd *cobra.Command) *upgrade.UpgradeConfig {
	fileCfg := loadedFileConfig
	if fileCfg == nil {
		fileCfg = &config.FileConfig{}
	}

	keyName, _ := config.ApplyFileValue(cmd, "key", upgradeKeyName, fileCfg.KeyName)
	keyDir, _ := config.ApplyFileValue(cmd, "key-dir", upgradeKeyDir, fileCfg.KeyDir)
	networkID, _ := config.ApplyFileValue(cmd, "network-id", upgradeNetworkID, fileCfg.NetworkID)
	timeoutSeconds, _ := config.ApplyFileValue(cmd, "timeout", upgradeTimeoutSeconds, fileCfg.TimeoutSeconds)
	eraPeriod, _ := config.ApplyFileValue(cmd, "era-period", upgradeEraPeriod, fileCfg.EraPeriod)
	minBalance, _ := config.ApplyFileValue(cmd, "min-balance", upgradeMinBalance, fileCfg.MinBalanceTokens)

	nodeURL, src := config.ApplyFileValue(cmd, "node-url", upgradeNodeURL, fileCfg.NodeURL)
	nodeURL, _ = config.ApplyEnvString(cmd, "node-url", nodeURL, os.Getenv("CHAINUP_NODE_URL"), src)

	return &upgrade.UpgradeConfig{
		KeyName:          keyName,
		WasmPath:         upgradeWasmPath,
		NodeURL:          nodeURL,
		NetworkID:        networkID,
		KeyDir:           keyDir,
		Timeout:          time.Duration(timeoutSeconds) * time.Second,
		EraPeriod:        eraPeriod,
		MinBalanceTokens: minBalance,
	}
}

// printUpgradePlan shows what is about to be submitted before asking for
// confirmation.
func printUpgradePlan(cfg *upgrade.UpgradeConfig, keyDir string) {
	if jsonMode {
		return
	}
	logger := output.DefaultLogger

	logger.Bold("Runtime Upgrade Plan")
	logger.Info("  Node:        %s", color.CyanString(cfg.NodeURL))
	logger.Info("  Sudo key:    %s (from %s)", color.CyanString(cfg.KeyName), keyDir)
	logger.Info("  Runtime:     %s", cfg.WasmPath)
	logger.Info("  Era window:  %d blocks, tip 0", cfg.EraPeriod)
	logger.Info("  Deadline:    %s per submission attempt", cfg.Timeout)
	logger.Info("  Balance gate: at least %d tokens free", cfg.MinBalanceTokens)
	fmt.Println()
	output.Warn("A runtime upgrade replaces the chain's code. This cannot be undone.")
}

// outputUpgradeError reports a failed run in the active output mode and
// returns the error for the process exit status.
func outputUpgradeError(result *upgrade.UpgradeResult, err error) error {
	if jsonMode {
		if jsonErr := outputUpgradeJSON(result, err); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	fmt.Println()
	output.DefaultLogger.Failure("Runtime upgrade failed")
	return err
}

// outputUpgradeJSON emits the terminal report as a single JSON object on
// stdout.
func outputUpgradeJSON(result *upgrade.UpgradeResult, err error) error {
	report := UpgradeResultJSON{
		Status:         "success",
		ExtrinsicIndex: -1,
	}
	if err != nil {
		report.Status = "failed"
		report.Outcome = string(upgrade.OutcomeFailed)
		report.Error = err.Error()
	}
	if result != nil {
		report.RunID = result.RunID
		report.Outcome = string(result.Outcome)
		report.Signer = result.Signer
		report.CodeHash = result.CodeHash
		report.CodeSize = result.CodeSize
		report.TxHash = result.TxHash
		report.BlockHash = result.BlockHash
		report.ExtrinsicIndex = result.ExtrinsicIndex
		report.Attempts = result.Attempts
		report.Rebuilds = result.Rebuilds
		report.Duration = result.Duration.Round(time.Millisecond).String()
	}

	data, marshalErr := json.MarshalIndent(report, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal result: %w", marshalErr)
	}
	fmt.Println(string(data))
	return nil
}
