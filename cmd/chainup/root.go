package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/chainup/internal/config"
	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/internal/paths"
	"github.com/altuslabsxyz/chainup/internal/version"
)

// Global configuration variables
var (
	homeDir    string
	jsonMode   bool
	noColor    bool
	verbose    bool
	configPath string // Path to config.toml file (--config flag)

	// loadedFileConfig holds the merged config file values; empty when no
	// config file was found.
	loadedFileConfig *config.FileConfig
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chainup",
		Short: "Submit a Substrate runtime upgrade through the chain's sudo key",
		Long: `chainup submits a compiled runtime to a Substrate node as a sudo-wrapped
System.set_code call and waits for the extrinsic to land in a block.

The submission is built to survive the failure modes of a live network:
stale nonces and expired mortality windows trigger a rebuild from fresh
chain state, transient transport errors back off exponentially, and a
temporary ban from the node waits out the node's cooldown. One run is one
bounded attempt chain with a hard deadline; it either reports the block
that included the upgrade or a terminal failure.

Examples:
  # Submit a runtime upgrade signed by the "sudo" key
  chainup upgrade --key sudo --wasm-path ./runtime.compact.compressed.wasm

  # Target a specific node with a longer inclusion deadline
  chainup upgrade --key sudo --wasm-path ./runtime.wasm \
    --node-url wss://node.example:443 --timeout 600

  # Machine-readable result for CI pipelines
  chainup upgrade --key sudo --wasm-path ./runtime.wasm --yes --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewConfigLoader(homeDir, configPath, output.DefaultLogger)
			fileCfg, configFilePath, err := loader.LoadFileConfig()
			if err != nil {
				return err
			}
			if err := fileCfg.Validate(); err != nil {
				return err
			}
			loadedFileConfig = fileCfg

			// Priority: default < config.toml < environment < flag.
			if !cmd.Flags().Changed("verbose") && fileCfg.Verbose != nil {
				verbose = *fileCfg.Verbose
			}
			if !cmd.Flags().Changed("json") && fileCfg.JSON != nil {
				jsonMode = *fileCfg.JSON
			}
			if !cmd.Flags().Changed("no-color") && fileCfg.NoColor != nil {
				noColor = *fileCfg.NoColor
			}

			if envHome := os.Getenv("CHAINUP_HOME"); envHome != "" && !cmd.Flags().Changed("home") {
				homeDir = envHome
			}
			if os.Getenv("NO_COLOR") != "" && !cmd.Flags().Changed("no-color") {
				noColor = true
			}

			if configFilePath != "" {
				output.DefaultLogger.Debug("Using config file: %s", configFilePath)
			}

			output.DefaultLogger.SetNoColor(noColor)
			output.DefaultLogger.SetVerbose(verbose)
			output.DefaultLogger.SetJSONMode(jsonMode)

			return nil
		},
	}

	// Global flags available on all commands
	cmd.PersistentFlags().StringVarP(&homeDir, "home", "H", paths.DefaultHomeDir(),
		"Base directory for chainup configuration")
	cmd.PersistentFlags().BoolVar(&jsonMode, "json", false,
		"Output in JSON format")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config.toml file")

	cmd.AddCommand(NewUpgradeCmd())
	cmd.AddCommand(NewKeysCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(version.NewCmd("chainup"))

	return cmd
}
