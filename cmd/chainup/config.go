package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/chainup/internal/config"
	"github.com/altuslabsxyz/chainup/internal/output"
)

var configInitForce bool

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the chainup configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config.toml with the current settings",
		Long: `Write config.toml under the chainup home directory.

Settings already resolved from an existing config file are carried over;
everything else is written as a commented-out default so the file documents
the available keys.

Examples:
  # Create ~/.chainup/config.toml
  chainup config init

  # Overwrite an existing file
  chainup config init --force`,
		RunE: runConfigInit,
	}
	cmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	writer := config.NewConfigWriter(homeDir)

	if writer.Exists() && !configInitForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", writer.Path())
	}

	fileCfg := loadedFileConfig
	if fileCfg == nil {
		fileCfg = &config.FileConfig{}
	}
	if err := writer.Write(fileCfg); err != nil {
		return err
	}

	output.Success("Wrote %s", writer.Path())
	output.Info("Edit the file or override any value with flags; run 'chainup config show' to see the result.")
	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration and where each value came from",
		Long: `Display every setting after merging defaults, config files, environment
variables, and flags. The SOURCE column names the layer that won.`,
		RunE: runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := buildEffectiveConfig(cmd)

	if jsonMode {
		data, err := json.MarshalIndent(map[string]any{
			"home":               cfg.Home.Value,
			"verbose":            cfg.Verbose.Value,
			"json":               cfg.JSON.Value,
			"no_color":           cfg.NoColor.Value,
			"node_url":           cfg.NodeURL.Value,
			"network_id":         cfg.NetworkID.Value,
			"key_dir":            cfg.KeyDir.Value,
			"key_name":           cfg.KeyName.Value,
			"timeout_seconds":    cfg.TimeoutSeconds.Value,
			"era_period":         cfg.EraPeriod.Value,
			"min_balance_tokens": cfg.MinBalanceTokens.Value,
			"config_file":        cfg.ConfigFilePath,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	cfg.ToTable(os.Stdout)

	if cfg.ConfigFilePath != "" {
		fmt.Printf("\nConfig file: %s\n", cfg.ConfigFilePath)
	} else {
		fmt.Println("\nNo config file loaded")
	}
	return nil
}

// buildEffectiveConfig resolves the full priority chain for display. Flag
// lookups go through the root command so persistent flags resolve no
// matter which subcommand asked.
func buildEffectiveConfig(cmd *cobra.Command) *config.EffectiveConfig {
	root := cmd.Root()
	fileCfg := loadedFileConfig
	if fileCfg == nil {
		fileCfg = &config.FileConfig{}
	}

	cfg := config.NewEffectiveConfig(homeDir)

	cfg.Home.Value = homeDir
	if root.PersistentFlags().Changed("home") {
		cfg.Home.Source = config.SourceFlag
	} else if os.Getenv("CHAINUP_HOME") != "" {
		cfg.Home.Source = config.SourceEnvironment
	}

	cfg.Verbose.Value, cfg.Verbose.Source = config.ApplyFileValue(root, "verbose", verbose, fileCfg.Verbose)
	cfg.JSON.Value, cfg.JSON.Source = config.ApplyFileValue(root, "json", jsonMode, fileCfg.JSON)

	cfg.NoColor.Value, cfg.NoColor.Source = config.ApplyFileValue(root, "no-color", noColor, fileCfg.NoColor)
	cfg.NoColor.Value, cfg.NoColor.Source = config.ApplyEnvSet(root, "no-color", cfg.NoColor.Value, os.Getenv("NO_COLOR") != "", cfg.NoColor.Source)

	if fileCfg.NodeURL != nil {
		cfg.NodeURL = config.Value[string]{Value: *fileCfg.NodeURL, Source: config.SourceConfigFile}
	}
	if env := os.Getenv("CHAINUP_NODE_URL"); env != "" {
		cfg.NodeURL = config.Value[string]{Value: env, Source: config.SourceEnvironment}
	}
	if fileCfg.NetworkID != nil {
		cfg.NetworkID = config.Value[uint16]{Value: *fileCfg.NetworkID, Source: config.SourceConfigFile}
	}
	if fileCfg.KeyDir != nil {
		cfg.KeyDir = config.Value[string]{Value: *fileCfg.KeyDir, Source: config.SourceConfigFile}
	}
	if fileCfg.KeyName != nil {
		cfg.KeyName = config.Value[string]{Value: *fileCfg.KeyName, Source: config.SourceConfigFile}
	}
	if fileCfg.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = config.Value[int]{Value: *fileCfg.TimeoutSeconds, Source: config.SourceConfigFile}
	}
	if fileCfg.EraPeriod != nil {
		cfg.EraPeriod = config.Value[uint64]{Value: *fileCfg.EraPeriod, Source: config.SourceConfigFile}
	}
	if fileCfg.MinBalanceTokens != nil {
		cfg.MinBalanceTokens = config.Value[int64]{Value: *fileCfg.MinBalanceTokens, Source: config.SourceConfigFile}
	}

	cfg.ConfigFilePath = configFilePathLoaded()
	return cfg
}

// configFilePathLoaded re-runs the loader's search to name the primary
// config file for display. The contents were already merged at startup.
func configFilePathLoaded() string {
	loader := config.NewConfigLoader(homeDir, configPath, nil)
	_, path, err := loader.LoadFileConfig()
	if err != nil {
		return ""
	}
	return path
}
