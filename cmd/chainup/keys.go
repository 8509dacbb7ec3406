package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/chainup/internal/config"
	"github.com/altuslabsxyz/chainup/internal/keystore"
	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/internal/paths"
	"github.com/altuslabsxyz/chainup/internal/upgrade"
)

var keysListKeyDir string

// NewKeysCmd creates the keys command group.
func NewKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect the signer key store",
	}
	cmd.AddCommand(newKeysListCmd())
	return cmd
}

func newKeysListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List key names available for --key",
		Long: `List the key files chainup can sign with.

Only names are read; no key material is touched. The directory defaults to
the commune CLI's key store and can be changed with --key-dir or key_dir in
config.toml.`,
		RunE: runKeysList,
	}
	cmd.Flags().StringVar(&keysListKeyDir, "key-dir", upgrade.DefaultKeyDir, "Directory holding key files")
	return cmd
}

func runKeysList(cmd *cobra.Command, args []string) error {
	fileCfg := loadedFileConfig
	if fileCfg == nil {
		fileCfg = &config.FileConfig{}
	}
	keyDir, _ := config.ApplyFileValue(cmd, "key-dir", keysListKeyDir, fileCfg.KeyDir)

	expanded, err := paths.Expand(keyDir)
	if err != nil {
		return fmt.Errorf("resolve key directory: %w", err)
	}

	store, err := keystore.NewFileStore(expanded, upgrade.DefaultNetworkID, output.DefaultLogger)
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}

	if jsonMode {
		data, err := json.MarshalIndent(map[string]any{
			"key_dir": expanded,
			"keys":    names,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(names) == 0 {
		output.Info("No keys found in %s", expanded)
		return nil
	}
	output.Bold("Keys in %s:", expanded)
	for _, name := range names {
		output.Info("  %s", name)
	}
	return nil
}
