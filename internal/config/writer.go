package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/altuslabsxyz/chainup/internal/paths"
	"github.com/altuslabsxyz/chainup/internal/upgrade"
)

// ConfigWriter handles writing configuration to homeDir/config.toml.
type ConfigWriter struct {
	homeDir string
}

// NewConfigWriter creates a new ConfigWriter for the given home directory.
func NewConfigWriter(homeDir string) *ConfigWriter {
	return &ConfigWriter{homeDir: homeDir}
}

// Path returns the full path to config.toml in homeDir.
func (w *ConfigWriter) Path() string {
	return filepath.Join(w.homeDir, paths.ConfigFile)
}

// Exists returns true if config.toml already exists in homeDir.
func (w *ConfigWriter) Exists() bool {
	_, err := os.Stat(w.Path())
	return err == nil
}

// Write saves the FileConfig to homeDir/config.toml, creating homeDir if
// needed. Unset fields are written as commented-out defaults so the file
// documents itself.
func (w *ConfigWriter) Write(cfg *FileConfig) error {
	if err := os.MkdirAll(w.homeDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.homeDir, err)
	}

	content := w.generateTOMLWithComments(cfg)
	if err := os.WriteFile(w.Path(), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (w *ConfigWriter) generateTOMLWithComments(cfg *FileConfig) string {
	var b strings.Builder

	b.WriteString("# chainup configuration file\n")
	b.WriteString("# Priority: default < config.toml < environment < CLI flag\n")
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# Location: %s\n", w.Path())
	b.WriteString("# Override with: --config /path/to/config.toml\n")
	b.WriteString("\n")

	section(&b, "Global Settings (apply to all commands)")

	if cfg.Verbose != nil && *cfg.Verbose {
		b.WriteString("verbose = true\n")
	} else {
		b.WriteString("# verbose = false\n")
	}

	if cfg.JSON != nil && *cfg.JSON {
		b.WriteString("json = true\n")
	} else {
		b.WriteString("# json = false\n")
	}

	if cfg.NoColor != nil && *cfg.NoColor {
		b.WriteString("no_color = true\n")
	} else {
		b.WriteString("# no_color = false\n")
	}

	b.WriteString("\n")
	section(&b, "Node Connection")

	if cfg.NodeURL != nil {
		fmt.Fprintf(&b, "node_url = %q\n", *cfg.NodeURL)
	} else {
		fmt.Fprintf(&b, "# node_url = %q\n", upgrade.DefaultNodeURL)
	}

	if cfg.NetworkID != nil {
		fmt.Fprintf(&b, "network_id = %d\n", *cfg.NetworkID)
	} else {
		fmt.Fprintf(&b, "# network_id = %d\n", upgrade.DefaultNetworkID)
	}

	b.WriteString("\n")
	section(&b, "Signer Key")

	if cfg.KeyDir != nil {
		fmt.Fprintf(&b, "key_dir = %q\n", *cfg.KeyDir)
	} else {
		fmt.Fprintf(&b, "# key_dir = %q\n", upgrade.DefaultKeyDir)
	}

	if cfg.KeyName != nil {
		fmt.Fprintf(&b, "key_name = %q\n", *cfg.KeyName)
	} else {
		b.WriteString("# key_name = \"\"\n")
	}

	b.WriteString("\n")
	section(&b, "Submission")

	if cfg.TimeoutSeconds != nil {
		fmt.Fprintf(&b, "timeout_seconds = %d\n", *cfg.TimeoutSeconds)
	} else {
		fmt.Fprintf(&b, "# timeout_seconds = %d\n", upgrade.DefaultTimeoutSeconds)
	}

	if cfg.EraPeriod != nil {
		fmt.Fprintf(&b, "era_period = %d\n", *cfg.EraPeriod)
	} else {
		fmt.Fprintf(&b, "# era_period = %d\n", upgrade.DefaultEraPeriod)
	}

	if cfg.MinBalanceTokens != nil {
		fmt.Fprintf(&b, "min_balance_tokens = %d\n", *cfg.MinBalanceTokens)
	} else {
		fmt.Fprintf(&b, "# min_balance_tokens = %d\n", upgrade.MinBalanceTokens)
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	line := strings.Repeat("=", 77)
	fmt.Fprintf(b, "# %s\n", line)
	fmt.Fprintf(b, "# %s\n", title)
	fmt.Fprintf(b, "# %s\n\n", line)
}
