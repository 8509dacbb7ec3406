package config

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/altuslabsxyz/chainup/internal/upgrade"
)

// EffectiveConfig is the merged view after the full priority chain:
// defaults < config files < environment < flags.
type EffectiveConfig struct {
	// Global settings
	Home    Value[string]
	NoColor Value[bool]
	Verbose Value[bool]
	JSON    Value[bool]

	// Node connection
	NodeURL   Value[string]
	NetworkID Value[uint16]

	// Signer key lookup
	KeyDir  Value[string]
	KeyName Value[string]

	// Submission behavior
	TimeoutSeconds   Value[int]
	EraPeriod        Value[uint64]
	MinBalanceTokens Value[int64]

	// ConfigFilePath is the last config file that was merged, empty when
	// the run used defaults only.
	ConfigFilePath string
}

// NewEffectiveConfig returns the built-in defaults.
func NewEffectiveConfig(defaultHomeDir string) *EffectiveConfig {
	return &EffectiveConfig{
		Home:             DefaultValue(defaultHomeDir),
		NoColor:          DefaultValue(false),
		Verbose:          DefaultValue(false),
		JSON:             DefaultValue(false),
		NodeURL:          DefaultValue(upgrade.DefaultNodeURL),
		NetworkID:        DefaultValue(upgrade.DefaultNetworkID),
		KeyDir:           DefaultValue(upgrade.DefaultKeyDir),
		KeyName:          DefaultValue(""),
		TimeoutSeconds:   DefaultValue(upgrade.DefaultTimeoutSeconds),
		EraPeriod:        DefaultValue(upgrade.DefaultEraPeriod),
		MinBalanceTokens: DefaultValue[int64](upgrade.MinBalanceTokens),
	}
}

// ToTable writes the configuration as a formatted table.
func (c *EffectiveConfig) ToTable(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	fmt.Fprintf(tw, "home\t%s\t%s\n", c.Home.Value, c.Home.Source)
	fmt.Fprintf(tw, "no_color\t%t\t%s\n", c.NoColor.Value, c.NoColor.Source)
	fmt.Fprintf(tw, "verbose\t%t\t%s\n", c.Verbose.Value, c.Verbose.Source)
	fmt.Fprintf(tw, "json\t%t\t%s\n", c.JSON.Value, c.JSON.Source)
	fmt.Fprintf(tw, "node_url\t%s\t%s\n", c.NodeURL.Value, c.NodeURL.Source)
	fmt.Fprintf(tw, "network_id\t%d\t%s\n", c.NetworkID.Value, c.NetworkID.Source)
	fmt.Fprintf(tw, "key_dir\t%s\t%s\n", c.KeyDir.Value, c.KeyDir.Source)
	fmt.Fprintf(tw, "key_name\t%s\t%s\n", displayOrUnset(c.KeyName.Value), c.KeyName.Source)
	fmt.Fprintf(tw, "timeout_seconds\t%d\t%s\n", c.TimeoutSeconds.Value, c.TimeoutSeconds.Source)
	fmt.Fprintf(tw, "era_period\t%d\t%s\n", c.EraPeriod.Value, c.EraPeriod.Source)
	fmt.Fprintf(tw, "min_balance_tokens\t%d\t%s\n", c.MinBalanceTokens.Value, c.MinBalanceTokens.Source)
	tw.Flush()
}

func displayOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}
