package config

// FileConfig represents the raw configuration file contents. All fields
// are pointers to distinguish "not set" from "set to zero/false"; unset
// fields fall back to flag defaults.
type FileConfig struct {
	// Global settings
	NoColor *bool `toml:"no_color"`
	Verbose *bool `toml:"verbose"`
	JSON    *bool `toml:"json"`

	// Node connection
	NodeURL   *string `toml:"node_url"`
	NetworkID *uint16 `toml:"network_id"`

	// Signer key store
	KeyDir  *string `toml:"key_dir"`
	KeyName *string `toml:"key_name"`

	// Submission behavior
	TimeoutSeconds   *int    `toml:"timeout_seconds"`
	EraPeriod        *uint64 `toml:"era_period"`
	MinBalanceTokens *int64  `toml:"min_balance_tokens"`
}

// IsEmpty returns true if no configuration values are set.
func (f *FileConfig) IsEmpty() bool {
	return f.NoColor == nil &&
		f.Verbose == nil &&
		f.JSON == nil &&
		f.NodeURL == nil &&
		f.NetworkID == nil &&
		f.KeyDir == nil &&
		f.KeyName == nil &&
		f.TimeoutSeconds == nil &&
		f.EraPeriod == nil &&
		f.MinBalanceTokens == nil
}
