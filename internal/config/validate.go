package config

import (
	"fmt"
	"strings"
)

// Validate rejects values no run could use. Unset fields are fine; the
// command layer supplies defaults for them.
func (f *FileConfig) Validate() error {
	if f.NodeURL != nil {
		url := strings.TrimSpace(*f.NodeURL)
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("node_url must be a ws:// or wss:// endpoint, got %q", *f.NodeURL)
		}
	}
	if f.TimeoutSeconds != nil && *f.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", *f.TimeoutSeconds)
	}
	if f.EraPeriod != nil && *f.EraPeriod == 0 {
		return fmt.Errorf("era_period must be positive")
	}
	if f.MinBalanceTokens != nil && *f.MinBalanceTokens < 0 {
		return fmt.Errorf("min_balance_tokens cannot be negative, got %d", *f.MinBalanceTokens)
	}
	if f.KeyDir != nil && strings.TrimSpace(*f.KeyDir) == "" {
		return fmt.Errorf("key_dir cannot be blank")
	}
	if f.KeyName != nil && strings.TrimSpace(*f.KeyName) == "" {
		return fmt.Errorf("key_name cannot be blank")
	}
	return nil
}
