package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/altuslabsxyz/chainup/internal/output"
)

// LocalConfigFile is the project-local config file searched for in the
// working directory.
const LocalConfigFile = "chainup.toml"

// ConfigLoader is responsible for loading and merging configuration.
type ConfigLoader struct {
	homeDir    string
	configPath string // Explicit --config path
	logger     *output.Logger
}

// NewConfigLoader creates a new ConfigLoader.
func NewConfigLoader(homeDir, configPath string, logger *output.Logger) *ConfigLoader {
	return &ConfigLoader{
		homeDir:    homeDir,
		configPath: configPath,
		logger:     logger,
	}
}

// LoadFileConfig loads and parses config files, merging them in priority order.
// Priority: explicit path > ./chainup.toml > <home>/config.toml.
// All config files are merged, with higher priority values overwriting lower ones.
// Returns the merged FileConfig and the primary (highest priority) config file path.
func (l *ConfigLoader) LoadFileConfig() (*FileConfig, string, error) {
	// Collect all config files in order of increasing priority
	var configFiles []string

	// 3. Home directory (lowest priority)
	homePath := filepath.Join(l.homeDir, "config.toml")
	if _, err := os.Stat(homePath); err == nil {
		configFiles = append(configFiles, homePath)
	}

	// 2. Current directory
	if _, err := os.Stat(LocalConfigFile); err == nil {
		if absPath, _ := filepath.Abs(LocalConfigFile); absPath != homePath {
			configFiles = append(configFiles, LocalConfigFile)
		}
	}

	// 1. Explicit path (highest priority)
	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", l.configPath)
		}
		// Don't add duplicates
		absPath, _ := filepath.Abs(l.configPath)
		isDuplicate := false
		for _, cf := range configFiles {
			if abs, _ := filepath.Abs(cf); abs == absPath {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			configFiles = append(configFiles, l.configPath)
		}
	}

	if len(configFiles) == 0 {
		// No config file found - return empty config
		return &FileConfig{}, "", nil
	}

	// Load and merge all configs (later files override earlier ones)
	var merged FileConfig
	var primaryFile string
	for _, configFile := range configFiles {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}

		var cfg FileConfig
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}

		// Merge: only set values that are not nil in cfg
		mergeFileConfig(&merged, &cfg)
		primaryFile = configFile

		// Warn about unknown keys
		l.warnUnknownKeys(data)

		if l.logger != nil {
			l.logger.Debug("Loaded config file: %s", configFile)
		}
	}

	// Validate merged config
	if err := merged.Validate(); err != nil {
		return nil, "", fmt.Errorf("config validation failed: %w", err)
	}

	return &merged, primaryFile, nil
}

// mergeFileConfig merges src into dst. Non-nil values in src overwrite dst.
func mergeFileConfig(dst, src *FileConfig) {
	if src.NoColor != nil {
		dst.NoColor = src.NoColor
	}
	if src.Verbose != nil {
		dst.Verbose = src.Verbose
	}
	if src.JSON != nil {
		dst.JSON = src.JSON
	}
	if src.NodeURL != nil {
		dst.NodeURL = src.NodeURL
	}
	if src.NetworkID != nil {
		dst.NetworkID = src.NetworkID
	}
	if src.KeyDir != nil {
		dst.KeyDir = src.KeyDir
	}
	if src.KeyName != nil {
		dst.KeyName = src.KeyName
	}
	if src.TimeoutSeconds != nil {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if src.EraPeriod != nil {
		dst.EraPeriod = src.EraPeriod
	}
	if src.MinBalanceTokens != nil {
		dst.MinBalanceTokens = src.MinBalanceTokens
	}
}

// warnUnknownKeys checks for unknown keys in the config file and logs warnings.
func (l *ConfigLoader) warnUnknownKeys(data []byte) {
	if l.logger == nil {
		return
	}

	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return // Ignore errors here - main parsing will catch them
	}

	knownKeys := map[string]bool{
		"no_color":           true,
		"verbose":            true,
		"json":               true,
		"node_url":           true,
		"network_id":         true,
		"key_dir":            true,
		"key_name":           true,
		"timeout_seconds":    true,
		"era_period":         true,
		"min_balance_tokens": true,
	}

	for key := range raw {
		if !knownKeys[key] {
			l.logger.Warn("Unknown config key: %s", key)
		}
	}
}
