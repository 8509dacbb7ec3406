// Package paths provides centralized path management for chainup.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// File name constants.
const (
	ConfigFile = "config.toml"
	KeyFileExt = ".json"
)

const DefaultHomeDirName = ".chainup"

// DefaultHomeDir returns $HOME/.chainup or falls back to current directory.
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultHomeDirName
	}
	return filepath.Join(home, DefaultHomeDirName)
}

// ConfigPath returns the config file path under homeDir.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, ConfigFile)
}

// KeyFilePath returns the key file path for name inside keyDir.
func KeyFilePath(keyDir, name string) string {
	return filepath.Join(keyDir, name+KeyFileExt)
}

// Expand resolves a leading "~" or "~/" to the user's home directory.
// Paths without the prefix are returned unchanged.
func Expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Path existence helpers

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
