package config

import "github.com/spf13/cobra"

// ApplyFileValue resolves one setting against the merged config file.
// A flag the user set explicitly wins; otherwise a value present in the
// file replaces the built-in default. currentValue is the flag-bound
// variable, which still holds the default when the flag was not given.
func ApplyFileValue[T any](cmd *cobra.Command, flagName string, currentValue T, fromFile *T) (T, ConfigSource) {
	if cmd.Flags().Changed(flagName) {
		return currentValue, SourceFlag
	}
	if fromFile != nil {
		return *fromFile, SourceConfigFile
	}
	return currentValue, SourceDefault
}

// ApplyEnvString layers an environment variable over an already-resolved
// value. Flags still win; a non-empty variable overrides the config file.
func ApplyEnvString(cmd *cobra.Command, flagName string, currentValue string, envValue string, currentSource ConfigSource) (string, ConfigSource) {
	if cmd.Flags().Changed(flagName) {
		return currentValue, SourceFlag
	}
	if envValue != "" {
		return envValue, SourceEnvironment
	}
	return currentValue, currentSource
}

// ApplyEnvSet force-enables a boolean when its environment variable is
// present with any value, the NO_COLOR convention.
func ApplyEnvSet(cmd *cobra.Command, flagName string, currentValue bool, envSet bool, currentSource ConfigSource) (bool, ConfigSource) {
	if cmd.Flags().Changed(flagName) {
		return currentValue, SourceFlag
	}
	if envSet {
		return true, SourceEnvironment
	}
	return currentValue, currentSource
}
