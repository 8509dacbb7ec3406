package main

import (
	"os"

	"github.com/altuslabsxyz/chainup/internal/output"
)

func main() {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		// Cobra's own echo is silenced on the root command; this is the
		// one place a failure reaches stderr. In JSON mode the logger is
		// mute and the error already rode out in the report.
		output.Error("%v", err)
		os.Exit(1)
	}
}
