// ABOUTME: Entry point for the tracker CLI
// ABOUTME: Runs the root command and exits non-zero on failure

package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
