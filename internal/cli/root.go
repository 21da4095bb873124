// Package cli wires the recorder's cobra commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "g4recorder",
	Short: "Recording-to-workflow compiler for the G4 automation engine",
	Long:  "Subscribes to interaction events captured on remote machines, buffers them per connection, and compiles a recording into an executable automation document handed to the workflow designer.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
