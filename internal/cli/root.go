package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mcptap",
	Short: "Telemetry tap for MCP servers",
	Long:  "Captures MCP tool calls as structured events — exceptions with stack traces,\nbinary content redaction, bounded payloads — and exports them as a hash-chained\nJSONL event log.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
