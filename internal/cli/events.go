package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcptap/mcptap/internal/export"
)

var tailLines int

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsVerifyCmd)
	eventsCmd.AddCommand(eventsTailCmd)
	eventsTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent events to show")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Event log operations",
	Long:  "Commands for verifying and inspecting the hash-chained event log.",
}

var eventsVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of an event log",
	Long:  "Walks the JSONL event log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsVerify,
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Show recent events",
	Long:  "Reads the last N entries from the JSONL event log and pretty-prints them.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsTail,
}

func runEventsVerify(cmd *cobra.Command, args []string) error {
	result := export.Verify(args[0])
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runEventsTail(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event log: %w", err)
	}

	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}

	for _, line := range lines[start:] {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Println(line)
			continue
		}
		out, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}
