package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/mcptap/mcptap/internal/config"
	"github.com/mcptap/mcptap/internal/debuglog"
	"github.com/mcptap/mcptap/internal/export"
	"github.com/mcptap/mcptap/internal/queue"
	"github.com/mcptap/mcptap/internal/track"
)

var (
	serveConfig   string
	serveProject  string
	serveEventLog string
	serveConsole  bool
	serveDebug    bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to mcptap YAML config (hot-reloaded)")
	serveCmd.Flags().StringVar(&serveProject, "project", "", "Project identifier stamped on every event")
	serveCmd.Flags().StringVar(&serveEventLog, "event-log", "", "Path to hash-chained JSONL event log")
	serveCmd.Flags().BoolVar(&serveConsole, "console", false, "Mirror exported events to stderr")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable the debug log")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the instrumented demo MCP server over stdio",
	Long:  "Starts a small todo MCP server with every tool wrapped by the telemetry tap.\nTool calls, errors and panics flow through the sanitize/truncate pipeline and\nout to the configured exporters.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	opts, err := config.Load(serveConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("project") {
		opts.ProjectID = serveProject
	}
	if cmd.Flags().Changed("event-log") {
		opts.EventLog = serveEventLog
	}
	if cmd.Flags().Changed("console") {
		opts.Console = serveConsole
	}
	if cmd.Flags().Changed("debug") {
		opts.Debug = serveDebug
	}

	log := debuglog.New(opts.LogPath, opts.Debug)
	traces := export.NewTraceContext()

	var exporters []export.Exporter
	if opts.EventLog != "" {
		jsonl, err := export.OpenJSONL(opts.EventLog, traces)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		exporters = append(exporters, jsonl)
	}
	if opts.Console {
		exporters = append(exporters, export.NewConsoleExporter(os.Stderr, traces))
	}

	q := queue.New(opts.QueueSize, opts.ProjectID, log, exporters...)
	defer q.Close()

	impl := &mcp.Implementation{Name: "mcptap-demo", Version: track.Version}
	server := mcp.NewServer(impl, nil)
	tap := track.New(impl, opts, q, log)

	registerDemoTools(tap, server)
	track.RegisterReportMissing(tap, server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down mcptap server...")
		cancel()
	}()

	if serveConfig != "" {
		reloader, err := config.NewReloader(serveConfig, func(o config.Options) {
			log.SetEnabled(o.Debug)
			log.Printf("config reloaded from %s", serveConfig)
		})
		if err != nil {
			log.Printf("config watch disabled: %v", err)
		} else {
			go reloader.Run(ctx)
		}
	}

	fmt.Fprintf(os.Stderr, "mcptap demo server running on stdio (session %s)\n", tap.SessionID())
	return server.Run(ctx, &mcp.StdioTransport{})
}
