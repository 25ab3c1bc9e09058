// Package config loads mcptap options from a YAML file with environment
// overrides, and hot-reloads them when the file changes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options configures the tap pipeline.
type Options struct {
	// ProjectID identifies the destination project for exported events.
	ProjectID string `yaml:"project_id"`

	// Debug enables the best-effort debug log.
	Debug bool `yaml:"debug"`

	// LogPath overrides the debug log location (default ~/mcptap.log).
	LogPath string `yaml:"log_path"`

	// EventLog is the JSONL event log path; empty disables the file exporter.
	EventLog string `yaml:"event_log"`

	// Console mirrors exported events to stderr.
	Console bool `yaml:"console"`

	// QueueSize bounds the async event queue; overflow drops events.
	QueueSize int `yaml:"queue_size"`

	// EnableToolCallContext injects a "context" parameter into tracked tools
	// so callers can state their intent alongside the call.
	EnableToolCallContext bool `yaml:"enable_tool_call_context"`

	// EnableReportMissing registers the get_more_tools feedback tool.
	EnableReportMissing bool `yaml:"enable_report_missing"`
}

// Default returns the options used when no config file is present.
func Default() Options {
	return Options{
		QueueSize:             256,
		EnableToolCallContext: true,
		EnableReportMissing:   true,
	}
}

// Load reads options from a YAML file. A missing file yields defaults; a
// malformed one is an error. MCPTAP_PROJECT_ID overrides the file value.
func Load(path string) (Options, error) {
	opts := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return opts, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if id := os.Getenv("MCPTAP_PROJECT_ID"); id != "" {
		opts.ProjectID = id
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = Default().QueueSize
	}

	return opts, nil
}
