// Package export delivers finished events to their sinks. Exporters receive
// events that have already been sanitized and truncated; they never see raw
// payloads.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/mcptap/mcptap/internal/event"
)

// Exporter is one event sink. Export is called for every finished event;
// failures are logged by the caller and never retried.
type Exporter interface {
	Export(ev *event.Event) error
	Close() error
}

// ConsoleExporter writes one compact JSON line per event, prefixed with its
// trace correlation, to a writer (normally stderr).
type ConsoleExporter struct {
	mu     sync.Mutex
	w      io.Writer
	traces *TraceContext
}

// NewConsoleExporter creates a console sink sharing the given trace context.
func NewConsoleExporter(w io.Writer, traces *TraceContext) *ConsoleExporter {
	if traces == nil {
		traces = NewTraceContext()
	}
	return &ConsoleExporter{w: w, traces: traces}
}

func (c *ConsoleExporter) Export(ev *event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("export: marshal event: %w", err)
	}
	traceID := c.traces.TraceID(ev.SessionID)
	_, err = fmt.Fprintf(c.w, "mcptap trace=%s %s\n", traceID, data)
	return err
}

func (c *ConsoleExporter) Close() error { return nil }
