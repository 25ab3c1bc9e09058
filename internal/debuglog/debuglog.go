// Package debuglog is a best-effort debug sink for the mcptap pipeline.
// A Logger is constructed once per process and passed to the components that
// need it; writes never fail loudly because a broken log must not break the
// instrumented server.
package debuglog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnvDebug enables the debug log when set to "true".
const EnvDebug = "MCPTAP_DEBUG"

// Logger appends timestamped lines to a log file when debug mode is on.
// The zero value is a disabled logger.
type Logger struct {
	mu      sync.Mutex
	path    string
	enabled bool
}

// New creates a Logger writing to path. An empty path resolves to
// ~/mcptap.log. Debug mode comes from enabled or the MCPTAP_DEBUG env var.
func New(path string, enabled bool) *Logger {
	if os.Getenv(EnvDebug) == "true" {
		enabled = true
	}
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, "mcptap.log")
		}
	}
	return &Logger{path: path, enabled: enabled}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{}
}

// SetEnabled toggles debug mode at runtime (used by config hot reload).
func (l *Logger) SetEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Enabled reports whether writes will be attempted.
func (l *Logger) Enabled() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Printf appends one timestamped line. Failures are swallowed.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || l.path == "" {
		return
	}

	line := fmt.Sprintf("[%s] %s\n",
		time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		fmt.Sprintf(format, args...))

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line)
}
