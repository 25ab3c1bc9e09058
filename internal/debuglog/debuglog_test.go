package debuglog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrintfAppendsTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.log")
	l := New(path, true)

	l.Printf("first %d", 1)
	l.Printf("second %s", "line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[") || !strings.HasSuffix(lines[0], "first 1") {
		t.Fatalf("line format: %q", lines[0])
	}
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.log")
	l := New(path, false)
	l.Printf("dropped")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("disabled logger created a file")
	}
}

func TestSetEnabledTogglesAtRuntime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.log")
	l := New(path, false)
	l.Printf("before")
	l.SetEnabled(true)
	l.Printf("after")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "before") {
		t.Fatal("disabled write leaked")
	}
	if !strings.Contains(string(data), "after") {
		t.Fatal("enabled write missing")
	}
}

func TestEnvVarEnablesLogger(t *testing.T) {
	t.Setenv(EnvDebug, "true")
	path := filepath.Join(t.TempDir(), "tap.log")
	l := New(path, false)
	if !l.Enabled() {
		t.Fatal("env var did not enable logger")
	}
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	var l *Logger
	l.Printf("into the void")
	l.SetEnabled(true)
	if l.Enabled() {
		t.Fatal("nil logger reports enabled")
	}
	Nop().Printf("also fine")
}
