package errcapture

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitFunction(t *testing.T) {
	cases := []struct {
		name     string
		module   string
		function string
	}{
		{"github.com/acme/tool/internal/db.(*Store).Query", "github.com/acme/tool/internal/db", "(*Store).Query"},
		{"main.main", "main", "main"},
		{"runtime.gopanic", "runtime", "gopanic"},
		{"", "", "<unknown>"},
	}
	for _, tc := range cases {
		module, function := splitFunction(tc.name)
		if module != tc.module || function != tc.function {
			t.Errorf("splitFunction(%q) = %q, %q; want %q, %q",
				tc.name, module, function, tc.module, tc.function)
		}
	}
}

func TestIsInApp(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/home/me/project/main.go", true},
		{"/home/me/go/pkg/mod/github.com/x/y@v1.0.0/z.go", false},
		{"/home/me/project/vendor/github.com/x/y/z.go", false},
		{"/usr/local/lib/go1.25.7/src/fmt/print.go", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isInApp(tc.path); got != tc.want {
			t.Errorf("isInApp(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestFilenameForModule(t *testing.T) {
	cases := []struct {
		module  string
		absPath string
		want    string
	}{
		// Package path anchors inside the directory chain.
		{"github.com/acme/tool/internal/db", "/home/me/src/tool/internal/db/query.go", "tool/internal/db/query.go"},
		// Single-segment packages fall back to the base name.
		{"main", "/home/me/src/tool/cmd/tool/main.go", "main.go"},
		{"runtime", "/usr/local/go/src/runtime/panic.go", "panic.go"},
		// No anchor found: keep the absolute path.
		{"github.com/acme/other", "/tmp/scratch/x.go", "/tmp/scratch/x.go"},
		{"", "/tmp/x.go", "/tmp/x.go"},
	}
	for _, tc := range cases {
		if got := filenameForModule(tc.module, tc.absPath); got != tc.want {
			t.Errorf("filenameForModule(%q, %q) = %q, want %q",
				tc.module, tc.absPath, got, tc.want)
		}
	}
}

func TestSourceCacheReadsLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	content := "package sample\n\nfunc hello() {}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	cache := newSourceCache()
	if got := cache.Line(path, 1); got != "package sample" {
		t.Fatalf("line 1: %q", got)
	}
	if got := cache.Line(path, 3); got != "func hello() {}" {
		t.Fatalf("line 3: %q", got)
	}
	if got := cache.Line(path, 2); got != "" {
		t.Fatalf("blank line should be empty, got %q", got)
	}
	if got := cache.Line(path, 99); got != "" {
		t.Fatalf("out of range line: %q", got)
	}
}

func TestSourceCacheUnreadableFile(t *testing.T) {
	cache := newSourceCache()
	if got := cache.Line("/nonexistent/nope.go", 1); got != "" {
		t.Fatalf("expected empty line for unreadable file, got %q", got)
	}
	// Second lookup hits the negative cache; still empty, still no panic.
	if got := cache.Line("/nonexistent/nope.go", 1); got != "" {
		t.Fatalf("cached lookup: %q", got)
	}
}

func TestFrameCapAtFiftyFrames(t *testing.T) {
	var deep func(n int) error
	deep = func(n int) error {
		if n == 0 {
			return Trace(os.ErrNotExist)
		}
		return deep(n - 1)
	}
	data := newCapturer().Capture(deep(80))
	if len(data.Frames) != MaxStackFrames {
		t.Fatalf("expected %d frames, got %d", MaxStackFrames, len(data.Frames))
	}
}
