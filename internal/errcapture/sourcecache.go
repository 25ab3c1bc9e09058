package errcapture

import (
	"os"
	"strings"
	"sync"
)

// maxCachedFiles bounds the cache; crossing it drops everything, which is
// cheap and good enough for the handful of files an error trace touches.
const maxCachedFiles = 64

// maxSourceFileBytes skips caching generated monsters.
const maxSourceFileBytes = 1 << 20

// sourceCache is a linecache-style reader: each file is read once and split
// into lines, so repeated frames in the same file cost one stat.
type sourceCache struct {
	mu    sync.Mutex
	files map[string][]string
}

func newSourceCache() *sourceCache {
	return &sourceCache{files: make(map[string][]string)}
}

// Line returns the 1-based source line at lineno, or "" when the file is
// unreadable, the line number is out of range, or the line is empty.
// It never fails.
func (c *sourceCache) Line(path string, lineno int) string {
	if path == "" || lineno <= 0 {
		return ""
	}

	c.mu.Lock()
	lines, ok := c.files[path]
	c.mu.Unlock()

	if !ok {
		lines = readLines(path)
		c.mu.Lock()
		if len(c.files) >= maxCachedFiles {
			c.files = make(map[string][]string)
		}
		c.files[path] = lines
		c.mu.Unlock()
	}

	if lineno > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[lineno-1], "\r\n")
}

// readLines returns the file's lines, or nil on any failure. A nil entry is
// cached too so missing files are not re-stat'd per frame.
func readLines(path string) []string {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxSourceFileBytes {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return strings.SplitAfter(string(data), "\n")
}
