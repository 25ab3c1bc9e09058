package export

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mcptap/mcptap/internal/event"
)

// GenesisHash is the prev_hash for the first entry in a new event log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// logLine is one line of the event log. PrevHash is the hash of the
// previous line's JSON, forming a tamper-evident chain. encoding/json
// serializes map keys in sorted order, so hashing is reproducible.
type logLine struct {
	Timestamp string       `json:"ts"`
	TraceID   string       `json:"trace_id,omitempty"`
	SpanID    string       `json:"span_id,omitempty"`
	Event     *event.Event `json:"event"`
	PrevHash  string       `json:"prev_hash"`
}

// JSONLExporter appends events to a hash-chained JSONL file.
type JSONLExporter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	prevHash string
	traces   *TraceContext
}

// OpenJSONL opens (or creates) an event log for appending. An existing file
// is scanned to recover the chain tail.
func OpenJSONL(path string, traces *TraceContext) (*JSONLExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("export: create directory: %w", err)
	}

	prevHash := GenesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("export: read existing log: %w", err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = append(lastLine[:0], scanner.Bytes()...)
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("export: scan existing log: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("export: open file: %w", err)
	}

	if traces == nil {
		traces = NewTraceContext()
	}
	return &JSONLExporter{path: path, file: file, prevHash: prevHash, traces: traces}, nil
}

// Export appends one chained line for the event and syncs to disk.
func (j *JSONLExporter) Export(ev *event.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := logLine{
		Timestamp: ev.Timestamp,
		TraceID:   j.traces.TraceID(ev.SessionID),
		SpanID:    j.traces.NewSpanID(),
		Event:     ev,
		PrevHash:  j.prevHash,
	}
	if entry.Timestamp == "" {
		entry.Timestamp = event.UTCNowISO()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("export: marshal entry: %w", err)
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("export: write entry: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("export: sync: %w", err)
	}

	j.prevHash = HashLine(line)
	return nil
}

// Close flushes and closes the underlying file.
func (j *JSONLExporter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify reads a JSONL event log and validates the hash chain, reporting
// the first broken link if any.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	lineNum := 0
	var prevLine []byte

	for scanner.Scan() {
		lineNum++
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())

		var entry logLine
		if err := json.Unmarshal(line, &entry); err != nil {
			return VerifyResult{
				Error:     fmt.Sprintf("parse error: %v", err),
				ErrorLine: lineNum,
			}
		}

		if lineNum == 1 {
			if entry.PrevHash != GenesisHash {
				return VerifyResult{
					Error:     fmt.Sprintf("first entry prev_hash is %q, expected genesis hash", entry.PrevHash),
					ErrorLine: 1,
				}
			}
		} else if expected := HashLine(prevLine); entry.PrevHash != expected {
			return VerifyResult{
				Error:     fmt.Sprintf("hash mismatch: expected %s, got %s", expected, entry.PrevHash),
				ErrorLine: lineNum,
			}
		}

		prevLine = line
	}

	if err := scanner.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}
	return VerifyResult{Valid: true, Lines: lineNum}
}
