package export

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// maxTraceSessions bounds the session map for long-running servers; crossing
// it drops the oldest half.
const maxTraceSessions = 1000

// TraceContext hands out one stable trace ID per session so all of a
// session's events correlate in downstream tooling, plus a fresh span ID
// per event.
type TraceContext struct {
	mu       sync.Mutex
	sessions map[string]string
	order    []string
}

// NewTraceContext creates an empty trace context.
func NewTraceContext() *TraceContext {
	return &TraceContext{sessions: make(map[string]string)}
}

// TraceID returns the trace ID for a session, creating one on first use.
// An empty session ID gets a throwaway random trace ID.
func (t *TraceContext) TraceID(sessionID string) string {
	if sessionID == "" {
		return randomHex(16)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.sessions[sessionID]; ok {
		return id
	}
	if len(t.sessions) >= maxTraceSessions {
		drop := t.order[:len(t.order)/2]
		for _, s := range drop {
			delete(t.sessions, s)
		}
		t.order = append([]string(nil), t.order[len(drop):]...)
	}

	id := randomHex(16)
	t.sessions[sessionID] = id
	t.order = append(t.order, sessionID)
	return id
}

// NewSpanID returns a fresh random span ID.
func (t *TraceContext) NewSpanID() string {
	return randomHex(8)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
