// Package errcapture normalizes raised values of unknown shape into the
// portable ErrorData form. It never fails: worst case it degrades to a
// generic message with no type or trace.
package errcapture

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcptap/mcptap/internal/debuglog"
	"github.com/mcptap/mcptap/internal/event"
)

const (
	// MaxExceptionChainDepth caps how many cause links are unwound.
	MaxExceptionChainDepth = 10

	// MaxStackFrames caps how many frames are captured per error.
	MaxStackFrames = 50
)

// raisedKind is the closed set of shapes a raised value can classify into.
type raisedKind int

const (
	raisedStructured raisedKind = iota // a real error value
	raisedToolResult                   // a pre-serialized CallToolResult failure
	raisedOpaque                       // anything else that was "raised"
)

// Capturer converts raised values into ErrorData. Construct one per process;
// it is safe for concurrent use.
type Capturer struct {
	log     *debuglog.Logger
	sources *sourceCache
}

// New creates a Capturer with its own source-line cache.
func New(log *debuglog.Logger) *Capturer {
	if log == nil {
		log = debuglog.Nop()
	}
	return &Capturer{log: log, sources: newSourceCache()}
}

// classify decides which of the three capture paths applies to v.
func classify(v any) raisedKind {
	switch v.(type) {
	case *mcp.CallToolResult:
		return raisedToolResult
	case error:
		return raisedStructured
	default:
		return raisedOpaque
	}
}

// Capture produces an ErrorData for any raised value: a real error, a
// pre-serialized tool-failure result, or an arbitrary panic value. It never
// panics; pathological inputs (typed-nil errors and the like) degrade to a
// generic message.
func (c *Capturer) Capture(v any) (data *event.ErrorData) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("errcapture: capture degraded: %v", r)
			data = &event.ErrorData{
				Message:  fmt.Sprintf("unreportable raised value: %v", r),
				Platform: event.Platform,
			}
		}
	}()
	switch classify(v) {
	case raisedToolResult:
		return captureToolResult(v.(*mcp.CallToolResult))
	case raisedStructured:
		return c.captureError(v.(error))
	default:
		return &event.ErrorData{
			Message:  stringifyOpaque(v),
			Platform: event.Platform,
		}
	}
}

func (c *Capturer) captureError(err error) *event.ErrorData {
	data := &event.ErrorData{
		Message:  err.Error(),
		Type:     errorTypeName(err),
		Platform: event.Platform,
	}

	if pcs := callersOf(err); len(pcs) > 0 {
		data.Frames = c.parseFrames(pcs)
		data.Stack = formatStack(err, data.Frames)
	}

	if chain := c.unwrapChain(err); len(chain) > 0 {
		data.ChainedErrors = chain
	}

	return data
}

// unwrapChain follows cause links from err, outermost cause first. An error
// exposing an explicit Cause() link suppresses its implicit Unwrap() context,
// mirroring how wrapping libraries distinguish the two.
func (c *Capturer) unwrapChain(err error) []event.ChainedErrorData {
	var chain []event.ChainedErrorData
	seen := make(map[uintptr]bool)

	if id, ok := errIdentity(err); ok {
		seen[id] = true
	}

	current := err
	for depth := 0; depth < MaxExceptionChainDepth; depth++ {
		next := nextLink(current)
		if next == nil {
			break
		}

		if id, ok := errIdentity(next); ok {
			if seen[id] {
				break
			}
			seen[id] = true
		}

		entry := event.ChainedErrorData{
			Message: next.Error(),
			Type:    errorTypeName(next),
		}
		if pcs := callersOf(next); len(pcs) > 0 {
			entry.Frames = c.parseFrames(pcs)
			entry.Stack = formatStack(next, entry.Frames)
		}
		chain = append(chain, entry)
		current = next
	}

	return chain
}

// nextLink returns the next error in the chain: the explicit cause when one
// is declared, otherwise the implicit wrap context.
func nextLink(err error) error {
	if c, ok := err.(interface{ Cause() error }); ok {
		return c.Cause()
	}
	// Transparent trace wrappers are not chain links of their own.
	if t, ok := err.(*TracedError); ok {
		return nextLink(t.Err)
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	return nil
}

// errIdentity returns a stable identity for cycle detection. Only
// pointer-shaped errors can form cycles; value errors are copied on every
// hop and are reported as distinct links.
func errIdentity(err error) (uintptr, bool) {
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.Pointer(), true
	default:
		return 0, false
	}
}

// errorTypeName reports the concrete type of err without its pointer marker,
// e.g. "fs.PathError" or "errors.errorString".
func errorTypeName(err error) string {
	if t, ok := err.(*TracedError); ok {
		err = t.Err
	}
	name := reflect.TypeOf(err).String()
	return strings.TrimPrefix(name, "*")
}

// formatStack renders the human-readable multi-frame trace text. Falls back
// to "<type>: <message>" when no frames are available.
func formatStack(err error, frames []event.StackFrame) string {
	header := fmt.Sprintf("%s: %s", errorTypeName(err), err.Error())
	if len(frames) == 0 {
		return header
	}
	var b strings.Builder
	b.WriteString(header)
	for _, f := range frames {
		fmt.Fprintf(&b, "\n\tat %s (%s:%d)", f.Function, f.AbsPath, f.Lineno)
	}
	return b.String()
}

// captureToolResult extracts the error message from a pre-serialized tool
// failure. No stack trace exists for this shape by construction.
func captureToolResult(res *mcp.CallToolResult) *event.ErrorData {
	message := "Unknown error"

	var parts []string
	for _, block := range res.Content {
		if text, ok := block.(*mcp.TextContent); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) > 0 {
		message = strings.TrimSpace(strings.Join(parts, " "))
	}

	return &event.ErrorData{
		Message:  message,
		Platform: event.Platform,
	}
}

// stringifyOpaque converts a non-error raised value into a readable message.
// Strings pass through verbatim, primitives use their natural form, and
// structured values serialize to JSON with a %v fallback.
func stringifyOpaque(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return t
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprintf("%v", t)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
