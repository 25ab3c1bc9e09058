// Package truncate enforces the hard byte ceiling on serialized events.
// Most events are small and pass through untouched; oversized ones go
// through an iterative convergence loop that re-normalizes the original
// payload under monotonically tightening limits until the serialized form
// fits. A single fixed-limit pass is not enough: thousands of medium strings
// or megabyte-scale single fields can keep an event over the ceiling through
// breadth and nesting alone.
package truncate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/mcptap/mcptap/internal/debuglog"
	"github.com/mcptap/mcptap/internal/event"
)

const (
	// MaxEventBytes is the ceiling on a serialized event.
	MaxEventBytes = 102_400

	// MaxStringBytes is the starting per-string byte limit.
	MaxStringBytes = 10_240

	// MaxDepth is the starting nesting limit for mappings and sequences.
	MaxDepth = 5

	// MinDepth is the floor for the nesting limit. Going lower would let a
	// structured top-level field such as parameters collapse into a string
	// marker, which is invalid for a field whose declared shape is a mapping.
	MinDepth = 1

	// MaxBreadth is the starting per-container item limit.
	MaxBreadth = 500

	// MinBreadth is the floor for the item limit, the fallback lever once
	// the depth limit has bottomed out.
	MinBreadth = 10
)

// CircularMarker replaces a value that recurs on its own traversal path.
const CircularMarker = "[circular reference]"

func depthMarker(limit int) string {
	return fmt.Sprintf("[nested content truncated by mcptap at depth %d]", limit)
}

func breadthMarker(dropped int) string {
	return fmt.Sprintf("[... %d more items truncated by mcptap]", dropped)
}

func stringMarker(originalBytes int) string {
	return fmt.Sprintf("[string truncated by mcptap from %d bytes]", originalBytes)
}

// limits is the per-attempt state of the convergence loop.
type limits struct {
	depth       int
	stringBytes int
	breadth     int
}

func startLimits() limits {
	return limits{depth: MaxDepth, stringBytes: MaxStringBytes, breadth: MaxBreadth}
}

// tighten produces the next, strictly stricter limit set. Breadth is only
// reduced once depth has reached its floor.
func (l limits) tighten() limits {
	next := l
	if next.depth > MinDepth {
		next.depth--
	}
	next.stringBytes /= 2
	if next.stringBytes < 1 {
		next.stringBytes = 1
	}
	if next.depth == MinDepth {
		next.breadth /= 2
		if next.breadth < MinBreadth {
			next.breadth = MinBreadth
		}
	}
	return next
}

// Event returns a version of ev whose serialization fits MaxEventBytes.
// Events already under the limit are returned as-is (same pointer, no copy).
// If bounding fails outright the original event is returned unchanged:
// an oversized well-formed event beats a crash.
func Event(ev *event.UnredactedEvent, log *debuglog.Logger) *event.UnredactedEvent {
	if ev == nil {
		return nil
	}
	if log == nil {
		log = debuglog.Nop()
	}

	serialized, err := json.Marshal(ev)
	if err != nil {
		log.Printf("truncate: cannot serialize event %s: %v", ev.ID, err)
		return ev
	}
	if len(serialized) <= MaxEventBytes {
		return ev
	}

	log.Printf("truncate: event %s exceeds %d bytes (%d bytes), truncating",
		ev.ID, MaxEventBytes, len(serialized))

	var best *event.UnredactedEvent
	bestSize := len(serialized)

	lim := startLimits()
	for {
		candidate, size, err := attempt(ev, serialized, lim)
		if err != nil {
			log.Printf("truncate: attempt failed for event %s: %v", ev.ID, err)
			return ev
		}
		if size <= MaxEventBytes {
			return candidate
		}
		if size < bestSize {
			best, bestSize = candidate, size
		}

		if lim.stringBytes <= 1 {
			// Limits have bottomed out; soft guarantee only.
			log.Printf("truncate: event %s still %d bytes at limit floor, returning best effort",
				ev.ID, bestSize)
			if best == nil {
				return ev
			}
			return best
		}

		log.Printf("truncate: event %s still %d bytes at depth=%d string_limit=%d breadth=%d, tightening",
			ev.ID, size, lim.depth, lim.stringBytes, lim.breadth)
		lim = lim.tighten()
	}
}

// attempt normalizes a fresh copy of the original event under lim and
// reports the candidate's serialized size. Starting from the pristine
// serialized form each time avoids compounding truncation markers across
// iterations.
func attempt(ev *event.UnredactedEvent, serialized []byte, lim limits) (*event.UnredactedEvent, int, error) {
	var tree map[string]any
	if err := json.Unmarshal(serialized, &tree); err != nil {
		return nil, 0, fmt.Errorf("decode original: %w", err)
	}

	candidate := *ev
	candidate.Parameters = truncateTopLevelMap(tree["parameters"], lim)
	candidate.Response = truncateTopLevelMap(tree["response"], lim)
	candidate.IdentifyData = truncateTopLevelMap(tree["identify_data"], lim)
	candidate.Error = truncateErrorData(ev.Error, lim)
	candidate.UserIntent = truncateString(ev.UserIntent, lim.stringBytes)
	candidate.ResourceName = truncateString(ev.ResourceName, lim.stringBytes)

	out, err := json.Marshal(&candidate)
	if err != nil {
		return nil, 0, fmt.Errorf("serialize candidate: %w", err)
	}
	// Validate the candidate still decodes as an event before offering it.
	var check event.UnredactedEvent
	if err := json.Unmarshal(out, &check); err != nil {
		return nil, 0, fmt.Errorf("candidate lost event shape: %w", err)
	}
	return &candidate, len(out), nil
}

// truncateTopLevelMap bounds one structured top-level field. The field
// itself always survives as a mapping; only nested content may collapse
// into markers.
func truncateTopLevelMap(v any, lim limits) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	seen := make(map[uintptr]bool)
	out, _ := walkValue(m, lim, 0, seen).(map[string]any)
	return out
}

// truncateErrorData bounds the typed error field without disturbing its
// declared shape: strings are cut to the limit, frame and chain lists are
// breadth-capped, nothing becomes a marker of a different type.
func truncateErrorData(e *event.ErrorData, lim limits) *event.ErrorData {
	if e == nil {
		return nil
	}
	out := *e
	out.Message = truncateString(e.Message, lim.stringBytes)
	out.Stack = truncateString(e.Stack, lim.stringBytes)
	out.Frames = truncateFrames(e.Frames, lim)
	if len(e.ChainedErrors) > 0 {
		n := len(e.ChainedErrors)
		if n > lim.breadth {
			n = lim.breadth
		}
		chained := make([]event.ChainedErrorData, n)
		for i := 0; i < n; i++ {
			ce := e.ChainedErrors[i]
			ce.Message = truncateString(ce.Message, lim.stringBytes)
			ce.Stack = truncateString(ce.Stack, lim.stringBytes)
			ce.Frames = truncateFrames(ce.Frames, lim)
			chained[i] = ce
		}
		out.ChainedErrors = chained
	}
	return &out
}

func truncateFrames(frames []event.StackFrame, lim limits) []event.StackFrame {
	if len(frames) == 0 {
		return nil
	}
	n := len(frames)
	if n > lim.breadth {
		n = lim.breadth
	}
	out := make([]event.StackFrame, n)
	for i := 0; i < n; i++ {
		f := frames[i]
		f.ContextLine = truncateString(f.ContextLine, lim.stringBytes)
		out[i] = f
	}
	return out
}

// Value applies the default limits to an arbitrary value. This is the
// normalization core the event loop drives with progressively tighter
// limits; exposed for direct use and tests.
func Value(v any) any {
	return ValueWithLimits(v, MaxDepth, MaxStringBytes, MaxBreadth)
}

// ValueWithLimits normalizes v under explicit limits.
func ValueWithLimits(v any, maxDepth, maxStringBytes, maxBreadth int) any {
	lim := limits{depth: maxDepth, stringBytes: maxStringBytes, breadth: maxBreadth}
	seen := make(map[uintptr]bool)
	return walkValue(v, lim, 0, seen)
}

// walkValue normalizes one node at the given depth. seen holds the identity
// of every composite currently on the traversal path: revisiting one is a
// true cycle, while the same value reachable via two sibling branches is
// rendered in full both times.
func walkValue(v any, lim limits, depth int, seen map[uintptr]bool) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return t
	case time.Time:
		return t
	case string:
		return truncateString(t, lim.stringBytes)
	case map[string]any:
		return walkMap(t, lim, depth, seen)
	case []any:
		return walkSlice(t, lim, depth, seen)
	default:
		// Unknown shape: render and bound its string form.
		return truncateString(fmt.Sprintf("%v", t), lim.stringBytes)
	}
}

func walkMap(m map[string]any, lim limits, depth int, seen map[uintptr]bool) any {
	id := reflect.ValueOf(m).Pointer()
	if seen[id] {
		return CircularMarker
	}
	seen[id] = true
	defer delete(seen, id)

	result := make(map[string]any, len(m))
	emitted := 0
	for _, k := range sortedKeys(m) {
		if emitted >= lim.breadth {
			result["__truncated__"] = breadthMarker(len(m) - lim.breadth)
			break
		}
		result[k] = walkEntry(m[k], lim, depth, seen)
		emitted++
	}
	return result
}

func walkSlice(s []any, lim limits, depth int, seen map[uintptr]bool) any {
	if len(s) > 0 {
		id := reflect.ValueOf(s).Pointer()
		if seen[id] {
			return CircularMarker
		}
		seen[id] = true
		defer delete(seen, id)
	}

	n := len(s)
	capped := n > lim.breadth
	if capped {
		n = lim.breadth
	}
	result := make([]any, 0, n+1)
	for i := 0; i < n; i++ {
		result = append(result, walkEntry(s[i], lim, depth, seen))
	}
	if capped {
		result = append(result, breadthMarker(len(s)-lim.breadth))
	}
	return result
}

// walkEntry handles one retained container entry: composite values that
// would land at the depth limit become markers instead of being descended
// into; everything else recurses with depth incremented.
func walkEntry(v any, lim limits, depth int, seen map[uintptr]bool) any {
	if isComposite(v) && depth+1 >= lim.depth {
		// A cycle is still a cycle even at the depth limit.
		if onPath(v, seen) {
			return CircularMarker
		}
		return depthMarker(lim.depth)
	}
	return walkValue(v, lim, depth+1, seen)
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

func onPath(v any, seen map[uintptr]bool) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return seen[rv.Pointer()]
	default:
		return false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateString cuts a string to fit maxBytes, appending a marker naming
// the original size. Sizes are measured in encoded bytes, not characters,
// and the cut never leaves a broken multi-byte sequence behind.
func truncateString(s string, maxBytes int) string {
	byteSize := len(s)
	if byteSize <= maxBytes {
		return s
	}

	marker := stringMarker(byteSize)
	keep := maxBytes - len(marker)
	if keep <= 0 {
		return marker
	}

	cut := s[:keep]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + marker
}
