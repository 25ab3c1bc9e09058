// Package sanitize strips binary and non-text content from event payloads
// before size bounding: non-text response content blocks become redaction
// markers, and large base64-shaped strings anywhere in parameters or
// structured output are replaced wholesale. Redacting first keeps the
// truncator from spending its byte budget on data that should not be
// transmitted at all.
package sanitize

import (
	"fmt"
	"regexp"
	"time"

	"github.com/mcptap/mcptap/internal/event"
)

// Base64SizeThreshold is the minimum length at which a base64-alphabet
// string is treated as a binary blob. The gate exists precisely so ordinary
// long prose is never false-positive redacted.
const Base64SizeThreshold = 10_240

// base64Re may match non-base64 strings composed entirely of alphanumerics,
// but the size gate makes false positives unlikely in practice.
var base64Re = regexp.MustCompile(`^[A-Za-z0-9+/\n\r]+=*$`)

// Redaction markers.
const (
	ImageRedacted        = "[image content redacted - not supported by mcptap]"
	AudioRedacted        = "[audio content redacted - not supported by mcptap]"
	BlobResourceRedacted = "[binary resource content redacted - not supported by mcptap]"
	BinaryDataRedacted   = "[binary data redacted - not supported by mcptap]"
)

// UnsupportedTypeRedacted names the unrecognized content kind in its marker.
func UnsupportedTypeRedacted(typeName string) string {
	return fmt.Sprintf("[unsupported content type %q redacted - not supported by mcptap]", typeName)
}

// Event returns a sanitized deep copy of ev, or nil for nil. The input is
// never mutated: the un-redacted original may still be needed by the caller.
func Event(ev *event.UnredactedEvent) *event.UnredactedEvent {
	if ev == nil {
		return nil
	}

	out := *ev
	out.Response = sanitizeResponse(deepCopyMap(ev.Response))
	if ev.Parameters != nil {
		out.Parameters = scanForBase64(deepCopyMap(ev.Parameters)).(map[string]any)
	}
	return &out
}

// sanitizeResponse rewrites non-text content blocks and scans structured
// output for binary blobs. The response map is owned by the caller's copy.
func sanitizeResponse(response map[string]any) map[string]any {
	if response == nil {
		return nil
	}

	if content, ok := response["content"].([]any); ok {
		blocks := make([]any, len(content))
		for i, block := range content {
			blocks[i] = sanitizeContentBlock(block)
		}
		response["content"] = blocks
	}

	if sc, ok := response["structured_content"]; ok {
		response["structured_content"] = scanForBase64(sc)
	}

	return response
}

// sanitizeContentBlock classifies a single entry of response["content"].
// Text and bare resource links pass through; everything else becomes a
// single text block naming what was removed.
func sanitizeContentBlock(block any) any {
	m, ok := block.(map[string]any)
	if !ok {
		return block
	}

	blockType, _ := m["type"].(string)

	switch blockType {
	case "text", "resource_link":
		return m
	case "image":
		return textBlock(ImageRedacted)
	case "audio":
		return textBlock(AudioRedacted)
	case "resource":
		if resource, ok := m["resource"].(map[string]any); ok {
			if _, hasBlob := resource["blob"]; hasBlob {
				return textBlock(BlobResourceRedacted)
			}
		}
		// Text-only resource passes through.
		return m
	default:
		return textBlock(UnsupportedTypeRedacted(blockType))
	}
}

func textBlock(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

// scanForBase64 walks a value depth-first and replaces large base64 strings.
// Numbers, booleans, nil, and time values pass through untouched.
func scanForBase64(value any) any {
	switch v := value.(type) {
	case string:
		if len(v) >= Base64SizeThreshold && base64Re.MatchString(v) {
			return BinaryDataRedacted
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = scanForBase64(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = scanForBase64(item)
		}
		return out
	default:
		return v
	}
}

// deepCopyMap clones a JSON-shaped tree. Values that are neither maps,
// slices, nor scalars are shared, which is safe because nothing downstream
// mutates them.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	case time.Time:
		return t
	default:
		return t
	}
}
