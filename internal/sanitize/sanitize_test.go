package sanitize

import (
	"reflect"
	"strings"
	"testing"

	"github.com/mcptap/mcptap/internal/event"
)

func textBlockOf(s string) map[string]any {
	return map[string]any{"type": "text", "text": s}
}

func TestNilEventReturnsNil(t *testing.T) {
	if got := Event(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestTextOnlyResponsePassesThrough(t *testing.T) {
	ev := &event.UnredactedEvent{Event: event.Event{
		Response: map[string]any{
			"content": []any{textBlockOf("hello"), textBlockOf("world")},
		},
	}}
	got := Event(ev)
	content := got.Response["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(content))
	}
	if !reflect.DeepEqual(content[0], textBlockOf("hello")) {
		t.Fatalf("text block altered: %v", content[0])
	}
}

func TestImageAndAudioBlocksRedacted(t *testing.T) {
	ev := &event.UnredactedEvent{Event: event.Event{
		Response: map[string]any{
			"content": []any{
				textBlockOf("caption"),
				map[string]any{"type": "image", "data": "iVBORw0KGgo...", "mimeType": "image/png"},
				map[string]any{"type": "audio", "data": "UklGRg...", "mimeType": "audio/wav"},
			},
		},
	}}
	got := Event(ev)
	content := got.Response["content"].([]any)

	if !reflect.DeepEqual(content[0], textBlockOf("caption")) {
		t.Fatalf("text block disturbed: %v", content[0])
	}
	if !reflect.DeepEqual(content[1], textBlockOf(ImageRedacted)) {
		t.Fatalf("image not redacted: %v", content[1])
	}
	if !reflect.DeepEqual(content[2], textBlockOf(AudioRedacted)) {
		t.Fatalf("audio not redacted: %v", content[2])
	}
}

func TestBlobResourceRedactedTextResourceKept(t *testing.T) {
	blobBlock := map[string]any{
		"type":     "resource",
		"resource": map[string]any{"uri": "file:///a.bin", "blob": "AAAA"},
	}
	textResource := map[string]any{
		"type":     "resource",
		"resource": map[string]any{"uri": "file:///a.txt", "text": "contents"},
	}
	ev := &event.UnredactedEvent{Event: event.Event{
		Response: map[string]any{"content": []any{blobBlock, textResource}},
	}}
	got := Event(ev)
	content := got.Response["content"].([]any)

	if !reflect.DeepEqual(content[0], textBlockOf(BlobResourceRedacted)) {
		t.Fatalf("blob resource not redacted: %v", content[0])
	}
	if !reflect.DeepEqual(content[1], textResource) {
		t.Fatalf("text resource disturbed: %v", content[1])
	}
}

func TestResourceLinkPassesThrough(t *testing.T) {
	link := map[string]any{"type": "resource_link", "uri": "file:///doc.md", "name": "doc"}
	ev := &event.UnredactedEvent{Event: event.Event{
		Response: map[string]any{"content": []any{link}},
	}}
	got := Event(ev)
	if !reflect.DeepEqual(got.Response["content"].([]any)[0], link) {
		t.Fatalf("resource link disturbed")
	}
}

func TestUnknownContentTypeNamedInMarker(t *testing.T) {
	ev := &event.UnredactedEvent{Event: event.Event{
		Response: map[string]any{
			"content": []any{map[string]any{"type": "video", "data": "..."}},
		},
	}}
	got := Event(ev)
	block := got.Response["content"].([]any)[0].(map[string]any)
	text := block["text"].(string)
	if !strings.Contains(text, `"video"`) {
		t.Fatalf("marker does not name the content type: %q", text)
	}
}

func TestBase64ThresholdBoundary(t *testing.T) {
	under := strings.Repeat("A", Base64SizeThreshold-1)
	at := strings.Repeat("A", Base64SizeThreshold)

	ev := &event.UnredactedEvent{Event: event.Event{
		Parameters: map[string]any{"under": under, "at": at},
	}}
	got := Event(ev)

	if got.Parameters["under"] != under {
		t.Fatal("string below threshold was redacted")
	}
	if got.Parameters["at"] != BinaryDataRedacted {
		t.Fatal("string at threshold was not redacted")
	}
}

func TestLongProseNotRedacted(t *testing.T) {
	// Spaces and punctuation break the base64 alphabet, so length alone
	// must not trigger redaction.
	prose := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 500)
	ev := &event.UnredactedEvent{Event: event.Event{
		Parameters: map[string]any{"essay": prose},
	}}
	got := Event(ev)
	if got.Parameters["essay"] != prose {
		t.Fatal("prose was falsely redacted")
	}
}

func TestBase64WithTrailingPaddingRedacted(t *testing.T) {
	blob := strings.Repeat("QUJD", Base64SizeThreshold/4) + "=="
	ev := &event.UnredactedEvent{Event: event.Event{
		Parameters: map[string]any{"file": blob},
	}}
	got := Event(ev)
	if got.Parameters["file"] != BinaryDataRedacted {
		t.Fatal("padded base64 blob not redacted")
	}
}

func TestNestedParametersScanned(t *testing.T) {
	blob := strings.Repeat("Zm9v", Base64SizeThreshold/4)
	ev := &event.UnredactedEvent{Event: event.Event{
		Parameters: map[string]any{
			"outer": map[string]any{
				"files": []any{blob, "small"},
			},
		},
	}}
	got := Event(ev)
	files := got.Parameters["outer"].(map[string]any)["files"].([]any)
	if files[0] != BinaryDataRedacted {
		t.Fatal("nested blob not redacted")
	}
	if files[1] != "small" {
		t.Fatal("small string disturbed")
	}
}

func TestStructuredContentScanned(t *testing.T) {
	blob := strings.Repeat("Zm9v", Base64SizeThreshold/4)
	ev := &event.UnredactedEvent{Event: event.Event{
		Response: map[string]any{
			"content":            []any{textBlockOf("ok")},
			"structured_content": map[string]any{"payload": blob},
		},
	}}
	got := Event(ev)
	sc := got.Response["structured_content"].(map[string]any)
	if sc["payload"] != BinaryDataRedacted {
		t.Fatal("structured content blob not redacted")
	}
}

func TestInputNeverMutated(t *testing.T) {
	blob := strings.Repeat("QUJD", Base64SizeThreshold/4)
	original := map[string]any{
		"file":   blob,
		"nested": map[string]any{"also": blob},
	}
	ev := &event.UnredactedEvent{Event: event.Event{
		Parameters: original,
		Response: map[string]any{
			"content": []any{map[string]any{"type": "image", "data": "AAAA"}},
		},
	}}
	Event(ev)

	if original["file"] != blob {
		t.Fatal("input parameters mutated")
	}
	if original["nested"].(map[string]any)["also"] != blob {
		t.Fatal("nested input mutated")
	}
	img := ev.Response["content"].([]any)[0].(map[string]any)
	if img["type"] != "image" {
		t.Fatal("input response mutated")
	}
}
