package event

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestIDPrefixes(t *testing.T) {
	if id := NewEventID(); !strings.HasPrefix(id, "evt_") || len(id) != 40 {
		t.Fatalf("event ID: %q", id)
	}
	if id := NewSessionID(); !strings.HasPrefix(id, "ses_") || len(id) != 40 {
		t.Fatalf("session ID: %q", id)
	}
	if NewEventID() == NewEventID() {
		t.Fatal("event IDs collide")
	}
}

func TestTimestampFormat(t *testing.T) {
	ts := UTCNowISO()
	if !strings.HasSuffix(ts, "Z") {
		t.Fatalf("timestamp not Z-suffixed: %q", ts)
	}
	parsed, err := time.Parse("2006-01-02T15:04:05.000Z", ts)
	if err != nil {
		t.Fatalf("timestamp does not round-trip: %v", err)
	}
	if time.Since(parsed) > time.Minute {
		t.Fatalf("timestamp not current: %q", ts)
	}
}

func TestEventJSONUsesSnakeCase(t *testing.T) {
	ev := Event{
		ID:           "evt_1",
		SessionID:    "ses_1",
		EventType:    EventToolsCall,
		ResourceName: "add_todo",
		IsError:      true,
		Error:        &ErrorData{Message: "boom", Platform: Platform},
		UserIntent:   "adding a todo",
		DurationMS:   12,
	}
	out, err := json.Marshal(&ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{
		`"session_id"`, `"event_type"`, `"resource_name"`,
		`"is_error"`, `"user_intent"`, `"duration_ms"`,
	} {
		if !strings.Contains(string(out), field) {
			t.Errorf("missing field %s in %s", field, out)
		}
	}
}

func TestEmptyFieldsOmitted(t *testing.T) {
	out, err := json.Marshal(&Event{ID: "evt_1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "error") || strings.Contains(string(out), "parameters") {
		t.Fatalf("empty fields serialized: %s", out)
	}
}

func TestErrorDataRoundTrip(t *testing.T) {
	data := &ErrorData{
		Message:  "save failed: disk full",
		Type:     "errors.errorString",
		Platform: Platform,
		Frames: []StackFrame{{
			Filename: "tool/internal/db/query.go",
			AbsPath:  "/home/me/tool/internal/db/query.go",
			Function: "(*Store).Query",
			Module:   "github.com/acme/tool/internal/db",
			Lineno:   42,
			InApp:    true,
		}},
		ChainedErrors: []ChainedErrorData{{Message: "disk full", Type: "errors.errorString"}},
	}
	out, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ErrorData
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Frames[0].Lineno != 42 || !back.Frames[0].InApp {
		t.Fatalf("frame lost in round trip: %+v", back.Frames[0])
	}
	if len(back.ChainedErrors) != 1 {
		t.Fatalf("chain lost in round trip")
	}
}
