// Package event defines the telemetry record that moves through the mcptap
// pipeline, plus the structured error shapes embedded in it. The wire format
// is plain JSON with snake_case field names.
package event

// EventType tags the originating MCP protocol operation.
type EventType string

const (
	EventPing              EventType = "mcp:ping"
	EventInitialize        EventType = "mcp:initialize"
	EventCompletion        EventType = "mcp:completion/complete"
	EventLoggingSetLevel   EventType = "mcp:logging/setLevel"
	EventPromptsGet        EventType = "mcp:prompts/get"
	EventPromptsList       EventType = "mcp:prompts/list"
	EventResourcesList     EventType = "mcp:resources/list"
	EventResourcesRead     EventType = "mcp:resources/read"
	EventToolsCall         EventType = "mcp:tools/call"
	EventToolsList         EventType = "mcp:tools/list"
	EventIdentify          EventType = "mcptap:identify"
)

// Platform is the fixed runtime tag stamped on every captured error.
const Platform = "go"

// Event is one normalized telemetry record describing a single tracked call.
// It is never mutated in place by a pipeline stage; each stage returns a new
// copy so the caller's original stays intact.
type Event struct {
	ID           string         `json:"id,omitempty"`
	ProjectID    string         `json:"project_id,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	Timestamp    string         `json:"timestamp,omitempty"`
	EventType    EventType      `json:"event_type,omitempty"`
	ResourceName string         `json:"resource_name,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Response     map[string]any `json:"response,omitempty"`
	IsError      bool           `json:"is_error,omitempty"`
	Error        *ErrorData     `json:"error,omitempty"`
	UserIntent   string         `json:"user_intent,omitempty"`
	IdentifyData map[string]any `json:"identify_data,omitempty"`
	DurationMS   int64          `json:"duration_ms,omitempty"`
}

// UnredactedEvent is an Event that has not yet passed through sanitization
// and truncation. Keeping it as a distinct type makes it hard to hand a raw
// event to an exporter by accident.
type UnredactedEvent struct {
	Event
}

// ErrorData is the portable, structured shape every raised value is
// normalized into.
type ErrorData struct {
	Message string `json:"message"`
	// Type is empty when the raised value was not a structured error
	// (a string, a map, a pre-serialized tool failure, ...).
	Type          string             `json:"type,omitempty"`
	Platform      string             `json:"platform,omitempty"`
	Frames        []StackFrame       `json:"frames,omitempty"`
	Stack         string             `json:"stack,omitempty"`
	ChainedErrors []ChainedErrorData `json:"chained_errors,omitempty"`
}

// ChainedErrorData is one link of an unwound cause chain, outermost first.
type ChainedErrorData struct {
	Message string       `json:"message"`
	Type    string       `json:"type,omitempty"`
	Frames  []StackFrame `json:"frames,omitempty"`
	Stack   string       `json:"stack,omitempty"`
}

// StackFrame is one parsed call-stack frame.
type StackFrame struct {
	Filename string `json:"filename"`
	AbsPath  string `json:"abs_path"`
	Function string `json:"function"`
	Module   string `json:"module"`
	Lineno   int    `json:"lineno"`
	InApp    bool   `json:"in_app"`
	// ContextLine is the source text at Lineno, present only for in-app
	// frames whose source file is readable.
	ContextLine string `json:"context_line,omitempty"`
}

// SessionInfo describes the server and client tied to one logical session.
type SessionInfo struct {
	IPAddress     string         `json:"ip_address,omitempty"`
	SDKLanguage   string         `json:"sdk_language,omitempty"`
	MCPTapVersion string         `json:"mcptap_version,omitempty"`
	ServerName    string         `json:"server_name,omitempty"`
	ServerVersion string         `json:"server_version,omitempty"`
	ClientName    string         `json:"client_name,omitempty"`
	ClientVersion string         `json:"client_version,omitempty"`
	ActorGivenID  string         `json:"identify_actor_given_id,omitempty"`
	ActorName     string         `json:"identify_actor_name,omitempty"`
	IdentifyData  map[string]any `json:"identify_data,omitempty"`
}

// UserIdentity is caller-supplied identification for a session.
type UserIdentity struct {
	UserID   string            `json:"user_id"`
	UserName string            `json:"user_name,omitempty"`
	UserData map[string]string `json:"user_data,omitempty"`
}
