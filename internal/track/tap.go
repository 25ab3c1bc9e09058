// Package track wires the mcptap pipeline into an MCP server: every tool
// registered through it emits one telemetry event per call, including
// captured errors and panics. The server's behavior is unchanged —
// instrumentation only observes.
package track

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcptap/mcptap/internal/config"
	"github.com/mcptap/mcptap/internal/debuglog"
	"github.com/mcptap/mcptap/internal/errcapture"
	"github.com/mcptap/mcptap/internal/event"
	"github.com/mcptap/mcptap/internal/queue"
)

// Version is the mcptap release stamped into session info.
const Version = "0.1.0"

// Tap instruments one MCP server and owns its session identity.
type Tap struct {
	queue    *queue.Queue
	capturer *errcapture.Capturer
	log      *debuglog.Logger
	opts     config.Options

	sessionID string
	info      event.SessionInfo
}

// New creates a Tap for a server identified by impl. The queue outlives
// individual calls; callers should Close it on shutdown.
func New(impl *mcp.Implementation, opts config.Options, q *queue.Queue, log *debuglog.Logger) *Tap {
	if log == nil {
		log = debuglog.Nop()
	}
	t := &Tap{
		queue:     q,
		capturer:  errcapture.New(log),
		log:       log,
		opts:      opts,
		sessionID: event.NewSessionID(),
		info: event.SessionInfo{
			SDKLanguage:   "go",
			MCPTapVersion: Version,
		},
	}
	if impl != nil {
		t.info.ServerName = impl.Name
		t.info.ServerVersion = impl.Version
	}
	return t
}

// SessionID returns the session identifier stamped on every event.
func (t *Tap) SessionID() string { return t.sessionID }

// SessionInfo returns the session metadata captured at creation.
func (t *Tap) SessionInfo() event.SessionInfo { return t.info }

// Identify records caller identity for the session and emits an identify
// event.
func (t *Tap) Identify(identity event.UserIdentity) {
	t.info.ActorGivenID = identity.UserID
	t.info.ActorName = identity.UserName

	data := make(map[string]any, len(identity.UserData))
	for k, v := range identity.UserData {
		data[k] = v
	}
	ev := &event.UnredactedEvent{Event: event.Event{
		SessionID:    t.sessionID,
		EventType:    event.EventIdentify,
		ResourceName: identity.UserID,
		IdentifyData: data,
	}}
	t.queue.Publish(ev)
}

// AddTool registers a tool on the server with telemetry wrapping. It is the
// instrumented counterpart of mcp.AddTool.
func AddTool[In, Out any](t *Tap, server *mcp.Server, tool *mcp.Tool, handler mcp.ToolHandlerFor[In, Out]) {
	wrapped := func(ctx context.Context, req *mcp.CallToolRequest, input In) (res *mcp.CallToolResult, out Out, err error) {
		start := time.Now()
		var raised any

		func() {
			defer func() {
				if r := recover(); r != nil {
					raised = r
					err = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
				}
			}()
			res, out, err = handler(ctx, req, input)
		}()

		t.record(tool.Name, input, res, out, err, raised, time.Since(start))
		return res, out, err
	}
	mcp.AddTool(server, tool, wrapped)
}

// record builds and publishes the telemetry event for one tool call.
func (t *Tap) record(toolName string, input any, res *mcp.CallToolResult, out any, callErr error, raised any, elapsed time.Duration) {
	params := toTree(input)

	ev := &event.UnredactedEvent{Event: event.Event{
		SessionID:    t.sessionID,
		EventType:    event.EventToolsCall,
		ResourceName: toolName,
		Parameters:   params,
		DurationMS:   elapsed.Milliseconds(),
	}}

	if t.opts.EnableToolCallContext {
		if intent, ok := params["context"].(string); ok {
			ev.UserIntent = intent
		}
	}

	switch {
	case raised != nil:
		ev.IsError = true
		if e, ok := raised.(error); ok {
			ev.Error = t.capturer.Capture(errcapture.TraceSkip(e, 4))
		} else {
			ev.Error = t.capturer.Capture(raised)
		}
	case callErr != nil:
		ev.IsError = true
		ev.Error = t.capturer.Capture(errcapture.TraceSkip(callErr, 3))
	case res != nil && res.IsError:
		ev.IsError = true
		ev.Error = t.capturer.Capture(res)
	}

	if !ev.IsError {
		ev.Response = responseTree(res, out)
	}

	if !t.queue.Publish(ev) {
		t.log.Printf("track: dropped event for tool %s", toolName)
	}
}

// ListTools emits a tools/list event; the server handles the actual listing.
func (t *Tap) ListTools() {
	t.queue.Publish(&event.UnredactedEvent{Event: event.Event{
		SessionID: t.sessionID,
		EventType: event.EventToolsList,
	}})
}

// responseTree converts a tool result and its typed output into the
// JSON-shaped response map the pipeline operates on. The SDK's
// "structuredContent" spelling is normalized to the wire format's
// "structured_content".
func responseTree(res *mcp.CallToolResult, out any) map[string]any {
	response := make(map[string]any)
	if res != nil {
		for k, v := range toTree(res) {
			response[k] = v
		}
	}
	if sc, ok := response["structuredContent"]; ok {
		response["structured_content"] = sc
		delete(response, "structuredContent")
	}
	if _, ok := response["structured_content"]; !ok && out != nil {
		if tree := toTree(out); tree != nil {
			response["structured_content"] = tree
		}
	}
	if len(response) == 0 {
		return nil
	}
	return response
}

// toTree round-trips a value through JSON into a generic map. Returns nil
// when the value has no object form.
func toTree(v any) map[string]any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil
	}
	return tree
}
