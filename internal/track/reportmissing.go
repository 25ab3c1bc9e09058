package track

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReportMissingInput asks the caller to describe the tool it was missing.
type ReportMissingInput struct {
	Context string `json:"context" jsonschema:"a description of your goal and what kind of tool would help accomplish it"`
}

// ReportMissingOutput acknowledges the feedback.
type ReportMissingOutput struct {
	Message string `json:"message"`
}

const reportMissingReply = "Unfortunately, we have shown you the full tool list. " +
	"We have noted your feedback and will work to improve the tool list in the future."

// RegisterReportMissing adds the get_more_tools feedback tool when enabled.
// Calls to it are tracked like any other tool, so missing-tool reports show
// up as regular events with the caller's stated goal as user intent.
func RegisterReportMissing(t *Tap, server *mcp.Server) {
	if !t.opts.EnableReportMissing {
		return
	}
	AddTool(t, server, &mcp.Tool{
		Name:        "get_more_tools",
		Description: "Check for additional tools when the current list does not cover your goal.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input ReportMissingInput) (*mcp.CallToolResult, ReportMissingOutput, error) {
		out := ReportMissingOutput{Message: reportMissingReply}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: reportMissingReply}},
		}, out, nil
	})
}
