package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// UnlinkTool handles pm_unlink_meeting_issues: it removes issue keys
// from a meeting's linkage record and drops their reverse labels.
type UnlinkTool struct {
	linker Linker
}

// NewUnlinkTool creates an UnlinkTool over the coordinator.
func NewUnlinkTool(linker Linker) *UnlinkTool {
	return &UnlinkTool{linker: linker}
}

// Definition returns the MCP tool definition for registration.
func (t *UnlinkTool) Definition() mcp.Tool {
	return mcp.NewTool("pm_unlink_meeting_issues",
		mcp.WithDescription(
			"Remove the link between a calendar meeting and Jira issues. "+
				"Label cleanup on the issues is best-effort: an issue deleted "+
				"concurrently does not block cleanup of the meeting side.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key owning the meeting's calendar"),
		),
		mcp.WithString("calendar_event_id",
			mcp.Required(),
			mcp.Description("Google Calendar event ID"),
		),
		mcp.WithArray("jira_issue_keys",
			mcp.Required(),
			mcp.Description("Jira issue keys to unlink"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the pm_unlink_meeting_issues tool call.
func (t *UnlinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	eventID := req.GetString("calendar_event_id", "")
	issueKeys := req.GetStringSlice("jira_issue_keys", nil)

	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	if eventID == "" {
		return mcp.NewToolResultError("'calendar_event_id' is required"), nil
	}
	if len(issueKeys) == 0 {
		return mcp.NewToolResultError("'jira_issue_keys' must name at least one issue"), nil
	}

	ctx = callContext(ctx, "pm_unlink_meeting_issues")
	record, err := t.linker.Unlink(ctx, projectKey, eventID, issueKeys)
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]any{
		"calendar_event_id":  eventID,
		"jira_issue_keys":    record.IssueKeys,
		"confluence_page_id": record.WikiPageID,
	})
}
