package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// LinkTool handles pm_link_meeting_issues: it merges issue keys (and
// optionally a Confluence page) into a meeting's linkage record.
type LinkTool struct {
	linker Linker
}

// NewLinkTool creates a LinkTool over the coordinator.
func NewLinkTool(linker Linker) *LinkTool {
	return &LinkTool{linker: linker}
}

// Definition returns the MCP tool definition for registration.
func (t *LinkTool) Definition() mcp.Tool {
	return mcp.NewTool("pm_link_meeting_issues",
		mcp.WithDescription(
			"Link a calendar meeting to Jira issues. "+
				"Use after creating issues from action items to maintain traceability. "+
				"Requires project_key to determine which calendar hosts the event.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key owning the meeting's calendar (e.g. 'ALPHA')"),
		),
		mcp.WithString("calendar_event_id",
			mcp.Required(),
			mcp.Description("Google Calendar event ID"),
		),
		mcp.WithArray("jira_issue_keys",
			mcp.Required(),
			mcp.Description("Jira issue keys to link (e.g. ['ALPHA-1', 'ALPHA-2'])"),
			mcp.WithStringItems(),
		),
		mcp.WithString("confluence_page_id",
			mcp.Description("Optional Confluence page ID with the meeting notes"),
		),
	)
}

// Handle processes the pm_link_meeting_issues tool call.
func (t *LinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	eventID := req.GetString("calendar_event_id", "")
	issueKeys := req.GetStringSlice("jira_issue_keys", nil)
	pageID := req.GetString("confluence_page_id", "")

	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	if eventID == "" {
		return mcp.NewToolResultError("'calendar_event_id' is required"), nil
	}
	if len(issueKeys) == 0 {
		return mcp.NewToolResultError("'jira_issue_keys' must name at least one issue"), nil
	}

	ctx = callContext(ctx, "pm_link_meeting_issues")
	record, err := t.linker.Link(ctx, projectKey, eventID, issueKeys, pageID)
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]any{
		"calendar_event_id":  eventID,
		"project_key":        record.ProjectKey,
		"jira_issue_keys":    record.IssueKeys,
		"confluence_page_id": record.WikiPageID,
	})
}
