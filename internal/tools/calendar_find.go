package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// CalendarFindTool handles calendar_find_project_calendar: the directory
// upsert exposed directly, so callers can provision a project's calendar
// ahead of its first link.
type CalendarFindTool struct {
	directory CalendarDirectory
}

// NewCalendarFindTool creates a CalendarFindTool.
func NewCalendarFindTool(directory CalendarDirectory) *CalendarFindTool {
	return &CalendarFindTool{directory: directory}
}

// Definition returns the MCP tool definition for registration.
func (t *CalendarFindTool) Definition() mcp.Tool {
	return mcp.NewTool("calendar_find_project_calendar",
		mcp.WithDescription(
			"Find the calendar for a Jira project, creating it on first "+
				"use. The calendar is named after the project key and tagged "+
				"with mapping metadata.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key (e.g. 'ALPHA')"),
		),
		mcp.WithString("confluence_space_key",
			mcp.Description("Optional Confluence space key recorded in the calendar metadata"),
		),
	)
}

// Handle processes the calendar_find_project_calendar tool call.
func (t *CalendarFindTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}

	ctx = callContext(ctx, "calendar_find_project_calendar")
	calendarID, err := t.directory.FindOrCreate(ctx, projectKey, req.GetString("confluence_space_key", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]string{
		"project_key": projectKey,
		"calendar_id": calendarID,
	})
}
