package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// CalendarListCalendarsTool handles calendar_list_calendars.
type CalendarListCalendarsTool struct {
	directory CalendarDirectory
}

// NewCalendarListCalendarsTool creates a CalendarListCalendarsTool.
func NewCalendarListCalendarsTool(directory CalendarDirectory) *CalendarListCalendarsTool {
	return &CalendarListCalendarsTool{directory: directory}
}

// Definition returns the MCP tool definition for registration.
func (t *CalendarListCalendarsTool) Definition() mcp.Tool {
	return mcp.NewTool("calendar_list_calendars",
		mcp.WithDescription(
			"List all project calendars owned by the service account with "+
				"their Jira project and Confluence space mapping. Calendars "+
				"without a parseable project mapping are omitted.",
		),
	)
}

// Handle processes the calendar_list_calendars tool call.
func (t *CalendarListCalendarsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = callContext(ctx, "calendar_list_calendars")
	calendars, err := t.directory.List(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	out := make([]map[string]string, 0, len(calendars))
	for _, c := range calendars {
		entry := map[string]string{
			"calendar_id": c.CalendarID,
			"project_key": c.ProjectKey,
		}
		if c.WikiSpaceKey != "" {
			entry["confluence_space_key"] = c.WikiSpaceKey
		}
		out = append(out, entry)
	}
	return jsonResult(map[string]any{
		"count":     len(out),
		"calendars": out,
	})
}
