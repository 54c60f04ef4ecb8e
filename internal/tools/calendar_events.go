package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// CalendarListEventsTool handles calendar_list_events.
type CalendarListEventsTool struct {
	directory CalendarDirectory
	meetings  MeetingSource
}

// NewCalendarListEventsTool creates a CalendarListEventsTool.
func NewCalendarListEventsTool(directory CalendarDirectory, meetings MeetingSource) *CalendarListEventsTool {
	return &CalendarListEventsTool{directory: directory, meetings: meetings}
}

// Definition returns the MCP tool definition for registration.
func (t *CalendarListEventsTool) Definition() mcp.Tool {
	return mcp.NewTool("calendar_list_events",
		mcp.WithDescription(
			"List meetings in a project's calendar. Default window is the "+
				"last 7 days through the next 7 days.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key whose calendar to read"),
		),
		mcp.WithString("time_min",
			mcp.Description("Start of time range (ISO 8601, default now - 7 days)"),
		),
		mcp.WithString("time_max",
			mcp.Description("End of time range (ISO 8601, default now + 7 days)"),
		),
		mcp.WithString("text_query",
			mcp.Description("Optional text search in event summary/description"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of events to return (1-250, default 50)"),
		),
	)
}

// Handle processes the calendar_list_events tool call.
func (t *CalendarListEventsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}

	now := time.Now()
	from, err := parseTime(req.GetString("time_min", ""), now.AddDate(0, 0, -7))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := parseTime(req.GetString("time_max", ""), now.AddDate(0, 0, 7))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx = callContext(ctx, "calendar_list_events")
	calendarID, err := t.directory.FindOrCreate(ctx, projectKey, "")
	if err != nil {
		return errorResult(err), nil
	}

	meetings, err := t.meetings.ListMeetings(ctx, calendarID, from, to,
		req.GetString("text_query", ""), int64(req.GetFloat("max_results", 0)))
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]any{
		"project_key": projectKey,
		"calendar_id": calendarID,
		"count":       len(meetings),
		"events":      meetings,
	})
}
