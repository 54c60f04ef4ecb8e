package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// CalendarGrantAccessTool handles calendar_grant_access.
type CalendarGrantAccessTool struct {
	directory CalendarDirectory
	access    AccessManager
}

// NewCalendarGrantAccessTool creates a CalendarGrantAccessTool.
func NewCalendarGrantAccessTool(directory CalendarDirectory, access AccessManager) *CalendarGrantAccessTool {
	return &CalendarGrantAccessTool{directory: directory, access: access}
}

// Definition returns the MCP tool definition for registration.
func (t *CalendarGrantAccessTool) Definition() mcp.Tool {
	return mcp.NewTool("calendar_grant_access",
		mcp.WithDescription(
			"Grant a user access to a project's calendar. Finds or creates "+
				"the calendar, then adds or updates the user's ACL entry. "+
				"Idempotent: granting a role the user already holds is a no-op.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key (e.g. 'ALPHA')"),
		),
		mcp.WithString("user_email",
			mcp.Required(),
			mcp.Description("Email address to grant access to"),
		),
		mcp.WithString("role",
			mcp.Description("ACL role to grant (default 'writer')"),
			mcp.Enum("owner", "writer", "reader", "freeBusyReader"),
		),
	)
}

// Handle processes the calendar_grant_access tool call.
func (t *CalendarGrantAccessTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	userEmail := req.GetString("user_email", "")
	role := req.GetString("role", "writer")
	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	if userEmail == "" {
		return mcp.NewToolResultError("'user_email' is required"), nil
	}

	ctx = callContext(ctx, "calendar_grant_access")
	calendarID, err := t.directory.FindOrCreate(ctx, projectKey, "")
	if err != nil {
		return errorResult(err), nil
	}
	action, err := t.access.GrantAccess(ctx, calendarID, userEmail, role)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]string{
		"project_key": projectKey,
		"calendar_id": calendarID,
		"user_email":  userEmail,
		"role":        role,
		"action":      action,
	})
}
