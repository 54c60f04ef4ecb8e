package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// CalendarVerifyAccessTool handles calendar_verify_project_access: an
// ACL inspection for troubleshooting "I cannot see the calendar" before
// reaching for calendar_grant_access.
type CalendarVerifyAccessTool struct {
	directory    CalendarDirectory
	access       AccessManager
	defaultEmail string
}

// NewCalendarVerifyAccessTool creates a CalendarVerifyAccessTool. The
// default email is checked when the caller supplies none.
func NewCalendarVerifyAccessTool(directory CalendarDirectory, access AccessManager, defaultEmail string) *CalendarVerifyAccessTool {
	return &CalendarVerifyAccessTool{directory: directory, access: access, defaultEmail: defaultEmail}
}

// Definition returns the MCP tool definition for registration.
func (t *CalendarVerifyAccessTool) Definition() mcp.Tool {
	return mcp.NewTool("calendar_verify_project_access",
		mcp.WithDescription(
			"Check whether a user has access to a project's calendar and "+
				"with which role. Use to troubleshoot access issues before "+
				"granting access. Finds or creates the calendar first.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key (e.g. 'ALPHA')"),
		),
		mcp.WithString("user_email",
			mcp.Description("Email to check; defaults to the configured share email"),
		),
	)
}

// Handle processes the calendar_verify_project_access tool call.
func (t *CalendarVerifyAccessTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	userEmail := req.GetString("user_email", "")
	if userEmail == "" {
		userEmail = t.defaultEmail
	}
	if userEmail == "" {
		return mcp.NewToolResultError("'user_email' is required when no share email is configured"), nil
	}

	ctx = callContext(ctx, "calendar_verify_project_access")
	calendarID, err := t.directory.FindOrCreate(ctx, projectKey, "")
	if err != nil {
		return errorResult(err), nil
	}
	rules, err := t.access.ListAccessRules(ctx, calendarID)
	if err != nil {
		return errorResult(err), nil
	}

	role := ""
	for _, rule := range rules {
		if strings.EqualFold(rule.Email, userEmail) {
			role = rule.Role
			break
		}
	}
	return jsonResult(map[string]any{
		"project_key":       projectKey,
		"calendar_id":       calendarID,
		"user_email":        userEmail,
		"has_access":        role != "",
		"role":              role,
		"acl_entries_count": len(rules),
	})
}
