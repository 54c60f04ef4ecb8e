package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pmbridge/pmbridge/internal/jira"
	"github.com/pmbridge/pmbridge/internal/logging"
)

// MeetingIssuesTool handles pm_get_meeting_issues: it reads a meeting's
// linkage record and enriches each key with the issue's current state.
type MeetingIssuesTool struct {
	linker Linker
	issues IssueService
}

// NewMeetingIssuesTool creates a MeetingIssuesTool.
func NewMeetingIssuesTool(linker Linker, issues IssueService) *MeetingIssuesTool {
	return &MeetingIssuesTool{linker: linker, issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *MeetingIssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("pm_get_meeting_issues",
		mcp.WithDescription(
			"Get the Jira issues linked to a calendar meeting with their "+
				"current status. Use to check on action items from a specific "+
				"meeting. A meeting with no links returns an empty list.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key owning the meeting's calendar"),
		),
		mcp.WithString("calendar_event_id",
			mcp.Required(),
			mcp.Description("Google Calendar event ID"),
		),
	)
}

// Handle processes the pm_get_meeting_issues tool call.
func (t *MeetingIssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	eventID := req.GetString("calendar_event_id", "")

	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	if eventID == "" {
		return mcp.NewToolResultError("'calendar_event_id' is required"), nil
	}

	ctx = callContext(ctx, "pm_get_meeting_issues")
	record, err := t.linker.MeetingIssues(ctx, projectKey, eventID)
	if err != nil {
		return errorResult(err), nil
	}

	// Enrich with live issue state. An issue that cannot be fetched
	// degrades to a key-only entry instead of failing the read.
	issues := make([]jira.Issue, 0, len(record.IssueKeys))
	for _, key := range record.IssueKeys {
		issue, err := t.issues.GetIssue(ctx, key)
		if err != nil {
			logging.G(ctx).WithError(err).WithField("issue", key).Warn("could not fetch linked issue")
			issue = jira.Issue{Key: key}
		}
		issues = append(issues, issue)
	}

	return jsonResult(map[string]any{
		"calendar_event_id":  eventID,
		"project_key":        record.ProjectKey,
		"issues":             issues,
		"confluence_page_id": record.WikiPageID,
	})
}
