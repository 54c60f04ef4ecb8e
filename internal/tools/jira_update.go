package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pmbridge/pmbridge/internal/jira"
)

// JiraUpdateIssueTool handles jira_update_issue.
type JiraUpdateIssueTool struct {
	issues IssueService
}

// NewJiraUpdateIssueTool creates a JiraUpdateIssueTool.
func NewJiraUpdateIssueTool(issues IssueService) *JiraUpdateIssueTool {
	return &JiraUpdateIssueTool{issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *JiraUpdateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_update_issue",
		mcp.WithDescription(
			"Update a Jira issue. Use to change status, assignee, due date, "+
				"or other fields. For status changes, use the human-readable "+
				"status name; it must be a valid transition from the current status.",
		),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Jira issue key (e.g. 'ALPHA-42')"),
		),
		mcp.WithString("summary",
			mcp.Description("New summary"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("status",
			mcp.Description("New status name (must be a valid transition)"),
		),
		mcp.WithString("assignee",
			mcp.Description("New assignee account ID"),
		),
		mcp.WithArray("labels",
			mcp.Description("Replacement label set (replaces all existing labels)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("due_date",
			mcp.Description("New due date (YYYY-MM-DD)"),
		),
	)
}

// Handle processes the jira_update_issue tool call.
func (t *JiraUpdateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := req.GetString("issue_key", "")
	if issueKey == "" {
		return mcp.NewToolResultError("'issue_key' is required"), nil
	}

	input := jira.UpdateIssueInput{
		Summary:     req.GetString("summary", ""),
		Description: req.GetString("description", ""),
		Status:      req.GetString("status", ""),
		Assignee:    req.GetString("assignee", ""),
		DueDate:     req.GetString("due_date", ""),
		Labels:      req.GetStringSlice("labels", nil),
	}
	if input.Summary == "" && input.Description == "" && input.Status == "" &&
		input.Assignee == "" && input.DueDate == "" && input.Labels == nil {
		return mcp.NewToolResultError("at least one field to update is required"), nil
	}

	ctx = callContext(ctx, "jira_update_issue")
	issue, err := t.issues.UpdateIssue(ctx, issueKey, input)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(issue)
}
