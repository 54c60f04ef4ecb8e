package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pmbridge/pmbridge/internal/jira"
)

// JiraCreateIssueTool handles jira_create_issue.
type JiraCreateIssueTool struct {
	issues IssueService
}

// NewJiraCreateIssueTool creates a JiraCreateIssueTool.
func NewJiraCreateIssueTool(issues IssueService) *JiraCreateIssueTool {
	return &JiraCreateIssueTool{issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *JiraCreateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_create_issue",
		mcp.WithDescription(
			"Create a Jira issue. Use for action items captured during a "+
				"meeting, then link them with pm_link_meeting_issues.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Issue summary (one line)"),
		),
		mcp.WithString("description",
			mcp.Description("Issue description"),
		),
		mcp.WithString("issue_type",
			mcp.Description("Issue type name (default 'Task')"),
		),
		mcp.WithArray("labels",
			mcp.Description("Labels to apply on creation"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the jira_create_issue tool call.
func (t *JiraCreateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := jira.CreateIssueInput{
		ProjectKey:  req.GetString("project_key", ""),
		Summary:     req.GetString("summary", ""),
		Description: req.GetString("description", ""),
		IssueType:   req.GetString("issue_type", ""),
		Labels:      req.GetStringSlice("labels", nil),
	}
	if input.ProjectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	if input.Summary == "" {
		return mcp.NewToolResultError("'summary' is required"), nil
	}

	ctx = callContext(ctx, "jira_create_issue")
	issue, err := t.issues.CreateIssue(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(issue)
}
