package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// JiraGetIssueTool handles jira_get_issue.
type JiraGetIssueTool struct {
	issues IssueService
}

// NewJiraGetIssueTool creates a JiraGetIssueTool.
func NewJiraGetIssueTool(issues IssueService) *JiraGetIssueTool {
	return &JiraGetIssueTool{issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *JiraGetIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_get_issue",
		mcp.WithDescription("Get one Jira issue by key with status, assignee, labels and due date."),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Jira issue key (e.g. 'ALPHA-42')"),
		),
	)
}

// Handle processes the jira_get_issue tool call.
func (t *JiraGetIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := req.GetString("issue_key", "")
	if issueKey == "" {
		return mcp.NewToolResultError("'issue_key' is required"), nil
	}

	ctx = callContext(ctx, "jira_get_issue")
	issue, err := t.issues.GetIssue(ctx, issueKey)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(issue)
}
