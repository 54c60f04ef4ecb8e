package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// JiraAddCommentTool handles jira_add_comment.
type JiraAddCommentTool struct {
	issues IssueService
}

// NewJiraAddCommentTool creates a JiraAddCommentTool.
func NewJiraAddCommentTool(issues IssueService) *JiraAddCommentTool {
	return &JiraAddCommentTool{issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *JiraAddCommentTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_add_comment",
		mcp.WithDescription("Add a comment to a Jira issue."),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Jira issue key"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Comment text"),
		),
	)
}

// Handle processes the jira_add_comment tool call.
func (t *JiraAddCommentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := req.GetString("issue_key", "")
	body := req.GetString("body", "")
	if issueKey == "" {
		return mcp.NewToolResultError("'issue_key' is required"), nil
	}
	if body == "" {
		return mcp.NewToolResultError("'body' is required"), nil
	}

	ctx = callContext(ctx, "jira_add_comment")
	if err := t.issues.AddComment(ctx, issueKey, body); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"issue_key": issueKey,
		"added":     true,
	})
}
