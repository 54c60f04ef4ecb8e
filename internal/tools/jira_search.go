package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pmbridge/pmbridge/internal/jira"
)

// JiraListIssuesTool handles jira_list_issues.
type JiraListIssuesTool struct {
	issues IssueService
}

// NewJiraListIssuesTool creates a JiraListIssuesTool.
func NewJiraListIssuesTool(issues IssueService) *JiraListIssuesTool {
	return &JiraListIssuesTool{issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *JiraListIssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_list_issues",
		mcp.WithDescription(
			"List Jira issues filtered by project, status category, assignee, "+
				"label, or free text. Most recently updated first.",
		),
		mcp.WithString("project_key",
			mcp.Description("Jira project key (e.g. 'ALPHA')"),
		),
		mcp.WithString("status_category",
			mcp.Description("Status category filter"),
			mcp.Enum("To Do", "In Progress", "Done"),
		),
		mcp.WithString("assignee",
			mcp.Description("Assignee display name or email"),
		),
		mcp.WithString("label",
			mcp.Description("Exact label to filter by"),
		),
		mcp.WithString("text_query",
			mcp.Description("Free-text search over summary and description"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of issues to return (1-500, default 50)"),
		),
	)
}

// Handle processes the jira_list_issues tool call.
func (t *JiraListIssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := jira.SearchFilter{
		ProjectKey:     req.GetString("project_key", ""),
		StatusCategory: req.GetString("status_category", ""),
		Assignee:       req.GetString("assignee", ""),
		Label:          req.GetString("label", ""),
		TextQuery:      req.GetString("text_query", ""),
		MaxResults:     int(req.GetFloat("max_results", 0)),
	}

	ctx = callContext(ctx, "jira_list_issues")
	issues, err := t.issues.SearchIssues(ctx, filter)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"count":  len(issues),
		"issues": issues,
	})
}
