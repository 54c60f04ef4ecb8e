package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pmbridge/pmbridge/internal/jira"
	"github.com/pmbridge/pmbridge/internal/logging"
)

// JiraCreateIssuesBatchTool handles jira_create_issues_batch: one call
// creating several issues, for turning a meeting's action items into
// tasks in one step before linking them.
type JiraCreateIssuesBatchTool struct {
	issues IssueService
}

// NewJiraCreateIssuesBatchTool creates a JiraCreateIssuesBatchTool.
func NewJiraCreateIssuesBatchTool(issues IssueService) *JiraCreateIssuesBatchTool {
	return &JiraCreateIssuesBatchTool{issues: issues}
}

// Definition returns the MCP tool definition for registration.
func (t *JiraCreateIssuesBatchTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_create_issues_batch",
		mcp.WithDescription(
			"Create multiple Jira issues from action items. Use after "+
				"extracting action items from meeting notes, then link the "+
				"created issues with pm_link_meeting_issues.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key"),
		),
		mcp.WithArray("issues",
			mcp.Required(),
			mcp.Description("Issues to create, each an object with 'summary' "+
				"(required) and optional 'description', 'issue_type', "+
				"'assignee', 'due_date'"),
		),
	)
}

// Handle processes the jira_create_issues_batch tool call. Issues are
// created in order; a failure stops the batch and reports how many were
// already created, since issue creation cannot be rolled back.
func (t *JiraCreateIssuesBatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	inputs, errMsg := parseBatchIssues(req)
	if errMsg != "" {
		return mcp.NewToolResultError(errMsg), nil
	}

	ctx = callContext(ctx, "jira_create_issues_batch")
	created := make([]jira.Issue, 0, len(inputs))
	for i, input := range inputs {
		input.ProjectKey = projectKey
		issue, err := t.issues.CreateIssue(ctx, input)
		if err != nil {
			logging.G(ctx).WithError(err).WithField("created", len(created)).Warn("batch issue creation stopped")
			return mcp.NewToolResultError(fmt.Sprintf(
				"created %d of %d issues, then issue %d failed: %s",
				len(created), len(inputs), i+1, err,
			)), nil
		}
		created = append(created, issue)
	}

	return jsonResult(map[string]any{
		"count":   len(created),
		"created": created,
	})
}

func parseBatchIssues(req mcp.CallToolRequest) ([]jira.CreateIssueInput, string) {
	args := req.GetArguments()
	raw, ok := args["issues"].([]any)
	if !ok || len(raw) == 0 {
		return nil, "'issues' must be a non-empty array of issue objects"
	}
	inputs := make([]jira.CreateIssueInput, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Sprintf("issue %d is not an object", i+1)
		}
		input := jira.CreateIssueInput{
			Summary:     stringField(obj, "summary"),
			Description: stringField(obj, "description"),
			IssueType:   stringField(obj, "issue_type"),
			Assignee:    stringField(obj, "assignee"),
			DueDate:     stringField(obj, "due_date"),
		}
		if input.Summary == "" {
			return nil, fmt.Sprintf("issue %d is missing 'summary'", i+1)
		}
		inputs = append(inputs, input)
	}
	return inputs, ""
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
