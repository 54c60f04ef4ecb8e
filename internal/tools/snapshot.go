package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pmbridge/pmbridge/internal/jira"
)

// SnapshotTool handles pm_get_project_snapshot: the linkage fold over
// the project calendar plus an issue-status aggregation from the tracker.
type SnapshotTool struct {
	linker       Linker
	issues       IssueService
	lookbackDays int
}

// NewSnapshotTool creates a SnapshotTool with the configured default
// lookback window.
func NewSnapshotTool(linker Linker, issues IssueService, lookbackDays int) *SnapshotTool {
	return &SnapshotTool{linker: linker, issues: issues, lookbackDays: lookbackDays}
}

// Definition returns the MCP tool definition for registration.
func (t *SnapshotTool) Definition() mcp.Tool {
	return mcp.NewTool("pm_get_project_snapshot",
		mcp.WithDescription(
			"Get aggregated project statistics: open/in-progress/done counts, "+
				"overdue issues, workload by assignee, and how many meetings in "+
				"the lookback window carry issue links.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key"),
		),
		mcp.WithNumber("lookback_days",
			mcp.Description("Meeting window to fold over, in days (default from server config)"),
		),
	)
}

// Handle processes the pm_get_project_snapshot tool call.
func (t *SnapshotTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	lookback := lookbackFrom(req.GetFloat("lookback_days", 0), t.lookbackDays)

	ctx = callContext(ctx, "pm_get_project_snapshot")
	snap, err := t.linker.ProjectSnapshot(ctx, projectKey, lookback)
	if err != nil {
		return errorResult(err), nil
	}

	issues, err := t.issues.SearchIssues(ctx, jira.SearchFilter{ProjectKey: projectKey, MaxResults: 500})
	if err != nil {
		return errorResult(err), nil
	}

	var open, inProgress, done, overdue int
	byAssignee := map[string]int{}
	today := time.Now().Format("2006-01-02")
	for _, issue := range issues {
		switch issue.StatusCategory {
		case "To Do":
			open++
		case "In Progress":
			inProgress++
		case "Done":
			done++
		}
		if issue.DueDate != "" && issue.StatusCategory != "Done" && issue.DueDate < today {
			overdue++
		}
		assignee := issue.Assignee
		if assignee == "" {
			assignee = "Unassigned"
		}
		byAssignee[assignee]++
	}

	return jsonResult(map[string]any{
		"project_key":        projectKey,
		"calendar_id":        snap.CalendarID,
		"window_start":       snap.WindowStart.Format(time.RFC3339),
		"window_end":         snap.WindowEnd.Format(time.RFC3339),
		"meetings_in_window": snap.EventCount,
		"linked_meetings":    snap.LinkedEvents,
		"linked_issue_keys":  snap.IssueKeys,
		"total_open":         open,
		"total_in_progress":  inProgress,
		"total_done":         done,
		"total_overdue":      overdue,
		"by_assignee":        byAssignee,
	})
}
