package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// RebuildTool handles pm_rebuild_links: a maintenance rescan that
// re-applies reverse labels missing from linked issues. The label side
// is a derived index rebuildable by full scan if lost.
type RebuildTool struct {
	linker       Linker
	lookbackDays int
}

// NewRebuildTool creates a RebuildTool with the configured default
// lookback window.
func NewRebuildTool(linker Linker, lookbackDays int) *RebuildTool {
	return &RebuildTool{linker: linker, lookbackDays: lookbackDays}
}

// Definition returns the MCP tool definition for registration.
func (t *RebuildTool) Definition() mcp.Tool {
	return mcp.NewTool("pm_rebuild_links",
		mcp.WithDescription(
			"Maintenance: rescan a project's calendar and re-apply any "+
				"missing gcal: labels on linked Jira issues. Use when labels "+
				"were lost to manual edits or partial failures.",
		),
		mcp.WithString("project_key",
			mcp.Required(),
			mcp.Description("Jira project key"),
		),
		mcp.WithNumber("lookback_days",
			mcp.Description("Meeting window to rescan, in days (default from server config)"),
		),
	)
}

// Handle processes the pm_rebuild_links tool call.
func (t *RebuildTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey := req.GetString("project_key", "")
	if projectKey == "" {
		return mcp.NewToolResultError("'project_key' is required"), nil
	}
	lookback := lookbackFrom(req.GetFloat("lookback_days", 0), t.lookbackDays)

	ctx = callContext(ctx, "pm_rebuild_links")
	report, err := t.linker.RebuildIndex(ctx, projectKey, lookback)
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(map[string]any{
		"project_key":    projectKey,
		"events_scanned": report.EventsScanned,
		"linked_events":  report.LinkedEvents,
		"labels_applied": report.LabelsApplied,
		"missing_issues": report.MissingIssues,
	})
}
