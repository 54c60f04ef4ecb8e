package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ConfluenceCreatePageTool handles confluence_create_meeting_page.
type ConfluenceCreatePageTool struct {
	pages PageService
}

// NewConfluenceCreatePageTool creates a ConfluenceCreatePageTool.
func NewConfluenceCreatePageTool(pages PageService) *ConfluenceCreatePageTool {
	return &ConfluenceCreatePageTool{pages: pages}
}

// Definition returns the MCP tool definition for registration.
func (t *ConfluenceCreatePageTool) Definition() mcp.Tool {
	return mcp.NewTool("confluence_create_meeting_page",
		mcp.WithDescription(
			"Create a Confluence page for meeting notes. Use to document "+
				"meeting outcomes, decisions, and action items, then pass the "+
				"returned page ID to pm_link_meeting_issues as confluence_page_id.",
		),
		mcp.WithString("space_key",
			mcp.Required(),
			mcp.Description("Confluence space key"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Page title"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Page content as plain text; line breaks are preserved"),
		),
		mcp.WithString("parent_page_id",
			mcp.Description("Optional parent page ID for hierarchy"),
		),
	)
}

// Handle processes the confluence_create_meeting_page tool call.
func (t *ConfluenceCreatePageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spaceKey := req.GetString("space_key", "")
	title := req.GetString("title", "")
	body := req.GetString("body", "")
	if spaceKey == "" {
		return mcp.NewToolResultError("'space_key' is required"), nil
	}
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	if body == "" {
		return mcp.NewToolResultError("'body' is required"), nil
	}

	ctx = callContext(ctx, "confluence_create_meeting_page")
	page, err := t.pages.CreatePage(ctx, spaceKey, title, body, req.GetString("parent_page_id", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page)
}
