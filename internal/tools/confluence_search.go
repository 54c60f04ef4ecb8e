package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ConfluenceSearchTool handles confluence_search_pages.
type ConfluenceSearchTool struct {
	pages PageService
}

// NewConfluenceSearchTool creates a ConfluenceSearchTool.
func NewConfluenceSearchTool(pages PageService) *ConfluenceSearchTool {
	return &ConfluenceSearchTool{pages: pages}
}

// Definition returns the MCP tool definition for registration.
func (t *ConfluenceSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("confluence_search_pages",
		mcp.WithDescription("Search Confluence pages by text, optionally scoped to one space."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text search query"),
		),
		mcp.WithString("space_key",
			mcp.Description("Optional Confluence space key"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of pages to return (1-50, default 10)"),
		),
	)
}

// Handle processes the confluence_search_pages tool call.
func (t *ConfluenceSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	ctx = callContext(ctx, "confluence_search_pages")
	pages, err := t.pages.SearchPages(ctx, query,
		req.GetString("space_key", ""), int(req.GetFloat("limit", 0)))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"count": len(pages),
		"pages": pages,
	})
}
