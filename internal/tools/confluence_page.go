package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/pmbridge/pmbridge/internal/confluence"
)

// ConfluenceGetPageTool handles confluence_get_page.
type ConfluenceGetPageTool struct {
	pages PageService
}

// NewConfluenceGetPageTool creates a ConfluenceGetPageTool.
func NewConfluenceGetPageTool(pages PageService) *ConfluenceGetPageTool {
	return &ConfluenceGetPageTool{pages: pages}
}

// Definition returns the MCP tool definition for registration.
func (t *ConfluenceGetPageTool) Definition() mcp.Tool {
	return mcp.NewTool("confluence_get_page",
		mcp.WithDescription("Get a Confluence page by ID with its body rendered to plain text."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("Confluence page ID"),
		),
	)
}

// Handle processes the confluence_get_page tool call.
func (t *ConfluenceGetPageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("page_id", "")
	if pageID == "" {
		return mcp.NewToolResultError("'page_id' is required"), nil
	}

	ctx = callContext(ctx, "confluence_get_page")
	page, err := t.pages.GetPage(ctx, pageID)
	if err != nil {
		if errors.Is(err, confluence.ErrPageNotFound) {
			return mcp.NewToolResultError("Confluence page not found: " + pageID), nil
		}
		return errorResult(err), nil
	}
	return jsonResult(page)
}
