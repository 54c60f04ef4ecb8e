package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pmbridge/pmbridge/internal/linkage"
	"github.com/pmbridge/pmbridge/internal/logging"
)

// callContext tags the context logger with the tool name and a per-call
// correlation id.
func callContext(ctx context.Context, tool string) context.Context {
	entry := logging.G(ctx).WithFields(logrus.Fields{
		"tool":    tool,
		"call_id": uuid.NewString(),
	})
	return logging.WithLogger(ctx, entry)
}

// jsonResult renders v as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult converts a linkage-taxonomy error into a tool error with a
// message the calling agent can act on. Unrecognized errors pass through
// with their wrapped context.
func errorResult(err error) *mcp.CallToolResult {
	var tooLarge *linkage.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		return mcp.NewToolResultError(fmt.Sprintf(
			"Linkage payload too large: %d bytes attempted, %d allowed. Drop the confluence_page_id or split issues across events.",
			tooLarge.Actual, tooLarge.Limit,
		))
	case errors.Is(err, linkage.ErrProjectMismatch):
		return mcp.NewToolResultError("Project mismatch: " + err.Error())
	case errors.Is(err, linkage.ErrEventNotFound):
		return mcp.NewToolResultError("Calendar event not found: " + err.Error())
	case errors.Is(err, linkage.ErrIssueNotFound):
		return mcp.NewToolResultError("Jira issue not found: " + err.Error())
	case errors.Is(err, linkage.ErrConflict):
		return mcp.NewToolResultError("Concurrent update conflict, retry the call: " + err.Error())
	case errors.Is(err, linkage.ErrDirectoryUnavailable):
		return mcp.NewToolResultError("Calendar service unavailable: " + err.Error())
	case errors.Is(err, linkage.ErrTrackerUnavailable):
		return mcp.NewToolResultError("Issue tracker unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

// parseTime parses an optional ISO 8601 parameter, falling back to def.
func parseTime(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid timestamp %q", raw)
	}
	return t, nil
}

// lookbackFrom converts the lookback_days parameter (0 means default).
func lookbackFrom(days float64, defaultDays int) time.Duration {
	if days <= 0 {
		days = float64(defaultDays)
	}
	return time.Duration(days) * 24 * time.Hour
}
