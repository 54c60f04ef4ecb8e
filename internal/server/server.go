// Package server wires the capability clients, the linkage coordinator,
// and all MCP tools into a server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools that depend on abstractions. No business
// logic lives here — only wiring.
package server

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/pmbridge/pmbridge/internal/config"
	"github.com/pmbridge/pmbridge/internal/confluence"
	"github.com/pmbridge/pmbridge/internal/gcal"
	"github.com/pmbridge/pmbridge/internal/jira"
	"github.com/pmbridge/pmbridge/internal/linkage"
	"github.com/pmbridge/pmbridge/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with every tool registered.
// This is the single place where all dependencies are resolved.
func New(ctx context.Context, settings *config.Settings) (*server.MCPServer, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	// --- Capability clients ---

	credentials, err := settings.GoogleCredentials()
	if err != nil {
		return nil, err
	}
	calendarClient, err := gcal.New(ctx, credentials, settings.CalendarShareEmail)
	if err != nil {
		return nil, errors.Wrap(err, "creating calendar client")
	}
	jiraClient := jira.New(settings.JiraBaseURL, settings.AtlassianEmail, settings.AtlassianAPIToken)
	confluenceClient := confluence.New(settings.ConfluenceBaseURL, settings.AtlassianEmail, settings.AtlassianAPIToken)

	coordinator := linkage.NewCoordinator(calendarClient, jiraClient)

	// --- MCP server ---

	s := server.NewMCPServer(
		"pmbridge",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- PM layer tools ---

	linkTool := tools.NewLinkTool(coordinator)
	s.AddTool(linkTool.Definition(), linkTool.Handle)

	unlinkTool := tools.NewUnlinkTool(coordinator)
	s.AddTool(unlinkTool.Definition(), unlinkTool.Handle)

	meetingIssuesTool := tools.NewMeetingIssuesTool(coordinator, jiraClient)
	s.AddTool(meetingIssuesTool.Definition(), meetingIssuesTool.Handle)

	snapshotTool := tools.NewSnapshotTool(coordinator, jiraClient, settings.SnapshotLookbackDays)
	s.AddTool(snapshotTool.Definition(), snapshotTool.Handle)

	rebuildTool := tools.NewRebuildTool(coordinator, settings.SnapshotLookbackDays)
	s.AddTool(rebuildTool.Definition(), rebuildTool.Handle)

	// --- Jira wrappers ---

	getIssueTool := tools.NewJiraGetIssueTool(jiraClient)
	s.AddTool(getIssueTool.Definition(), getIssueTool.Handle)

	listIssuesTool := tools.NewJiraListIssuesTool(jiraClient)
	s.AddTool(listIssuesTool.Definition(), listIssuesTool.Handle)

	createIssueTool := tools.NewJiraCreateIssueTool(jiraClient)
	s.AddTool(createIssueTool.Definition(), createIssueTool.Handle)

	createBatchTool := tools.NewJiraCreateIssuesBatchTool(jiraClient)
	s.AddTool(createBatchTool.Definition(), createBatchTool.Handle)

	updateIssueTool := tools.NewJiraUpdateIssueTool(jiraClient)
	s.AddTool(updateIssueTool.Definition(), updateIssueTool.Handle)

	addCommentTool := tools.NewJiraAddCommentTool(jiraClient)
	s.AddTool(addCommentTool.Definition(), addCommentTool.Handle)

	// --- Calendar wrappers ---

	directory := coordinator.Directory()

	listEventsTool := tools.NewCalendarListEventsTool(directory, calendarClient)
	s.AddTool(listEventsTool.Definition(), listEventsTool.Handle)

	listCalendarsTool := tools.NewCalendarListCalendarsTool(directory)
	s.AddTool(listCalendarsTool.Definition(), listCalendarsTool.Handle)

	findCalendarTool := tools.NewCalendarFindTool(directory)
	s.AddTool(findCalendarTool.Definition(), findCalendarTool.Handle)

	verifyAccessTool := tools.NewCalendarVerifyAccessTool(directory, calendarClient, settings.CalendarShareEmail)
	s.AddTool(verifyAccessTool.Definition(), verifyAccessTool.Handle)

	grantAccessTool := tools.NewCalendarGrantAccessTool(directory, calendarClient)
	s.AddTool(grantAccessTool.Definition(), grantAccessTool.Handle)

	// --- Confluence wrappers ---

	searchPagesTool := tools.NewConfluenceSearchTool(confluenceClient)
	s.AddTool(searchPagesTool.Definition(), searchPagesTool.Handle)

	getPageTool := tools.NewConfluenceGetPageTool(confluenceClient)
	s.AddTool(getPageTool.Definition(), getPageTool.Handle)

	createPageTool := tools.NewConfluenceCreatePageTool(confluenceClient)
	s.AddTool(createPageTool.Definition(), createPageTool.Handle)

	return s, nil
}

func serverInstructions() string {
	return `pmbridge integrates Jira, Confluence and Google Calendar behind one tool surface.

Each Jira project gets its own calendar, named after the project key and
provisioned automatically on first use. Meetings link to issues through
pm_link_meeting_issues; the link is readable from both sides
(pm_get_meeting_issues for a meeting, the gcal:<event_id> label on an
issue for the reverse). Typical flow after a meeting:

1. confluence_create_meeting_page for the meeting notes
2. jira_create_issues_batch for the action items
3. pm_link_meeting_issues with the meeting's calendar_event_id
4. pm_get_project_snapshot to check overall project health`
}
