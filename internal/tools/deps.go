// Package tools implements the MCP tool handlers for the PM layer and
// the Jira/Calendar/Confluence wrappers.
//
// Each tool is a struct receiving its dependencies via constructor and
// exposing Definition() for registration and Handle() for calls. Tools
// depend on the narrow interfaces below, not on concrete clients.
package tools

import (
	"context"
	"time"

	"github.com/pmbridge/pmbridge/internal/confluence"
	"github.com/pmbridge/pmbridge/internal/gcal"
	"github.com/pmbridge/pmbridge/internal/jira"
	"github.com/pmbridge/pmbridge/internal/linkage"
)

// Linker is the linkage coordinator contract the PM tools call.
type Linker interface {
	Link(ctx context.Context, projectKey, eventID string, issueKeys []string, wikiPageID string) (linkage.Record, error)
	Unlink(ctx context.Context, projectKey, eventID string, issueKeys []string) (linkage.Record, error)
	MeetingIssues(ctx context.Context, projectKey, eventID string) (linkage.Record, error)
	ProjectSnapshot(ctx context.Context, projectKey string, lookback time.Duration) (linkage.Snapshot, error)
	RebuildIndex(ctx context.Context, projectKey string, lookback time.Duration) (linkage.RebuildReport, error)
}

// IssueService is the Jira surface the wrapper tools call.
type IssueService interface {
	GetIssue(ctx context.Context, issueKey string) (jira.Issue, error)
	SearchIssues(ctx context.Context, filter jira.SearchFilter) ([]jira.Issue, error)
	CreateIssue(ctx context.Context, input jira.CreateIssueInput) (jira.Issue, error)
	UpdateIssue(ctx context.Context, issueKey string, input jira.UpdateIssueInput) (jira.Issue, error)
	AddComment(ctx context.Context, issueKey, body string) error
}

// PageService is the Confluence surface the wrapper tools call.
type PageService interface {
	SearchPages(ctx context.Context, query, spaceKey string, limit int) ([]confluence.Page, error)
	GetPage(ctx context.Context, pageID string) (confluence.Page, error)
	CreatePage(ctx context.Context, spaceKey, title, body, parentPageID string) (confluence.Page, error)
}

// AccessManager reads and grants calendar ACL entries.
type AccessManager interface {
	ListAccessRules(ctx context.Context, calendarID string) ([]gcal.AccessRule, error)
	GrantAccess(ctx context.Context, calendarID, email, role string) (string, error)
}

// MeetingSource lists calendar events for display.
type MeetingSource interface {
	ListMeetings(ctx context.Context, calendarID string, from, to time.Time, textQuery string, maxResults int64) ([]gcal.Meeting, error)
}

// CalendarDirectory resolves and enumerates project calendars.
type CalendarDirectory interface {
	FindOrCreate(ctx context.Context, projectKey, wikiSpaceKey string) (string, error)
	List(ctx context.Context) ([]linkage.ProjectCalendar, error)
}
