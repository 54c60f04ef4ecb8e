// Package linkage maintains the bidirectional index between calendar
// meetings and tracker issues without a dedicated database.
//
// The meeting side of a link lives in the event's private property blob
// (the Record); the issue side is a derived "gcal:<event_id>" label on
// each linked issue. Both external systems are the stores of record —
// this package holds no state of its own and every operation is a live
// round trip.
package linkage

import (
	"context"
	"time"
)

// Tracker is the issue-tracker capability the linkage layer consumes.
// Implementations must map their transport errors onto the taxonomy in
// errors.go (ErrIssueNotFound, ErrConflict) before returning.
type Tracker interface {
	// IssueLabels returns the current label set of an issue.
	IssueLabels(ctx context.Context, issueKey string) ([]string, error)

	// SetIssueLabels replaces the issue's label set.
	SetIssueLabels(ctx context.Context, issueKey string, labels []string) error
}

// Calendar is the calendar capability the linkage layer consumes.
// Implementations must map their transport errors onto the taxonomy in
// errors.go (ErrEventNotFound, ErrConflict, ErrDirectoryUnavailable)
// before returning.
type Calendar interface {
	// ListCalendars enumerates every calendar the service account owns.
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)

	// CreateCalendar creates a calendar and returns its identifier.
	// Returns ErrConflict if a calendar with the same name already exists.
	CreateCalendar(ctx context.Context, name, description string) (string, error)

	// GetEvent fetches one event with its private properties.
	GetEvent(ctx context.Context, calendarID, eventID string) (Event, error)

	// PatchEvent replaces the linkage-owned private properties of an
	// event with the given mapping. Keys absent from the mapping are
	// cleared on the stored event.
	PatchEvent(ctx context.Context, calendarID, eventID string, private map[string]string) error

	// ListEvents enumerates events in the [from, to) window.
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error)
}

// CalendarInfo is the subset of calendar metadata the directory needs.
type CalendarInfo struct {
	ID          string
	Name        string
	Description string
}

// Event is the subset of event data the linkage layer reads and writes.
type Event struct {
	ID      string
	Private map[string]string
}
