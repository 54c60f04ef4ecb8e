// Package gcal implements the calendar capability on the Google
// Calendar API with a service-account credential. Linkage payloads are
// stored in each event's private extended properties.
package gcal

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pmbridge/pmbridge/internal/linkage"
	"github.com/pmbridge/pmbridge/internal/logging"
)

// The linkage-owned private property keys. The events patch merges the
// private map instead of replacing it, so keys dropped from a record are
// blanked rather than deleted; the codec treats empty as absent.
var ownedKeys = []string{"issue_keys", "wiki_page_id", "project_key"}

// Client implements the calendar capability for one service account.
type Client struct {
	svc        *calendar.Service
	shareEmail string
}

var _ linkage.Calendar = (*Client)(nil)

// New builds a Client from a service-account JSON key. When shareEmail
// is set, calendars created by the directory are shared with that user.
func New(ctx context.Context, credentialsJSON []byte, shareEmail string) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, errors.Wrap(err, "parsing google service account credentials")
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, errors.Wrap(err, "building calendar service")
	}
	return &Client{svc: svc, shareEmail: shareEmail}, nil
}

// ListCalendars enumerates every calendar on the service account's list.
func (c *Client) ListCalendars(ctx context.Context) ([]linkage.CalendarInfo, error) {
	var infos []linkage.CalendarInfo
	err := c.svc.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			infos = append(infos, linkage.CalendarInfo{
				ID:          item.Id,
				Name:        item.Summary,
				Description: item.Description,
			})
		}
		return nil
	})
	if err != nil {
		return nil, directoryError(err)
	}
	return infos, nil
}

// CreateCalendar provisions a calendar and optionally shares it with the
// configured user. The share is best-effort: the calendar is already
// usable by the service account either way.
func (c *Client) CreateCalendar(ctx context.Context, name, description string) (string, error) {
	created, err := c.svc.Calendars.Insert(&calendar.Calendar{
		Summary:     name,
		Description: description,
	}).Context(ctx).Do()
	if err != nil {
		return "", directoryError(err)
	}
	if c.shareEmail != "" {
		_, err := c.svc.Acl.Insert(created.Id, &calendar.AclRule{
			Role:  "writer",
			Scope: &calendar.AclRuleScope{Type: "user", Value: c.shareEmail},
		}).Context(ctx).Do()
		if err != nil {
			logging.G(ctx).WithError(err).WithField("calendar", created.Id).Warn("could not share new calendar")
		}
	}
	return created.Id, nil
}

// AccessRule is one user-scoped ACL entry on a calendar.
type AccessRule struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ListAccessRules enumerates the user-scoped ACL entries of a calendar.
// Domain and default-scoped rules are omitted.
func (c *Client) ListAccessRules(ctx context.Context, calendarID string) ([]AccessRule, error) {
	acl, err := c.svc.Acl.List(calendarID).Context(ctx).Do()
	if err != nil {
		return nil, directoryError(err)
	}
	var rules []AccessRule
	for _, item := range acl.Items {
		if item.Scope != nil && item.Scope.Type == "user" {
			rules = append(rules, AccessRule{Email: item.Scope.Value, Role: item.Role})
		}
	}
	return rules, nil
}

// GrantAccess upserts a user ACL entry on the calendar. Idempotent:
// granting a role the user already holds is a no-op. Returns the action
// taken ("granted", "updated", or "already_granted").
func (c *Client) GrantAccess(ctx context.Context, calendarID, email, role string) (string, error) {
	rules, err := c.ListAccessRules(ctx, calendarID)
	if err != nil {
		return "", err
	}
	for _, rule := range rules {
		if !strings.EqualFold(rule.Email, email) {
			continue
		}
		if rule.Role == role {
			return "already_granted", nil
		}
		// ACL rule ids are "user:<email>".
		_, err := c.svc.Acl.Patch(calendarID, "user:"+email, &calendar.AclRule{Role: role}).Context(ctx).Do()
		if err != nil {
			return "", directoryError(err)
		}
		return "updated", nil
	}
	_, err = c.svc.Acl.Insert(calendarID, &calendar.AclRule{
		Role:  role,
		Scope: &calendar.AclRuleScope{Type: "user", Value: email},
	}).Context(ctx).Do()
	if err != nil {
		return "", directoryError(err)
	}
	return "granted", nil
}

// GetEvent fetches one event and its private properties.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (linkage.Event, error) {
	event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return linkage.Event{}, eventError(err, eventID)
	}
	return toLinkageEvent(event), nil
}

// PatchEvent writes the linkage-owned private properties of an event.
func (c *Client) PatchEvent(ctx context.Context, calendarID, eventID string, private map[string]string) error {
	merged := make(map[string]string, len(ownedKeys))
	for _, key := range ownedKeys {
		merged[key] = private[key]
	}
	patch := &calendar.Event{
		ExtendedProperties: &calendar.EventExtendedProperties{Private: merged},
	}
	if _, err := c.svc.Events.Patch(calendarID, eventID, patch).Context(ctx).Do(); err != nil {
		if statusOf(err) == http.StatusRequestEntityTooLarge {
			return &linkage.TooLargeError{Limit: linkage.SizeBudget, Actual: linkage.EncodedSize(private)}
		}
		return eventError(err, eventID)
	}
	return nil
}

// ListEvents enumerates events in the window with their private
// properties, expanding recurring events into single instances.
func (c *Client) ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]linkage.Event, error) {
	var events []linkage.Event
	call := c.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			events = append(events, toLinkageEvent(item))
		}
		return nil
	})
	if err != nil {
		return nil, directoryError(err)
	}
	return events, nil
}

// Meeting is the human-facing event view returned by the calendar tools.
type Meeting struct {
	ID        string   `json:"id"`
	Summary   string   `json:"summary"`
	Start     string   `json:"start,omitempty"`
	End       string   `json:"end,omitempty"`
	Location  string   `json:"location,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
}

// ListMeetings lists events in the window for display, optionally
// filtered by free-text query.
func (c *Client) ListMeetings(ctx context.Context, calendarID string, from, to time.Time, textQuery string, maxResults int64) ([]Meeting, error) {
	if maxResults <= 0 || maxResults > 250 {
		maxResults = 50
	}
	call := c.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults)
	if textQuery != "" {
		call = call.Q(textQuery)
	}
	page, err := call.Context(ctx).Do()
	if err != nil {
		return nil, directoryError(err)
	}

	meetings := make([]Meeting, 0, len(page.Items))
	for _, item := range page.Items {
		meeting := Meeting{
			ID:       item.Id,
			Summary:  item.Summary,
			Location: item.Location,
		}
		if item.Start != nil {
			meeting.Start = eventTime(item.Start)
		}
		if item.End != nil {
			meeting.End = eventTime(item.End)
		}
		for _, attendee := range item.Attendees {
			name := attendee.DisplayName
			if name == "" {
				name = attendee.Email
			}
			meeting.Attendees = append(meeting.Attendees, name)
		}
		meetings = append(meetings, meeting)
	}
	return meetings, nil
}

// eventTime handles all-day events (date) vs timed events (dateTime).
func eventTime(t *calendar.EventDateTime) string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

func toLinkageEvent(event *calendar.Event) linkage.Event {
	out := linkage.Event{ID: event.Id}
	if event.ExtendedProperties != nil {
		out.Private = event.ExtendedProperties.Private
	}
	return out
}

func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// directoryError maps calendar-service failures at directory call sites:
// duplicate-name races become ErrConflict, everything else means the
// directory is unavailable.
func directoryError(err error) error {
	if statusOf(err) == http.StatusConflict {
		return errors.Wrap(linkage.ErrConflict, err.Error())
	}
	return errors.Wrap(linkage.ErrDirectoryUnavailable, err.Error())
}

// eventError maps per-event failures: gone events are ErrEventNotFound,
// anything else is a calendar-service failure.
func eventError(err error, eventID string) error {
	switch statusOf(err) {
	case http.StatusNotFound, http.StatusGone:
		return errors.Wrapf(linkage.ErrEventNotFound, "event %s", eventID)
	case http.StatusConflict:
		return errors.Wrap(linkage.ErrConflict, err.Error())
	default:
		return errors.Wrap(linkage.ErrDirectoryUnavailable, err.Error())
	}
}
