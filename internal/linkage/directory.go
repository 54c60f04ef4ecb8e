package linkage

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Calendar description metadata keys. The description is a
// newline-separated key=value block embedded in the calendar's
// description field.
const (
	metaProjectKey = "jira_project_key"
	metaSpaceKey   = "confluence_space_key"
)

// ProjectCalendar is one entry of the project↔calendar namespace.
type ProjectCalendar struct {
	CalendarID   string
	ProjectKey   string
	WikiSpaceKey string
}

// Directory resolves project keys to calendars, creating and labeling
// calendars on first use. It owns no state: every lookup is a live call,
// so calendar creation performed by another process instance becomes
// visible immediately.
type Directory struct {
	cal Calendar
}

// NewDirectory returns a Directory backed by the given calendar capability.
func NewDirectory(cal Calendar) *Directory {
	return &Directory{cal: cal}
}

// FindOrCreate looks up the calendar named exactly projectKey, creating
// it with description metadata if absent. Creation is an upsert: a
// duplicate-name conflict from the external service is resolved by
// re-querying, not by locking, so concurrent calls for the same project
// converge on one calendar.
func (d *Directory) FindOrCreate(ctx context.Context, projectKey, wikiSpaceKey string) (string, error) {
	if id, err := d.find(ctx, projectKey); err != nil || id != "" {
		return id, err
	}

	id, err := d.cal.CreateCalendar(ctx, projectKey, formatDescription(projectKey, wikiSpaceKey))
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrConflict) {
		return "", errors.Wrapf(err, "creating calendar for project %s", projectKey)
	}

	// Lost the creation race: another caller provisioned the calendar
	// between our lookup and insert. Re-resolve once.
	id, err = d.find(ctx, projectKey)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.Wrapf(ErrConflict, "calendar for project %s conflicted but was not found on re-query", projectKey)
	}
	return id, nil
}

// List enumerates all calendars owned by the service account and parses
// their description metadata. Calendars without a parseable project key
// are omitted: they exist but are unmapped.
func (d *Directory) List(ctx context.Context) ([]ProjectCalendar, error) {
	infos, err := d.cal.ListCalendars(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing calendars")
	}
	var out []ProjectCalendar
	for _, info := range infos {
		meta := parseDescription(info.Description)
		projectKey := meta[metaProjectKey]
		if projectKey == "" {
			continue
		}
		out = append(out, ProjectCalendar{
			CalendarID:   info.ID,
			ProjectKey:   projectKey,
			WikiSpaceKey: meta[metaSpaceKey],
		})
	}
	return out, nil
}

func (d *Directory) find(ctx context.Context, projectKey string) (string, error) {
	infos, err := d.cal.ListCalendars(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "resolving calendar for project %s", projectKey)
	}
	for _, info := range infos {
		if info.Name == projectKey {
			return info.ID, nil
		}
	}
	return "", nil
}

func formatDescription(projectKey, wikiSpaceKey string) string {
	desc := fmt.Sprintf("%s=%s", metaProjectKey, projectKey)
	if wikiSpaceKey != "" {
		desc += fmt.Sprintf("\n%s=%s", metaSpaceKey, wikiSpaceKey)
	}
	return desc
}

// parseDescription reads the key=value metadata block. Malformed lines
// are skipped rather than fatal, degrading to "calendar exists but
// unmapped" when the project key line is missing.
func parseDescription(description string) map[string]string {
	meta := map[string]string{}
	for _, line := range strings.Split(description, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		meta[k] = v
	}
	return meta
}
