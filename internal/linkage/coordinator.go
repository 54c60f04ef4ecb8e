package linkage

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/pmbridge/pmbridge/internal/logging"
)

// Coordinator orchestrates the directory, codec, and label index to
// implement link/unlink/query with the documented consistency model:
// within one call, label mutations complete (or are deemed best-effort
// skippable) before the event payload write, so a reader observing the
// new payload can always resolve each listed issue back to its meeting.
//
// The Coordinator is stateless; concurrent overlapping links against the
// same event are a last-writer-wins race at the external store, since
// the calendar API offers no usable transactional update primitive.
type Coordinator struct {
	dir    *Directory
	cal    Calendar
	labels *LabelIndex

	now func() time.Time
}

// NewCoordinator wires a Coordinator over the two capabilities.
func NewCoordinator(cal Calendar, tracker Tracker) *Coordinator {
	return &Coordinator{
		dir:    NewDirectory(cal),
		cal:    cal,
		labels: NewLabelIndex(tracker),
		now:    time.Now,
	}
}

// Directory exposes the project↔calendar namespace owned by the
// coordinator, for callers that only need resolution or enumeration.
func (c *Coordinator) Directory() *Directory {
	return c.dir
}

// Link merges issueKeys (and optionally a wiki page) into the event's
// linkage record and mirrors each newly added issue with a reverse
// label. Re-linking an already linked pair is a no-op with identical
// resulting state. Aborts with zero side effects when the candidate
// payload exceeds the size budget, and before the payload write when any
// new issue cannot be labeled.
func (c *Coordinator) Link(ctx context.Context, projectKey, eventID string, issueKeys []string, wikiPageID string) (Record, error) {
	calendarID, event, existing, err := c.resolve(ctx, projectKey, eventID)
	if err != nil {
		return Record{}, err
	}

	candidate := Record{
		IssueKeys:  mergeKeys(existing.IssueKeys, issueKeys),
		WikiPageID: existing.WikiPageID,
		ProjectKey: projectKey,
	}
	if wikiPageID != "" {
		candidate.WikiPageID = wikiPageID
	}

	private := candidate.Encode()
	if err := ValidateSize(private); err != nil {
		return Record{}, err
	}

	// Issue→meeting visibility is published before meeting→issue: a new
	// key that cannot be labeled aborts the whole link so the payload is
	// never written with unresolvable keys.
	for _, key := range issueKeys {
		if existing.HasIssue(key) {
			continue
		}
		if _, err := c.labels.Apply(ctx, key, eventID); err != nil {
			return Record{}, err
		}
	}

	if recordsEqual(candidate, existing) {
		return candidate, nil
	}
	if err := c.cal.PatchEvent(ctx, calendarID, event.ID, private); err != nil {
		return Record{}, errors.Wrapf(err, "writing linkage record of event %s", eventID)
	}
	return candidate, nil
}

// Unlink removes issueKeys from the event's record. Reverse labels are
// removed first. An issue that no longer exists is logged and treated as
// already unlabeled — its deletion must not block cleanup of the meeting
// side. Any other label failure (a concurrent-edit conflict, a tracker
// outage) aborts before the payload write and surfaces to the caller,
// so a retry of the same call can converge. When removal empties the
// record it is written as empty; the event itself is never deleted.
func (c *Coordinator) Unlink(ctx context.Context, projectKey, eventID string, issueKeys []string) (Record, error) {
	calendarID, event, existing, err := c.resolve(ctx, projectKey, eventID)
	if err != nil {
		return Record{}, err
	}

	drop := map[string]bool{}
	for _, key := range issueKeys {
		drop[key] = true
	}

	var remaining []string
	var removeErrs *multierror.Error
	for _, key := range existing.IssueKeys {
		if !drop[key] {
			remaining = append(remaining, key)
			continue
		}
		err := c.labels.Remove(ctx, key, eventID)
		switch {
		case errors.Is(err, ErrIssueNotFound):
			logging.G(ctx).WithField("issue", key).Warn("issue gone, reverse label removal skipped")
		case err != nil:
			removeErrs = multierror.Append(removeErrs, err)
		}
	}
	if err := removeErrs.ErrorOrNil(); err != nil {
		return Record{}, errors.Wrapf(err, "removing reverse labels of event %s", eventID)
	}

	candidate := Record{
		IssueKeys:  remaining,
		WikiPageID: existing.WikiPageID,
		ProjectKey: projectKey,
	}
	if len(remaining) == 0 && existing.WikiPageID == "" {
		candidate = Record{}
	}

	if err := c.cal.PatchEvent(ctx, calendarID, event.ID, candidate.Encode()); err != nil {
		return Record{}, errors.Wrapf(err, "writing linkage record of event %s", eventID)
	}
	return candidate, nil
}

// MeetingIssues returns the event's linkage record. An event with no
// record yields the empty record; a missing event is ErrEventNotFound.
// The record is authoritative over label presence when the two disagree.
func (c *Coordinator) MeetingIssues(ctx context.Context, projectKey, eventID string) (Record, error) {
	_, _, record, err := c.resolve(ctx, projectKey, eventID)
	return record, err
}

// LinkedMeetings is the reverse lookup: every event id carried by the
// issue's gcal: labels.
func (c *Coordinator) LinkedMeetings(ctx context.Context, issueKey string) ([]string, error) {
	return c.labels.LinkedMeetings(ctx, issueKey)
}

// Snapshot aggregates linkage state over one project's calendar within a
// bounded lookback window. It is a fold over live data, not new state.
type Snapshot struct {
	ProjectKey   string
	CalendarID   string
	WindowStart  time.Time
	WindowEnd    time.Time
	EventCount   int
	LinkedEvents int
	IssueKeys    []string
}

// ProjectSnapshot folds the project calendar's events in the lookback
// window into linkage counts and the distinct set of linked issue keys.
func (c *Coordinator) ProjectSnapshot(ctx context.Context, projectKey string, lookback time.Duration) (Snapshot, error) {
	calendarID, err := c.dir.FindOrCreate(ctx, projectKey, "")
	if err != nil {
		return Snapshot{}, err
	}
	end := c.now()
	start := end.Add(-lookback)

	events, err := c.cal.ListEvents(ctx, calendarID, start, end)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "listing events of project %s", projectKey)
	}

	snap := Snapshot{
		ProjectKey:  projectKey,
		CalendarID:  calendarID,
		WindowStart: start,
		WindowEnd:   end,
		EventCount:  len(events),
	}
	seen := map[string]bool{}
	for _, event := range events {
		record := DecodeRecord(event.Private)
		if record.Empty() {
			continue
		}
		snap.LinkedEvents++
		for _, key := range record.IssueKeys {
			if !seen[key] {
				seen[key] = true
				snap.IssueKeys = append(snap.IssueKeys, key)
			}
		}
	}
	sort.Strings(snap.IssueKeys)
	return snap, nil
}

// RebuildReport summarizes one index rebuild pass.
type RebuildReport struct {
	EventsScanned int
	LinkedEvents  int
	LabelsApplied int
	MissingIssues []string
}

// RebuildIndex rescans the project calendar and re-applies any reverse
// label missing from a linked issue. The label side is a derived index
// rebuildable by full scan; issues that no longer exist are reported,
// not fatal. Stale labels are not removed here — the tracker capability
// cannot enumerate issues by label prefix.
func (c *Coordinator) RebuildIndex(ctx context.Context, projectKey string, lookback time.Duration) (RebuildReport, error) {
	calendarID, err := c.dir.FindOrCreate(ctx, projectKey, "")
	if err != nil {
		return RebuildReport{}, err
	}
	end := c.now()
	events, err := c.cal.ListEvents(ctx, calendarID, end.Add(-lookback), end)
	if err != nil {
		return RebuildReport{}, errors.Wrapf(err, "listing events of project %s", projectKey)
	}

	report := RebuildReport{EventsScanned: len(events)}
	var errs *multierror.Error
	for _, event := range events {
		record := DecodeRecord(event.Private)
		if record.Empty() {
			continue
		}
		report.LinkedEvents++
		for _, key := range record.IssueKeys {
			added, err := c.labels.Apply(ctx, key, event.ID)
			switch {
			case errors.Is(err, ErrIssueNotFound):
				report.MissingIssues = append(report.MissingIssues, key)
			case err != nil:
				errs = multierror.Append(errs, err)
			case added:
				report.LabelsApplied++
			}
		}
	}
	return report, errs.ErrorOrNil()
}

// resolve maps the project to its calendar, fetches the event, and
// decodes its record, enforcing the project/calendar correspondence.
func (c *Coordinator) resolve(ctx context.Context, projectKey, eventID string) (string, Event, Record, error) {
	calendarID, err := c.dir.FindOrCreate(ctx, projectKey, "")
	if err != nil {
		return "", Event{}, Record{}, err
	}
	event, err := c.cal.GetEvent(ctx, calendarID, eventID)
	if err != nil {
		return "", Event{}, Record{}, errors.Wrapf(err, "reading event %s", eventID)
	}
	record := DecodeRecord(event.Private)
	if record.ProjectKey != "" && record.ProjectKey != projectKey {
		return "", Event{}, Record{}, errors.Wrapf(ErrProjectMismatch, "event %s is recorded under project %s", eventID, record.ProjectKey)
	}
	return calendarID, event, record, nil
}

func mergeKeys(existing, added []string) []string {
	merged := append([]string(nil), existing...)
	seen := map[string]bool{}
	for _, key := range existing {
		seen[key] = true
	}
	for _, key := range added {
		if key != "" && !seen[key] {
			seen[key] = true
			merged = append(merged, key)
		}
	}
	return merged
}

func recordsEqual(a, b Record) bool {
	if a.WikiPageID != b.WikiPageID || a.ProjectKey != b.ProjectKey || len(a.IssueKeys) != len(b.IssueKeys) {
		return false
	}
	for _, key := range a.IssueKeys {
		if !b.HasIssue(key) {
			return false
		}
	}
	return true
}
