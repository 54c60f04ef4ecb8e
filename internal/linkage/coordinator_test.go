package linkage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, issueKeys ...string) (*Coordinator, *fakeCalendar, *fakeTracker, *callLog) {
	t.Helper()
	log := &callLog{}
	cal := newFakeCalendar(log)
	tracker := newFakeTracker(log, issueKeys...)
	return NewCoordinator(cal, tracker), cal, tracker, log
}

func indexOf(calls []string, want string) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}

func TestCoordinatorLink(t *testing.T) {
	ctx := context.Background()

	t.Run("first link writes record and labels", func(t *testing.T) {
		coord, cal, tracker, log := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)

		rec, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1", "ALPHA-2"}, "12345")
		require.NoError(t, err)
		assert.Equal(t, []string{"ALPHA-1", "ALPHA-2"}, rec.IssueKeys)
		assert.Equal(t, "12345", rec.WikiPageID)
		assert.Equal(t, "ALPHA", rec.ProjectKey)

		event, err := cal.GetEvent(ctx, calID, "e1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"issue_keys":   "ALPHA-1,ALPHA-2",
			"wiki_page_id": "12345",
			"project_key":  "ALPHA",
		}, event.Private)

		assert.Equal(t, []string{"gcal:e1"}, tracker.labelsOf("ALPHA-1"))
		assert.Equal(t, []string{"gcal:e1"}, tracker.labelsOf("ALPHA-2"))

		readBack, err := coord.MeetingIssues(ctx, "ALPHA", "e1")
		require.NoError(t, err)
		assert.Equal(t, rec, readBack)

		// Both label writes land before the payload write.
		calls := log.all()
		patchAt := indexOf(calls, "calendar.patch e1")
		require.GreaterOrEqual(t, patchAt, 0)
		for _, key := range []string{"ALPHA-1", "ALPHA-2"} {
			setAt := indexOf(calls, "tracker.set "+key)
			require.GreaterOrEqual(t, setAt, 0)
			assert.Less(t, setAt, patchAt, "label write for %s must precede the payload write", key)
		}
	})

	t.Run("relink is idempotent", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t, "ALPHA-1")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)

		first, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.NoError(t, err)
		patchesAfterFirst := cal.patchCount()
		setsAfterFirst := tracker.setCount()

		second, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, patchesAfterFirst, cal.patchCount(), "identical relink must not rewrite the payload")
		assert.Equal(t, setsAfterFirst, tracker.setCount(), "identical relink must not rewrite labels")
	})

	t.Run("link merges monotonically", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)

		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-2"}, "")
		require.NoError(t, err)
		rec, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"ALPHA-2", "ALPHA-1"}, rec.IssueKeys)

		event, err := cal.GetEvent(ctx, calID, "e1")
		require.NoError(t, err)
		assert.Equal(t, "ALPHA-1,ALPHA-2", event.Private["issue_keys"], "stored form is sorted")
	})

	t.Run("wiki page survives a later link without one", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)

		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "12345")
		require.NoError(t, err)
		rec, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-2"}, "")
		require.NoError(t, err)
		assert.Equal(t, "12345", rec.WikiPageID)
	})

	t.Run("oversized payload aborts with zero side effects", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t)
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", map[string]string{"issue_keys": "ALPHA-1", "project_key": "ALPHA"})

		keys := make([]string, 800)
		for i := range keys {
			keys[i] = fmt.Sprintf("ALPHA-%04d", i)
		}
		_, err := coord.Link(ctx, "ALPHA", "e1", keys, "")

		var tooLarge *TooLargeError
		require.ErrorAs(t, err, &tooLarge)
		assert.Greater(t, tooLarge.Actual, tooLarge.Limit)

		assert.Equal(t, 0, tracker.setCount(), "no label may be written on a rejected link")
		assert.Equal(t, 0, cal.patchCount(), "no payload may be written on a rejected link")

		event, err := cal.GetEvent(ctx, calID, "e1")
		require.NoError(t, err)
		assert.Equal(t, "ALPHA-1", event.Private["issue_keys"], "existing record untouched")
	})

	t.Run("label failure aborts before the payload write", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t, "ALPHA-1")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)
		tracker.setErr = errors.New("tracker down")

		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.Error(t, err)
		assert.Equal(t, 0, cal.patchCount())
	})

	t.Run("unknown issue fails the link", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t)
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)

		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"GHOST-1"}, "")
		require.ErrorIs(t, err, ErrIssueNotFound)
		assert.Equal(t, 0, cal.patchCount())
	})

	t.Run("missing event", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1")
		cal.addCalendar("ALPHA", "jira_project_key=ALPHA")

		_, err := coord.Link(ctx, "ALPHA", "nope", []string{"ALPHA-1"}, "")
		require.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("event recorded under another project", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", map[string]string{"project_key": "BETA"})

		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.ErrorIs(t, err, ErrProjectMismatch)
	})

	t.Run("provisions the project calendar on first use", func(t *testing.T) {
		coord, _, _, _ := newTestCoordinator(t, "ALPHA-1")

		// No calendar exists yet; linking must create it, then fail only
		// on the still-missing event.
		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.ErrorIs(t, err, ErrEventNotFound)

		entries, err := coord.Directory().List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "ALPHA", entries[0].ProjectKey)
	})
}

func TestCoordinatorUnlink(t *testing.T) {
	ctx := context.Background()

	t.Run("removes issue and its label", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)
		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1", "ALPHA-2"}, "12345")
		require.NoError(t, err)

		rec, err := coord.Unlink(ctx, "ALPHA", "e1", []string{"ALPHA-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ALPHA-2"}, rec.IssueKeys)
		assert.Equal(t, "12345", rec.WikiPageID)

		assert.Empty(t, tracker.labelsOf("ALPHA-1"))
		assert.Equal(t, []string{"gcal:e1"}, tracker.labelsOf("ALPHA-2"))
	})

	t.Run("unlinking the last issue empties the record", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)
		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.NoError(t, err)

		rec, err := coord.Unlink(ctx, "ALPHA", "e1", []string{"ALPHA-1"})
		require.NoError(t, err)
		assert.True(t, rec.Empty())

		event, err := cal.GetEvent(ctx, calID, "e1")
		require.NoError(t, err)
		assert.Empty(t, event.Private, "the event survives with no linkage payload")
	})

	t.Run("unlink is idempotent", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)

		rec, err := coord.Unlink(ctx, "ALPHA", "e1", []string{"ALPHA-1"})
		require.NoError(t, err)
		assert.True(t, rec.Empty())
	})

	t.Run("label removal failure does not block the payload cleanup", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)
		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1", "ALPHA-2"}, "")
		require.NoError(t, err)

		// The issue disappears between link and unlink.
		tracker.missing["ALPHA-1"] = true

		rec, err := coord.Unlink(ctx, "ALPHA", "e1", []string{"ALPHA-1", "ALPHA-2"})
		require.NoError(t, err)
		assert.True(t, rec.Empty())

		event, err := cal.GetEvent(ctx, calID, "e1")
		require.NoError(t, err)
		assert.Empty(t, event.Private)
	})

	t.Run("conflicting label removal aborts before the payload write", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)
		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1", "ALPHA-2"}, "")
		require.NoError(t, err)
		patchesAfterLink := cal.patchCount()

		// Only issue-gone is best effort; anything else must surface.
		tracker.setErr = ErrConflict

		_, err = coord.Unlink(ctx, "ALPHA", "e1", []string{"ALPHA-1"})
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, patchesAfterLink, cal.patchCount(), "payload must stay intact so a retry can converge")

		rec, err := coord.MeetingIssues(ctx, "ALPHA", "e1")
		require.NoError(t, err)
		assert.Equal(t, []string{"ALPHA-1", "ALPHA-2"}, rec.IssueKeys)
	})

	t.Run("link then unlink restores the prior state", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)
		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.NoError(t, err)
		before, err := coord.MeetingIssues(ctx, "ALPHA", "e1")
		require.NoError(t, err)

		_, err = coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-2"}, "")
		require.NoError(t, err)
		after, err := coord.Unlink(ctx, "ALPHA", "e1", []string{"ALPHA-2"})
		require.NoError(t, err)

		assert.Equal(t, before.IssueKeys, after.IssueKeys)
		assert.Empty(t, tracker.labelsOf("ALPHA-2"))
	})
}

func TestCoordinatorQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("meeting issues on an unlinked event", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t)
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)

		rec, err := coord.MeetingIssues(ctx, "ALPHA", "e1")
		require.NoError(t, err)
		assert.True(t, rec.Empty())
	})

	t.Run("reverse consistency after link", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", nil)
		cal.addEvent(calID, "e2", nil)

		_, err := coord.Link(ctx, "ALPHA", "e1", []string{"ALPHA-1"}, "")
		require.NoError(t, err)
		_, err = coord.Link(ctx, "ALPHA", "e2", []string{"ALPHA-1"}, "")
		require.NoError(t, err)

		ids, err := coord.LinkedMeetings(ctx, "ALPHA-1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"e1", "e2"}, ids)
	})
}

func TestCoordinatorProjectSnapshot(t *testing.T) {
	ctx := context.Background()
	coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
	calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
	cal.addEvent(calID, "e1", map[string]string{"issue_keys": "ALPHA-2,ALPHA-1", "project_key": "ALPHA"})
	cal.addEvent(calID, "e2", map[string]string{"issue_keys": "ALPHA-1", "project_key": "ALPHA"})
	cal.addEvent(calID, "e3", nil)

	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	coord.now = func() time.Time { return fixed }

	snap, err := coord.ProjectSnapshot(ctx, "ALPHA", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "ALPHA", snap.ProjectKey)
	assert.Equal(t, calID, snap.CalendarID)
	assert.Equal(t, fixed, snap.WindowEnd)
	assert.Equal(t, fixed.Add(-30*24*time.Hour), snap.WindowStart)
	assert.Equal(t, 3, snap.EventCount)
	assert.Equal(t, 2, snap.LinkedEvents)
	assert.Equal(t, []string{"ALPHA-1", "ALPHA-2"}, snap.IssueKeys)
}

func TestCoordinatorRebuildIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("reapplies missing labels", func(t *testing.T) {
		coord, cal, tracker, _ := newTestCoordinator(t, "ALPHA-1", "ALPHA-2")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", map[string]string{"issue_keys": "ALPHA-1,ALPHA-2", "project_key": "ALPHA"})
		cal.addEvent(calID, "e2", nil)

		// ALPHA-1 already carries its label; ALPHA-2 lost it.
		tracker.labels["ALPHA-1"] = []string{"gcal:e1"}

		report, err := coord.RebuildIndex(ctx, "ALPHA", 30*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, report.EventsScanned)
		assert.Equal(t, 1, report.LinkedEvents)
		assert.Equal(t, 1, report.LabelsApplied)
		assert.Empty(t, report.MissingIssues)
		assert.Equal(t, []string{"gcal:e1"}, tracker.labelsOf("ALPHA-2"))
	})

	t.Run("reports issues that no longer exist", func(t *testing.T) {
		coord, cal, _, _ := newTestCoordinator(t, "ALPHA-1")
		calID := cal.addCalendar("ALPHA", "jira_project_key=ALPHA")
		cal.addEvent(calID, "e1", map[string]string{"issue_keys": "ALPHA-1,GONE-9", "project_key": "ALPHA"})

		report, err := coord.RebuildIndex(ctx, "ALPHA", 30*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, []string{"GONE-9"}, report.MissingIssues)
		assert.Equal(t, 1, report.LabelsApplied)
	})
}
