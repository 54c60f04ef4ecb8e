package linkage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelIndexApply(t *testing.T) {
	ctx := context.Background()

	t.Run("adds label once", func(t *testing.T) {
		tracker := newFakeTracker(&callLog{}, "ALPHA-1")

		ix := NewLabelIndex(tracker)
		added, err := ix.Apply(ctx, "ALPHA-1", "evt1")
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, []string{"gcal:evt1"}, tracker.labelsOf("ALPHA-1"))

		// Second apply is a no-op.
		added, err = ix.Apply(ctx, "ALPHA-1", "evt1")
		require.NoError(t, err)
		assert.False(t, added)
		assert.Equal(t, []string{"gcal:evt1"}, tracker.labelsOf("ALPHA-1"))
	})

	t.Run("preserves unrelated labels", func(t *testing.T) {
		tracker := newFakeTracker(&callLog{}, "ALPHA-1")
		tracker.labels["ALPHA-1"] = []string{"urgent", "backend"}

		ix := NewLabelIndex(tracker)
		_, err := ix.Apply(ctx, "ALPHA-1", "evt1")
		require.NoError(t, err)
		assert.Equal(t, []string{"urgent", "backend", "gcal:evt1"}, tracker.labelsOf("ALPHA-1"))
	})

	t.Run("missing issue", func(t *testing.T) {
		tracker := newFakeTracker(&callLog{})

		ix := NewLabelIndex(tracker)
		_, err := ix.Apply(ctx, "GHOST-1", "evt1")
		require.ErrorIs(t, err, ErrIssueNotFound)
	})
}

func TestLabelIndexRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only the meeting label", func(t *testing.T) {
		tracker := newFakeTracker(&callLog{}, "ALPHA-1")
		tracker.labels["ALPHA-1"] = []string{"gcal:evt1", "urgent", "gcal:evt2"}

		ix := NewLabelIndex(tracker)
		require.NoError(t, ix.Remove(ctx, "ALPHA-1", "evt1"))
		assert.Equal(t, []string{"urgent", "gcal:evt2"}, tracker.labelsOf("ALPHA-1"))
	})

	t.Run("absent label skips the write", func(t *testing.T) {
		tracker := newFakeTracker(&callLog{}, "ALPHA-1")
		tracker.labels["ALPHA-1"] = []string{"urgent"}

		ix := NewLabelIndex(tracker)
		require.NoError(t, ix.Remove(ctx, "ALPHA-1", "evt1"))
		assert.Equal(t, 0, tracker.setCount())
	})
}

func TestLabelIndexLinkedMeetings(t *testing.T) {
	tracker := newFakeTracker(&callLog{}, "ALPHA-1")
	tracker.labels["ALPHA-1"] = []string{"gcal:evt1", "urgent", "gcal:", "gcal:evt2"}

	ix := NewLabelIndex(tracker)
	ids, err := ix.LinkedMeetings(context.Background(), "ALPHA-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"evt1", "evt2"}, ids)
}

func TestMeetingLabel(t *testing.T) {
	assert.Equal(t, "gcal:abc123", MeetingLabel("abc123"))
}
