package linkage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// labelPrefix marks reverse-lookup labels on tracker issues. The full
// literal is "gcal:<event_id>" with the event identifier untransformed.
const labelPrefix = "gcal:"

// MeetingLabel returns the reverse-lookup label literal for an event.
func MeetingLabel(eventID string) string {
	return labelPrefix + eventID
}

// LabelIndex derives, applies, and removes reverse-lookup labels on
// tracker issues. The label set is a rebuildable mirror of "this issue
// appears in some event's record" — eventually, not transactionally,
// consistent with the event side.
type LabelIndex struct {
	tracker Tracker
}

// NewLabelIndex returns a LabelIndex over the given tracker capability.
func NewLabelIndex(tracker Tracker) *LabelIndex {
	return &LabelIndex{tracker: tracker}
}

// Apply idempotently ensures the meeting label is present on the issue.
// Reports whether the label was added (false means it was already there).
func (ix *LabelIndex) Apply(ctx context.Context, issueKey, eventID string) (bool, error) {
	label := MeetingLabel(eventID)
	labels, err := ix.tracker.IssueLabels(ctx, issueKey)
	if err != nil {
		return false, errors.Wrapf(err, "reading labels of %s", issueKey)
	}
	for _, l := range labels {
		if l == label {
			return false, nil
		}
	}
	if err := ix.tracker.SetIssueLabels(ctx, issueKey, append(labels, label)); err != nil {
		return false, errors.Wrapf(err, "labeling %s with %s", issueKey, label)
	}
	return true, nil
}

// Remove idempotently ensures the meeting label is absent on the issue.
func (ix *LabelIndex) Remove(ctx context.Context, issueKey, eventID string) error {
	label := MeetingLabel(eventID)
	labels, err := ix.tracker.IssueLabels(ctx, issueKey)
	if err != nil {
		return errors.Wrapf(err, "reading labels of %s", issueKey)
	}
	kept := labels[:0]
	for _, l := range labels {
		if l != label {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(labels) {
		return nil
	}
	if err := ix.tracker.SetIssueLabels(ctx, issueKey, kept); err != nil {
		return errors.Wrapf(err, "removing label %s from %s", label, issueKey)
	}
	return nil
}

// LinkedMeetings parses the issue's labels and returns the event ids of
// every meeting linked to it. Labels that do not match the expected
// shape are ignored, not errors.
func (ix *LabelIndex) LinkedMeetings(ctx context.Context, issueKey string) ([]string, error) {
	labels, err := ix.tracker.IssueLabels(ctx, issueKey)
	if err != nil {
		return nil, errors.Wrapf(err, "reading labels of %s", issueKey)
	}
	var eventIDs []string
	for _, l := range labels {
		if id := strings.TrimPrefix(l, labelPrefix); id != l && id != "" {
			eventIDs = append(eventIDs, id)
		}
	}
	return eventIDs, nil
}
