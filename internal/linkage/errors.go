package linkage

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds surfaced by linkage operations. Capability implementations
// wrap their transport errors into these at the boundary; callers match
// with errors.Is / errors.As and never see raw transport errors.
var (
	// ErrDirectoryUnavailable means the calendar service is unreachable
	// or erroring. Not retried here — retry policy belongs to the
	// transport layer.
	ErrDirectoryUnavailable = errors.New("calendar directory unavailable")

	// ErrProjectMismatch means the event's recorded project does not
	// match the project key the caller supplied. Caller error.
	ErrProjectMismatch = errors.New("event does not belong to the stated project")

	// ErrIssueNotFound means a referenced issue key does not exist.
	// Fatal for link, best-effort for unlink.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrEventNotFound means the referenced event does not exist in the
	// project's calendar. Fatal for all operations.
	ErrEventNotFound = errors.New("event not found")

	// ErrConflict means a concurrent-update race was detected by the
	// external service. The directory recovers by re-resolving once;
	// label updates surface it without automatic retry.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrTrackerUnavailable means the issue tracker is unreachable or
	// erroring. Counterpart of ErrDirectoryUnavailable for the other
	// external store.
	ErrTrackerUnavailable = errors.New("issue tracker unavailable")
)

// TooLargeError reports a candidate payload that exceeds the size
// budget. The operation aborts with zero side effects; the caller can
// drop the wiki page reference or split issues across events.
type TooLargeError struct {
	Limit  int
	Actual int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("linkage payload too large: %d bytes exceeds %d byte budget", e.Actual, e.Limit)
}
