package linkage

import (
	"sort"
	"strings"
)

// SizeBudget is the maximum encoded byte length the calendar service
// accepts for an event's private property blob. Checked against the
// fully serialized form as it will be stored, not an estimate.
const SizeBudget = 8192

// Private property keys of the stored linkage record.
const (
	propIssueKeys  = "issue_keys"
	propWikiPageID = "wiki_page_id"
	propProjectKey = "project_key"
)

// Record is the linkage payload embedded in one calendar event's
// private metadata: which tracker issues and wiki page relate to that
// meeting, and which project owns the hosting calendar.
type Record struct {
	IssueKeys  []string
	WikiPageID string
	ProjectKey string
}

// Empty reports whether the record links nothing.
func (r Record) Empty() bool {
	return len(r.IssueKeys) == 0 && r.WikiPageID == "" && r.ProjectKey == ""
}

// HasIssue reports whether the record already links the given issue.
func (r Record) HasIssue(issueKey string) bool {
	for _, k := range r.IssueKeys {
		if k == issueKey {
			return true
		}
	}
	return false
}

// DecodeRecord parses a private property mapping into a Record. Absent
// or malformed input yields the empty record, never an error: first-time
// linking on an event with no prior data is the common path.
func DecodeRecord(private map[string]string) Record {
	if len(private) == 0 {
		return Record{}
	}
	rec := Record{
		WikiPageID: private[propWikiPageID],
		ProjectKey: private[propProjectKey],
	}
	if raw := private[propIssueKeys]; raw != "" {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				rec.IssueKeys = append(rec.IssueKeys, key)
			}
		}
	}
	return rec
}

// Encode serializes the record deterministically: issue keys sorted and
// comma-joined, optional keys omitted when unset.
func (r Record) Encode() map[string]string {
	private := map[string]string{}
	if len(r.IssueKeys) > 0 {
		keys := append([]string(nil), r.IssueKeys...)
		sort.Strings(keys)
		private[propIssueKeys] = strings.Join(keys, ",")
	}
	if r.WikiPageID != "" {
		private[propWikiPageID] = r.WikiPageID
	}
	if r.ProjectKey != "" {
		private[propProjectKey] = r.ProjectKey
	}
	return private
}

// EncodedSize returns the stored byte size of a private property
// mapping: every present key and value counts.
func EncodedSize(private map[string]string) int {
	size := 0
	for k, v := range private {
		size += len(k) + len(v)
	}
	return size
}

// ValidateSize enforces the size budget on an encoded mapping. Returns
// *TooLargeError carrying the attempted and allowed sizes on violation.
func ValidateSize(private map[string]string) error {
	if actual := EncodedSize(private); actual > SizeBudget {
		return &TooLargeError{Limit: SizeBudget, Actual: actual}
	}
	return nil
}
