package linkage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// callLog records cross-capability call order so tests can assert that
// label writes happen before event payload writes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeCalendar is an in-memory calendar capability with call recording.
type fakeCalendar struct {
	mu        sync.Mutex
	log       *callLog
	calendars []CalendarInfo
	events    map[string]map[string]map[string]string // calendarID -> eventID -> private

	nextID          int
	listErr         error
	patchErr        error
	createConflicts int // times CreateCalendar fails with ErrConflict
}

func newFakeCalendar(log *callLog) *fakeCalendar {
	return &fakeCalendar{log: log, events: map[string]map[string]map[string]string{}}
}

func (f *fakeCalendar) addCalendar(name, description string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalendarLocked(name, description)
}

func (f *fakeCalendar) addCalendarLocked(name, description string) string {
	f.nextID++
	id := fmt.Sprintf("cal-%d", f.nextID)
	f.calendars = append(f.calendars, CalendarInfo{ID: id, Name: name, Description: description})
	f.events[id] = map[string]map[string]string{}
	return id
}

func (f *fakeCalendar) addEvent(calendarID, eventID string, private map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[calendarID][eventID] = private
}

func (f *fakeCalendar) ListCalendars(context.Context) ([]CalendarInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("calendar.list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]CalendarInfo(nil), f.calendars...), nil
}

func (f *fakeCalendar) CreateCalendar(_ context.Context, name, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("calendar.create %s", name)
	for _, c := range f.calendars {
		if c.Name == name {
			return "", ErrConflict
		}
	}
	if f.createConflicts > 0 {
		f.createConflicts--
		// Simulate losing the race: the other writer's calendar appears.
		f.addCalendarLocked(name, description)
		return "", ErrConflict
	}
	return f.addCalendarLocked(name, description), nil
}

func (f *fakeCalendar) GetEvent(_ context.Context, calendarID, eventID string) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("calendar.get %s", eventID)
	private, ok := f.events[calendarID][eventID]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return Event{ID: eventID, Private: copyMap(private)}, nil
}

func (f *fakeCalendar) PatchEvent(_ context.Context, calendarID, eventID string, private map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("calendar.patch %s", eventID)
	if f.patchErr != nil {
		return f.patchErr
	}
	if _, ok := f.events[calendarID][eventID]; !ok {
		return ErrEventNotFound
	}
	f.events[calendarID][eventID] = copyMap(private)
	return nil
}

func (f *fakeCalendar) ListEvents(_ context.Context, calendarID string, _, _ time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("calendar.listevents %s", calendarID)
	var out []Event
	for id, private := range f.events[calendarID] {
		out = append(out, Event{ID: id, Private: copyMap(private)})
	}
	return out, nil
}

func (f *fakeCalendar) patchCount() int {
	count := 0
	for _, call := range f.log.all() {
		if call[:min(len(call), 14)] == "calendar.patch" {
			count++
		}
	}
	return count
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fakeTracker is an in-memory tracker capability with call recording.
type fakeTracker struct {
	mu      sync.Mutex
	log     *callLog
	labels  map[string][]string
	missing map[string]bool
	setErr  error
}

func newFakeTracker(log *callLog, issueKeys ...string) *fakeTracker {
	t := &fakeTracker{log: log, labels: map[string][]string{}, missing: map[string]bool{}}
	for _, key := range issueKeys {
		t.labels[key] = nil
	}
	return t
}

func (f *fakeTracker) IssueLabels(_ context.Context, issueKey string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("tracker.get %s", issueKey)
	if _, ok := f.labels[issueKey]; !ok || f.missing[issueKey] {
		return nil, ErrIssueNotFound
	}
	return append([]string(nil), f.labels[issueKey]...), nil
}

func (f *fakeTracker) SetIssueLabels(_ context.Context, issueKey string, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("tracker.set %s", issueKey)
	if f.setErr != nil {
		return f.setErr
	}
	if _, ok := f.labels[issueKey]; !ok || f.missing[issueKey] {
		return ErrIssueNotFound
	}
	f.labels[issueKey] = append([]string(nil), labels...)
	return nil
}

func (f *fakeTracker) labelsOf(issueKey string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.labels[issueKey]...)
}

func (f *fakeTracker) setCount() int {
	count := 0
	for _, call := range f.log.all() {
		if len(call) >= 11 && call[:11] == "tracker.set" {
			count++
		}
	}
	return count
}
