// Package tracker owns the per-meeting state machine and the live mapping
// from process ids to meetings.
package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetwatch/meetwatch-agent/internal/detector"
	"github.com/meetwatch/meetwatch-agent/internal/logging"
)

// placeholderTitle is used until a real window title is observed.
const placeholderTitle = "Meeting in progress"

// Tracker folds process events and window-title updates into meeting state
// transitions and meeting events.
//
// Mutations are serialized by a single mutex; reads go through sync.Map and
// always see a complete record because records are replaced, never mutated
// in place.
type Tracker struct {
	classifier *Classifier
	grace      time.Duration
	log        *logging.Logger

	mu       sync.Mutex // serializes all state transitions
	meetings sync.Map   // meeting id -> *MeetingState (copy-on-write)
	byPID    sync.Map   // process id -> meeting id
	timers   sync.Map   // meeting id -> *time.Timer (grace cleanup handles)
}

// New creates a tracker with the given classifier and grace period.
func New(classifier *Classifier, grace time.Duration, log *logging.Logger) *Tracker {
	if grace <= 0 {
		grace = 30 * time.Second
	}
	return &Tracker{
		classifier: classifier,
		grace:      grace,
		log:        log,
	}
}

// Apply folds one process event into meeting state and returns the meeting
// events it produced.
func (t *Tracker) Apply(evt detector.ProcessEvent) []MeetingEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt.Kind {
	case detector.ProcessStarted:
		return t.processStarted(evt)
	case detector.ProcessEnded:
		return t.processEnded(evt)
	case detector.ProcessModified:
		t.touch(evt.PID)
		return nil
	default:
		return nil
	}
}

// ApplyTitle folds one window-title observation into meeting state.
func (t *Tracker) ApplyTitle(up detector.TitleUpdate) []MeetingEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	meeting, ok := t.meetingForPID(up.PID)
	if !ok || meeting.Status == StatusEnded || meeting.Status == StatusError {
		return nil
	}

	now := time.Now()
	next := *meeting
	next.Title = up.Title
	next.LastUpdated = now

	var events []MeetingEvent

	// DETECTED is entry-only: a waiting-room keyword never demotes a
	// meeting that has already gone active or paused.
	if candidate, ok := t.classifier.Classify(up.Title); ok &&
		candidate != meeting.Status && candidate != StatusDetected {
		next.Status = candidate
		switch candidate {
		case StatusActive:
			// Arriving at ACTIVE emits MEETING_RESUMED whether we
			// come from PAUSED or straight from DETECTED.
			events = append(events, t.event(&next, MeetingResumed, up.Title, now))
		case StatusPaused:
			events = append(events, t.event(&next, MeetingPaused, up.Title, now))
		}
	}

	if count, ok := Participants(up.Title); ok && count != meeting.Participants {
		kind := ParticipantJoined
		if count < meeting.Participants {
			kind = ParticipantLeft
		}
		next.Participants = count
		events = append(events, t.event(&next, kind, up.Title, now))
	}

	t.meetings.Store(next.ID, &next)
	return events
}

// GetMeetingState returns the current record for a meeting id.
func (t *Tracker) GetMeetingState(id string) (MeetingState, bool) {
	v, ok := t.meetings.Load(id)
	if !ok {
		return MeetingState{}, false
	}
	return *v.(*MeetingState), true
}

// ActiveMeetings returns all meetings whose status is not ENDED. Ended
// meetings mid-grace-period are retrievable by id but excluded here.
func (t *Tracker) ActiveMeetings() []MeetingState {
	var out []MeetingState
	t.meetings.Range(func(_, v interface{}) bool {
		m := v.(*MeetingState)
		if m.Status != StatusEnded {
			out = append(out, *m)
		}
		return true
	})
	return out
}

// MarkError moves a meeting to ERROR on an unrecoverable tracking fault for
// that meeting. Terminal states are left untouched.
func (t *Tracker) MarkError(id string, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.meetings.Load(id)
	if !ok {
		return
	}
	m := v.(*MeetingState)
	if m.Status == StatusEnded || m.Status == StatusError {
		return
	}

	next := *m
	next.Status = StatusError
	next.LastUpdated = time.Now()
	t.meetings.Store(id, &next)
	t.byPID.Delete(m.ProcessID)
	t.scheduleRemoval(id)

	t.log.Warn("meeting tracking fault",
		zap.String("meeting_id", id), zap.String("reason", reason))
}

// Remove deletes a meeting from the live table. Idempotent; also cancels
// any pending grace cleanup and frees the meeting's process id so a later
// process can start a fresh meeting.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers.LoadAndDelete(id); ok {
		timer.(*time.Timer).Stop()
	}

	v, ok := t.meetings.LoadAndDelete(id)
	if !ok {
		return
	}
	m := v.(*MeetingState)
	if cur, ok := t.byPID.Load(m.ProcessID); ok && cur.(string) == id {
		t.byPID.Delete(m.ProcessID)
	}
}

func (t *Tracker) processStarted(evt detector.ProcessEvent) []MeetingEvent {
	// At most one meeting per process id.
	if _, exists := t.byPID.Load(evt.PID); exists {
		return nil
	}

	now := time.Now()
	meeting := &MeetingState{
		ID:          uuid.New().String(),
		Title:       placeholderTitle,
		Status:      StatusDetected,
		StartTime:   now,
		ProcessID:   evt.PID,
		LastUpdated: now,
	}

	t.meetings.Store(meeting.ID, meeting)
	t.byPID.Store(evt.PID, meeting.ID)

	t.log.Info("meeting detected",
		zap.String("meeting_id", meeting.ID),
		zap.String("pid", evt.PID),
		zap.String("process", evt.Name))

	return []MeetingEvent{t.event(meeting, MeetingStarted, "", now)}
}

func (t *Tracker) processEnded(evt detector.ProcessEvent) []MeetingEvent {
	// Association is dropped immediately, even when the record is already
	// gone; only the record lingers for the grace period so consumers can
	// read the final state.
	idVal, ok := t.byPID.LoadAndDelete(evt.PID)
	if !ok {
		return nil
	}

	v, ok := t.meetings.Load(idVal.(string))
	if !ok {
		return nil
	}
	meeting := v.(*MeetingState)

	if meeting.Status == StatusEnded {
		return nil
	}

	now := time.Now()
	next := *meeting
	next.Status = StatusEnded
	next.EndTime = &now
	next.LastUpdated = now
	t.meetings.Store(next.ID, &next)

	t.scheduleRemoval(next.ID)

	t.log.Info("meeting ended",
		zap.String("meeting_id", next.ID), zap.String("pid", evt.PID))

	return []MeetingEvent{t.event(&next, MeetingEnded, next.Title, now)}
}

// scheduleRemoval arms a one-shot cleanup keyed by meeting id. The callback
// tolerates the meeting having been removed already.
func (t *Tracker) scheduleRemoval(id string) {
	timer := time.AfterFunc(t.grace, func() {
		t.timers.Delete(id)
		t.meetings.Delete(id)
	})

	if prev, loaded := t.timers.Swap(id, timer); loaded {
		prev.(*time.Timer).Stop()
	}
}

// touch bumps lastUpdated for the meeting associated with a pid.
func (t *Tracker) touch(pid string) {
	meeting, ok := t.meetingForPID(pid)
	if !ok || meeting.Status == StatusEnded {
		return
	}

	next := *meeting
	next.LastUpdated = time.Now()
	t.meetings.Store(next.ID, &next)
}

func (t *Tracker) meetingForPID(pid string) (*MeetingState, bool) {
	idVal, ok := t.byPID.Load(pid)
	if !ok {
		return nil, false
	}
	v, ok := t.meetings.Load(idVal.(string))
	if !ok {
		return nil, false
	}
	return v.(*MeetingState), true
}

func (t *Tracker) event(m *MeetingState, kind EventKind, title string, ts time.Time) MeetingEvent {
	return MeetingEvent{
		MeetingID:   m.ID,
		Kind:        kind,
		Timestamp:   ts,
		ProcessID:   m.ProcessID,
		WindowTitle: title,
	}
}
