package tracker

import "time"

// Status is the lifecycle state of a detected meeting.
type Status string

const (
	StatusDetected Status = "DETECTED"
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusEnded    Status = "ENDED"
	StatusError    Status = "ERROR"
)

// EventKind classifies a meeting lifecycle event.
type EventKind string

const (
	MeetingStarted    EventKind = "MEETING_STARTED"
	MeetingEnded      EventKind = "MEETING_ENDED"
	MeetingPaused     EventKind = "MEETING_PAUSED"
	MeetingResumed    EventKind = "MEETING_RESUMED"
	ParticipantJoined EventKind = "PARTICIPANT_JOINED"
	ParticipantLeft   EventKind = "PARTICIPANT_LEFT"

	// MonitorError is emitted once when the polling pipeline itself
	// faults, right before the event stream closes.
	MonitorError EventKind = "MONITOR_ERROR"
)

// MeetingState is the live record of one detected session. Records are
// replaced wholesale on every change (copy-on-write), so readers always
// observe a complete, consistent state.
type MeetingState struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	ProcessID    string     `json:"process_id"`
	Participants int        `json:"participants"`
	LastUpdated  time.Time  `json:"last_updated"`
}

// MeetingEvent is an append-only meeting lifecycle notification broadcast
// to subscribers.
type MeetingEvent struct {
	MeetingID   string    `json:"meeting_id"`
	Kind        EventKind `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	ProcessID   string    `json:"process_id"`
	WindowTitle string    `json:"window_title,omitempty"`

	// Error carries the failure description for MONITOR_ERROR events.
	Error string `json:"error,omitempty"`
}
