package detector

import "time"

// EventKind classifies a process lifecycle observation.
type EventKind string

const (
	ProcessStarted  EventKind = "STARTED"
	ProcessEnded    EventKind = "ENDED"
	ProcessModified EventKind = "MODIFIED"
)

// ProcessEvent is a low-level process lifecycle signal produced by one
// detection cycle. Ephemeral: not persisted, not retried.
type ProcessEvent struct {
	PID       string    `json:"pid"`
	Name      string    `json:"name"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// TitleUpdate reports the current window title observed for a matched
// process during a detection cycle.
type TitleUpdate struct {
	PID       string    `json:"pid"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}
