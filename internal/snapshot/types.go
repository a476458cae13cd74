package snapshot

import (
	"context"
	"errors"
	"time"
)

// ProcessInfo is a point-in-time description of one OS process. PIDs are
// reused by the OS, so a PID is only a valid key within a single detection
// window, never a long-lived identity.
type ProcessInfo struct {
	PID        string    `json:"pid"`
	Name       string    `json:"name"`
	Cmdline    string    `json:"cmdline"`
	StartTime  time.Time `json:"start_time"`
	CPUPercent float64   `json:"cpu_percent"`
	MemRSS     uint64    `json:"mem_rss"`
}

// Source provides process snapshots and window-title lookups. Platform
// implementations are swappable adapters injected into the detector.
type Source interface {
	// Processes returns the current set of OS processes.
	Processes(ctx context.Context) ([]ProcessInfo, error)

	// WindowTitle returns the current window title for a process, with
	// found=false when the process has no window.
	WindowTitle(ctx context.Context, pid string) (title string, found bool, err error)
}

// TitleForgetter is implemented by sources that cache window titles and can
// evict an entry once its process has ended.
type TitleForgetter interface {
	Forget(pid string)
}

var (
	// ErrUnavailable means a process snapshot could not be obtained.
	ErrUnavailable = errors.New("snapshot: source unavailable")

	// ErrLookupTimeout means a window-title lookup timed out.
	ErrLookupTimeout = errors.New("snapshot: window title lookup timed out")

	// ErrLookupUnavailable means window-title lookups are not supported
	// in this environment.
	ErrLookupUnavailable = errors.New("snapshot: window title lookup unavailable")
)
