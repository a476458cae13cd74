package snapshot

import (
	"context"
	"sync"
)

// StaticSource is a Source backed by a settable in-memory process table and
// title map. It backs the engine's tests and works as a stand-in source on
// platforms without a real adapter.
type StaticSource struct {
	mu     sync.Mutex
	procs  []ProcessInfo
	titles map[string]string
	err    error
}

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{titles: make(map[string]string)}
}

// SetProcesses replaces the process table returned by Processes.
func (s *StaticSource) SetProcesses(procs []ProcessInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs = procs
}

// SetTitle sets the window title returned for a pid.
func (s *StaticSource) SetTitle(pid, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[pid] = title
}

// ClearTitle removes the window title for a pid.
func (s *StaticSource) ClearTitle(pid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.titles, pid)
}

// FailWith makes Processes return the given error until reset with nil.
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Processes returns a copy of the current table.
func (s *StaticSource) Processes(ctx context.Context) ([]ProcessInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	out := make([]ProcessInfo, len(s.procs))
	copy(out, s.procs)
	return out, nil
}

// WindowTitle returns the configured title for a pid, if any.
func (s *StaticSource) WindowTitle(ctx context.Context, pid string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title, ok := s.titles[pid]
	return title, ok, nil
}
