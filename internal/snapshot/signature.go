package snapshot

import "strings"

// Signature identifies target-application processes by case-insensitive
// substring match against process name or command line.
type Signature struct {
	patterns []string
}

// NewSignature creates a signature from the given patterns. Empty patterns
// are dropped; matching is case-insensitive.
func NewSignature(patterns []string) *Signature {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Signature{patterns: lowered}
}

// Matches reports whether the process looks like a target application.
func (s *Signature) Matches(p ProcessInfo) bool {
	if len(s.patterns) == 0 {
		return false
	}

	name := strings.ToLower(p.Name)
	cmdline := strings.ToLower(p.Cmdline)

	for _, pattern := range s.patterns {
		if strings.Contains(name, pattern) || strings.Contains(cmdline, pattern) {
			return true
		}
	}
	return false
}

// Filter returns only the processes matching the signature.
func (s *Signature) Filter(procs []ProcessInfo) []ProcessInfo {
	var matched []ProcessInfo
	for _, p := range procs {
		if s.Matches(p) {
			matched = append(matched, p)
		}
	}
	return matched
}
