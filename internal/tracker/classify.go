package tracker

import (
	"regexp"
	"strconv"
	"strings"
)

// Classifier turns raw window titles into candidate meeting statuses using
// keyword rules. Keywords are matched case-insensitively; the waiting and
// paused sets take precedence over the active set, so "Zoom Meeting -
// waiting for host" classifies as DETECTED, not ACTIVE.
type Classifier struct {
	waiting []string
	paused  []string
	active  []string
}

// NewClassifier builds a classifier from keyword sets.
func NewClassifier(waiting, paused, active []string) *Classifier {
	return &Classifier{
		waiting: lowerAll(waiting),
		paused:  lowerAll(paused),
		active:  lowerAll(active),
	}
}

// Classify returns the candidate status for a window title. ok is false
// when no rule matches; malformed or unrecognized titles never raise, they
// just carry no status information.
func (c *Classifier) Classify(title string) (Status, bool) {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return "", false
	}

	if containsAny(t, c.waiting) {
		return StatusDetected, true
	}
	if containsAny(t, c.paused) {
		return StatusPaused, true
	}
	if containsAny(t, c.active) {
		return StatusActive, true
	}
	return "", false
}

var participantsRe = regexp.MustCompile(`(?i)\b(\d+)\s+participants?\b`)

// Participants extracts a participant count from a window title, e.g.
// "Zoom Meeting (5 participants)". ok is false when the title carries no
// count.
func Participants(title string) (int, bool) {
	m := participantsRe.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
