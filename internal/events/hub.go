// Package events provides a multicast, replay-free broadcast channel for
// meeting events. Subscribers each get a bounded buffer with a drop-oldest
// overflow policy, so a slow consumer can never stall the detection loop.
package events

import (
	"sync"
	"time"

	"github.com/meetwatch/meetwatch-agent/internal/tracker"
)

// Hub fans meeting events out to subscribers. A new subscriber only sees
// events published after it subscribes.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription is one subscriber's view of the event stream.
type Subscription struct {
	ch  chan tracker.MeetingEvent
	hub *Hub
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed hub returns
// a subscription whose channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ch:  make(chan tracker.MeetingEvent, h.buffer),
		hub: h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}

	h.subs[sub] = struct{}{}
	return sub
}

// Publish delivers an event to every current subscriber. When a subscriber
// buffer is full the oldest event is dropped to make room.
func (h *Hub) Publish(evt tracker.MeetingEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for sub := range h.subs {
		select {
		case sub.ch <- evt:
		default:
			// Drop oldest, then deliver. The second send cannot
			// block: we hold the lock, so nobody else publishes.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Fail surfaces a structural monitoring failure to all subscribers exactly
// once, then completes the stream. Subsequent calls are no-ops.
func (h *Hub) Fail(err error) {
	h.Publish(tracker.MeetingEvent{
		Kind:      tracker.MonitorError,
		Timestamp: time.Now(),
		Error:     err.Error(),
	})
	h.Close()
}

// Close completes the stream for all subscribers. Idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Events returns the subscriber's receive channel. It is closed when the
// subscription or the hub is closed.
func (s *Subscription) Events() <-chan tracker.MeetingEvent {
	return s.ch
}

// Close unsubscribes. Idempotent; safe to call after the hub closed.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if _, ok := s.hub.subs[s]; ok {
		delete(s.hub.subs, s)
		close(s.ch)
	}
}
