package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwatch/meetwatch-agent/internal/tracker"
)

func evt(id string, kind tracker.EventKind) tracker.MeetingEvent {
	return tracker.MeetingEvent{MeetingID: id, Kind: kind, Timestamp: time.Now()}
}

func TestHub_Multicast(t *testing.T) {
	h := NewHub(8)
	defer h.Close()

	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(evt("m1", tracker.MeetingStarted))

	for _, sub := range []*Subscription{a, b} {
		select {
		case got := <-sub.Events():
			assert.Equal(t, "m1", got.MeetingID)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}

func TestHub_NoReplay(t *testing.T) {
	h := NewHub(8)
	defer h.Close()

	h.Publish(evt("old", tracker.MeetingStarted))

	sub := h.Subscribe()
	h.Publish(evt("new", tracker.MeetingStarted))

	got := <-sub.Events()
	assert.Equal(t, "new", got.MeetingID)

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected replayed event %q", extra.MeetingID)
	default:
	}
}

func TestHub_DropOldest(t *testing.T) {
	h := NewHub(2)
	defer h.Close()

	sub := h.Subscribe()

	h.Publish(evt("1", tracker.MeetingStarted))
	h.Publish(evt("2", tracker.MeetingStarted))
	h.Publish(evt("3", tracker.MeetingStarted))

	// Buffer of 2: the oldest event was dropped to admit the newest
	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, "2", first.MeetingID)
	assert.Equal(t, "3", second.MeetingID)
}

func TestHub_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	h := NewHub(1)
	defer h.Close()

	slow := h.Subscribe()
	fast := h.Subscribe()
	_ = slow // never read

	for i := 0; i < 10; i++ {
		h.Publish(evt("m", tracker.MeetingStarted))
		<-fast.Events()
	}
}

func TestHub_FailSurfacesErrorOnce(t *testing.T) {
	h := NewHub(8)
	sub := h.Subscribe()

	h.Fail(errors.New("scheduler died"))
	h.Fail(errors.New("again")) // no-op

	got, open := <-sub.Events()
	require.True(t, open)
	assert.Equal(t, tracker.MonitorError, got.Kind)
	assert.Equal(t, "scheduler died", got.Error)

	// Stream completes after the terminal error
	_, open = <-sub.Events()
	assert.False(t, open)
}

func TestHub_SubscribeAfterClose(t *testing.T) {
	h := NewHub(8)
	h.Close()
	h.Close()

	sub := h.Subscribe()
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(8)
	defer h.Close()

	sub := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Subscribers())

	// Publishing after unsubscribe must not panic
	h.Publish(evt("m", tracker.MeetingStarted))
}
