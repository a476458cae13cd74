package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwatch/meetwatch-agent/config"
	"github.com/meetwatch/meetwatch-agent/internal/events"
	"github.com/meetwatch/meetwatch-agent/internal/logging"
	"github.com/meetwatch/meetwatch-agent/internal/snapshot"
	"github.com/meetwatch/meetwatch-agent/internal/tracker"
)

func testConfig() config.DetectionConfig {
	return config.DetectionConfig{
		// Cycles are driven by TriggerScan in tests
		PollInterval:    time.Hour,
		GracePeriod:     100 * time.Millisecond,
		TargetPatterns:  []string{"zoom", "teams"},
		TitleWorkers:    2,
		EventBuffer:     64,
		WaitingKeywords: []string{"waiting", "lobby"},
		PausedKeywords:  []string{"paused", "inactive"},
		ActiveKeywords:  []string{"meeting", "call"},
	}
}

func newTestMonitor(t *testing.T) (*Monitor, *snapshot.StaticSource) {
	t.Helper()

	src := snapshot.NewStaticSource()
	metrics := NewMetrics(prometheus.NewRegistry())
	mon := New(testConfig(), src, metrics, logging.NewNop())
	t.Cleanup(mon.Close)

	return mon, src
}

func scan(t *testing.T, mon *Monitor) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mon.TriggerScan(ctx))
}

func waitEvent(t *testing.T, sub *events.Subscription, kind tracker.EventKind) tracker.MeetingEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-sub.Events():
			require.True(t, ok, "event stream completed while waiting for %s", kind)
			if evt.Kind == kind {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestMonitor_StartIdempotent(t *testing.T) {
	mon, _ := newTestMonitor(t)

	require.NoError(t, mon.Start())
	assert.True(t, mon.IsMonitoring())

	// Second start is a warning-level no-op
	require.NoError(t, mon.Start())
	assert.True(t, mon.IsMonitoring())

	mon.Stop()
	assert.False(t, mon.IsMonitoring())
}

func TestMonitor_StopIdempotent(t *testing.T) {
	mon, _ := newTestMonitor(t)

	mon.Stop() // not monitoring: no-op
	require.NoError(t, mon.Start())
	mon.Stop()
	mon.Stop()
	assert.False(t, mon.IsMonitoring())
}

func TestMonitor_TriggerScanRequiresMonitoring(t *testing.T) {
	mon, _ := newTestMonitor(t)

	err := mon.TriggerScan(context.Background())
	assert.ErrorIs(t, err, ErrNotMonitoring)
}

func TestMonitor_EndToEnd(t *testing.T) {
	mon, src := newTestMonitor(t)
	require.NoError(t, mon.Start())

	sub := mon.Events()
	defer sub.Close()

	// Meeting process appears
	src.SetProcesses([]snapshot.ProcessInfo{{PID: "42", Name: "zoom.us"}})
	scan(t, mon)

	startedEvt := waitEvent(t, sub, tracker.MeetingStarted)
	assert.Equal(t, "42", startedEvt.ProcessID)

	active := mon.ActiveMeetings()
	require.Len(t, active, 1)
	assert.Equal(t, tracker.StatusDetected, active[0].Status)

	// Window title drives it active
	src.SetTitle("42", "Zoom Meeting - Weekly Sync")
	scan(t, mon)
	waitEvent(t, sub, tracker.MeetingResumed)

	m, found := mon.GetMeetingState(startedEvt.MeetingID)
	require.True(t, found)
	assert.Equal(t, tracker.StatusActive, m.Status)

	// Process disappears
	src.SetProcesses(nil)
	scan(t, mon)
	waitEvent(t, sub, tracker.MeetingEnded)

	assert.Empty(t, mon.ActiveMeetings())

	// Final state readable during the grace period, gone after
	_, found = mon.GetMeetingState(startedEvt.MeetingID)
	assert.True(t, found)

	time.Sleep(200 * time.Millisecond)
	_, found = mon.GetMeetingState(startedEvt.MeetingID)
	assert.False(t, found)
}

func TestMonitor_StateSurvivesStop(t *testing.T) {
	mon, src := newTestMonitor(t)
	require.NoError(t, mon.Start())

	sub := mon.Events()
	defer sub.Close()

	src.SetProcesses([]snapshot.ProcessInfo{{PID: "42", Name: "zoom.us"}})
	scan(t, mon)
	waitEvent(t, sub, tracker.MeetingStarted)

	mon.Stop()

	// Live state remains queryable while not monitoring
	assert.Len(t, mon.ActiveMeetings(), 1)

	// Restart: re-observing the same pid must not start a second meeting
	require.NoError(t, mon.Start())
	scan(t, mon)
	assert.Len(t, mon.ActiveMeetings(), 1)

	// The same subscription keeps working across the restart
	src.SetProcesses(nil)
	scan(t, mon)
	waitEvent(t, sub, tracker.MeetingEnded)
}

func TestMonitor_TransientSourceFailure(t *testing.T) {
	mon, src := newTestMonitor(t)
	require.NoError(t, mon.Start())

	src.SetProcesses([]snapshot.ProcessInfo{{PID: "42", Name: "zoom.us"}})
	scan(t, mon)

	src.FailWith(snapshot.ErrUnavailable)
	scan(t, mon)

	// Failed cycle is skipped: still monitoring, meeting still live
	assert.True(t, mon.IsMonitoring())
	assert.Len(t, mon.ActiveMeetings(), 1)

	src.FailWith(nil)
	scan(t, mon)
	assert.Len(t, mon.ActiveMeetings(), 1)
}

// faultySource works normally until told to fault the pipeline.
type faultySource struct {
	inner     *snapshot.StaticSource
	panicking atomic.Bool
}

func (f *faultySource) Processes(ctx context.Context) ([]snapshot.ProcessInfo, error) {
	if f.panicking.Load() {
		panic("process table corrupted")
	}
	return f.inner.Processes(ctx)
}

func (f *faultySource) WindowTitle(ctx context.Context, pid string) (string, bool, error) {
	return f.inner.WindowTitle(ctx, pid)
}

func TestMonitor_PipelineFault(t *testing.T) {
	cfg := testConfig()
	cfg.GracePeriod = time.Hour

	src := &faultySource{inner: snapshot.NewStaticSource()}
	mon := New(cfg, src, NewMetrics(prometheus.NewRegistry()), logging.NewNop())
	t.Cleanup(mon.Close)

	require.NoError(t, mon.Start())
	sub := mon.Events()
	defer sub.Close()

	src.inner.SetProcesses([]snapshot.ProcessInfo{{PID: "42", Name: "zoom.us"}})
	scan(t, mon)
	startedEvt := waitEvent(t, sub, tracker.MeetingStarted)

	// The pipeline itself faults: the triggered cycle never completes
	src.panicking.Store(true)
	assert.Error(t, mon.TriggerScan(context.Background()))

	// The fault surfaces exactly once, then the stream completes
	errEvt := waitEvent(t, sub, tracker.MonitorError)
	assert.NotEmpty(t, errEvt.Error)

	_, open := <-sub.Events()
	assert.False(t, open)

	assert.False(t, mon.IsMonitoring())

	// Live meetings are marked ERROR when nothing tracks them anymore
	m, found := mon.GetMeetingState(startedEvt.MeetingID)
	require.True(t, found)
	assert.Equal(t, tracker.StatusError, m.Status)

	// Restart is the documented recovery path and brings up a live stream
	src.panicking.Store(false)
	require.NoError(t, mon.Start())
	assert.True(t, mon.IsMonitoring())

	fresh := mon.Events()
	defer fresh.Close()

	select {
	case evt, open := <-fresh.Events():
		require.True(t, open, "fresh stream must not start closed")
		t.Fatalf("unexpected event %s on fresh stream", evt.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitor_EventsNoReplay(t *testing.T) {
	mon, src := newTestMonitor(t)
	require.NoError(t, mon.Start())

	early := mon.Events()
	defer early.Close()

	src.SetProcesses([]snapshot.ProcessInfo{{PID: "42", Name: "zoom.us"}})
	scan(t, mon)
	waitEvent(t, early, tracker.MeetingStarted)

	// A late subscriber sees nothing from before it subscribed
	late := mon.Events()
	defer late.Close()

	select {
	case evt := <-late.Events():
		t.Fatalf("unexpected replayed event %s", evt.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}
