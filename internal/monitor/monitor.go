// Package monitor wires the process change detector into the meeting state
// tracker and owns the monitoring lifecycle.
package monitor

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/meetwatch/meetwatch-agent/config"
	"github.com/meetwatch/meetwatch-agent/internal/detector"
	"github.com/meetwatch/meetwatch-agent/internal/events"
	"github.com/meetwatch/meetwatch-agent/internal/logging"
	"github.com/meetwatch/meetwatch-agent/internal/snapshot"
	"github.com/meetwatch/meetwatch-agent/internal/tracker"
)

// ErrNotMonitoring is returned by TriggerScan when no detector is running.
var ErrNotMonitoring = errors.New("monitor: not monitoring")

// Monitor orchestrates detection: it starts and stops the detector, folds
// its output through the tracker, and republishes meeting events to
// subscribers.
//
// Meeting state survives Stop/Start; the event stream terminates only on a
// structural polling failure, after surfacing the error exactly once.
type Monitor struct {
	cfg     config.DetectionConfig
	source  snapshot.Source
	log     *logging.Logger
	metrics *Metrics
	tracker *tracker.Tracker

	mu         sync.Mutex
	hub        *events.Hub
	det        *detector.Detector
	monitoring bool
	pumps      sync.WaitGroup
}

// New creates a monitor over the given snapshot source.
func New(cfg config.DetectionConfig, source snapshot.Source, metrics *Metrics, log *logging.Logger) *Monitor {
	classifier := tracker.NewClassifier(cfg.WaitingKeywords, cfg.PausedKeywords, cfg.ActiveKeywords)

	return &Monitor{
		cfg:     cfg,
		source:  source,
		log:     log,
		metrics: metrics,
		tracker: tracker.New(classifier, cfg.GracePeriod, log.Named("tracker")),
		hub:     events.NewHub(cfg.EventBuffer),
	}
}

// Start begins monitoring. Idempotent: starting while already monitoring
// logs a warning and is a no-op. After a fatal polling failure, Start is
// the documented recovery path and builds a fresh detector and stream.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.monitoring && m.det != nil && m.det.Running() {
		m.log.Warn("start requested while already monitoring")
		return nil
	}

	// The previous stream completed if the detector faulted; give new
	// subscribers a live hub.
	if m.det != nil && m.det.Err() != nil {
		m.hub = events.NewHub(m.cfg.EventBuffer)
	}

	sig := snapshot.NewSignature(m.cfg.TargetPatterns)
	det := detector.New(m.source, sig, detector.Options{
		Interval:     m.cfg.PollInterval,
		TitleWorkers: m.cfg.TitleWorkers,
		Buffer:       m.cfg.EventBuffer,
	}, m.log.Named("detector"))

	if err := det.Start(); err != nil {
		return err
	}

	m.det = det
	m.monitoring = true
	m.metrics.Monitoring.Set(1)

	hub := m.hub
	m.pumps.Add(1)
	go m.pump(det, hub)

	m.log.Info("monitoring started",
		zap.Duration("interval", m.cfg.PollInterval),
		zap.Strings("patterns", m.cfg.TargetPatterns))

	return nil
}

// Stop halts the detector and disposes the wiring. Idempotent: stopping
// while not monitoring logs a warning. Pending grace-period removals of
// ended meetings are left to complete; they only collect terminal state.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		m.log.Warn("stop requested while not monitoring")
		return
	}
	det := m.det
	m.monitoring = false
	m.mu.Unlock()

	det.Stop()
	m.pumps.Wait()
	m.metrics.Monitoring.Set(0)

	m.log.Info("monitoring stopped")
}

// IsMonitoring is true only when both the orchestrator flag and the
// detector's own state agree, so a detector that stopped itself on an
// internal fault reads as not monitoring.
func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitoring && m.det != nil && m.det.Running()
}

// TriggerScan forces one detection cycle outside the regular timer and
// waits for its completion.
func (m *Monitor) TriggerScan(ctx context.Context) error {
	m.mu.Lock()
	det := m.det
	running := m.monitoring && det != nil && det.Running()
	m.mu.Unlock()

	if !running {
		return ErrNotMonitoring
	}

	m.metrics.ScansTriggered.Inc()
	return det.TriggerScan(ctx)
}

// Events subscribes to the meeting event stream. No replay: the subscriber
// sees only events published after this call.
func (m *Monitor) Events() *events.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hub.Subscribe()
}

// GetMeetingState returns the live record for a meeting id.
func (m *Monitor) GetMeetingState(id string) (tracker.MeetingState, bool) {
	return m.tracker.GetMeetingState(id)
}

// ActiveMeetings returns all meetings not yet ended.
func (m *Monitor) ActiveMeetings() []tracker.MeetingState {
	return m.tracker.ActiveMeetings()
}

// Close stops monitoring if needed and completes the event stream.
func (m *Monitor) Close() {
	if m.IsMonitoring() {
		m.Stop()
	}

	m.mu.Lock()
	hub := m.hub
	m.mu.Unlock()
	hub.Close()
}

// pump drains the detector's streams into the tracker and republishes the
// resulting meeting events until the streams complete.
func (m *Monitor) pump(det *detector.Detector, hub *events.Hub) {
	defer m.pumps.Done()

	evts := det.Events()
	titles := det.Titles()

	for evts != nil || titles != nil {
		select {
		case evt, ok := <-evts:
			if !ok {
				evts = nil
				continue
			}
			m.metrics.ProcessEvents.WithLabelValues(string(evt.Kind)).Inc()
			m.publish(hub, m.tracker.Apply(evt))
		case up, ok := <-titles:
			if !ok {
				titles = nil
				continue
			}
			m.publish(hub, m.tracker.ApplyTitle(up))
		}
	}

	m.metrics.DroppedSignals.Set(float64(det.Dropped()))

	// Streams completed. A clean Stop leaves the hub open for the next
	// Start; a pipeline fault surfaces once and terminates the stream.
	if err := det.Err(); err != nil {
		m.mu.Lock()
		m.monitoring = false
		m.mu.Unlock()

		// Nothing tracks the live meetings anymore.
		for _, mt := range m.tracker.ActiveMeetings() {
			m.tracker.MarkError(mt.ID, "monitoring terminated")
		}

		m.metrics.MonitorFaults.Inc()
		m.metrics.Monitoring.Set(0)
		m.log.Error("monitoring terminated by pipeline fault", zap.Error(err))
		hub.Fail(err)
	}
}

func (m *Monitor) publish(hub *events.Hub, evts []tracker.MeetingEvent) {
	for _, evt := range evts {
		m.metrics.MeetingEvents.WithLabelValues(string(evt.Kind)).Inc()
		hub.Publish(evt)
	}
	if len(evts) > 0 {
		m.metrics.ActiveMeetings.Set(float64(len(m.tracker.ActiveMeetings())))
	}
}
