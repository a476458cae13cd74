package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the detection engine.
type Metrics struct {
	ProcessEvents  *prometheus.CounterVec
	MeetingEvents  *prometheus.CounterVec
	ActiveMeetings prometheus.Gauge
	ScansTriggered prometheus.Counter
	Monitoring     prometheus.Gauge
	MonitorFaults  prometheus.Counter
	DroppedSignals prometheus.Gauge
}

// NewMetrics registers the detection metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ProcessEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetwatch_process_events_total",
				Help: "Process events produced by detection cycles",
			},
			[]string{"kind"},
		),
		MeetingEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetwatch_meeting_events_total",
				Help: "Meeting events broadcast to subscribers",
			},
			[]string{"kind"},
		),
		ActiveMeetings: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "meetwatch_active_meetings",
				Help: "Meetings currently not in a terminal state",
			},
		),
		ScansTriggered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meetwatch_manual_scans_total",
				Help: "Detection cycles forced outside the regular timer",
			},
		),
		Monitoring: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "meetwatch_monitoring",
				Help: "1 while the detection engine is running",
			},
		),
		MonitorFaults: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meetwatch_monitor_faults_total",
				Help: "Structural failures of the polling pipeline",
			},
		),
		DroppedSignals: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "meetwatch_dropped_signals",
				Help: "Process signals discarded on full buffers during the last polling session",
			},
		),
	}
}
