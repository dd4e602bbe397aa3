// Package metrics counts review activity in a Prometheus registry that can
// be written out in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LavenderBridge/recall/internal/algorithm"
	"github.com/LavenderBridge/recall/internal/session"
)

// Metrics holds the review metrics. It implements session.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	SessionSize      prometheus.Histogram
	Grades           *prometheus.CounterVec
	AnswerDuration   prometheus.Histogram
	LastSession      prometheus.Gauge
}

var _ session.Recorder = (*Metrics)(nil)

// New registers the review metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recall_sessions_started_total",
				Help: "Review sessions started, by mode",
			},
			[]string{"mode"},
		),
		SessionsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recall_sessions_finished_total",
				Help: "Review sessions that ended, by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		SessionSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recall_session_items",
				Help:    "Number of items in a started session",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128
			},
		),
		Grades: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recall_grades_total",
				Help: "Graded reviews, by quality",
			},
			[]string{"quality"},
		),
		AnswerDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recall_answer_duration_seconds",
				Help:    "Time from showing an item to grading it",
				Buckets: prometheus.ExponentialBuckets(2, 2, 9), // 2s to 512s
			},
		),
		LastSession: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "recall_last_session_timestamp_seconds",
				Help: "Unix time the last session ended",
			},
		),
	}
}

// Registry exposes the underlying registry, e.g. for a /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SessionStarted(mode session.Mode, size int) {
	m.SessionsStarted.WithLabelValues(mode.Kind.String()).Inc()
	m.SessionSize.Observe(float64(size))
}

func (m *Metrics) ItemGraded(q algorithm.Quality, spent time.Duration) {
	m.Grades.WithLabelValues(q.String()).Inc()
	if spent > 0 {
		m.AnswerDuration.Observe(spent.Seconds())
	}
}

func (m *Metrics) SessionFinished(s session.Summary) {
	outcome := "completed"
	if s.Abandoned {
		outcome = "abandoned"
	}
	m.SessionsFinished.WithLabelValues(s.Mode.Kind.String(), outcome).Inc()
	m.LastSession.Set(float64(s.FinishedAt.Unix()))
}

// WriteTextfile writes the current values to path atomically. Nothing is
// written when path is empty.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
