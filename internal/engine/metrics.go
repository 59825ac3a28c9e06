package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records engine self-performance for later aggregation:
// decision counts, end-to-end latency, and non-critical stage failures.
type Metrics struct {
	decisions     *prometheus.CounterVec
	duration      prometheus.Histogram
	stageFailures *prometheus.CounterVec
	feedback      *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trust_engine",
			Name:      "decisions_total",
			Help:      "Decisions reached, by outcome.",
		}, []string{"decision"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trust_engine",
			Name:      "processing_seconds",
			Help:      "End-to-end alert processing duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trust_engine",
			Name:      "stage_failures_total",
			Help:      "Non-critical stage failures, by stage.",
		}, []string{"stage"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trust_engine",
			Name:      "feedback_total",
			Help:      "Feedback events, by accuracy.",
		}, []string{"accurate"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.duration, m.stageFailures, m.feedback)
	}
	return m
}

// ObserveDecision records one completed pipeline run.
func (m *Metrics) ObserveDecision(decision string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// StageFailure records a caught non-critical stage failure.
func (m *Metrics) StageFailure(stage Stage) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(string(stage)).Inc()
}

// ObserveFeedback records one feedback event.
func (m *Metrics) ObserveFeedback(wasAccurate bool) {
	if m == nil {
		return
	}
	label := "false"
	if wasAccurate {
		label = "true"
	}
	m.feedback.WithLabelValues(label).Inc()
}
