package planning

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks planning service activity.
type Metrics struct {
	submissions *prometheus.CounterVec
	duration    prometheus.Histogram
	fetches     *prometheus.CounterVec
}

// NewMetrics creates and registers planning metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sprintplan",
			Subsystem: "planning",
			Name:      "submissions_total",
			Help:      "Plan submissions by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sprintplan",
			Subsystem: "planning",
			Name:      "generation_duration_seconds",
			Help:      "End-to-end plan generation duration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sprintplan",
			Subsystem: "planning",
			Name:      "fetches_total",
			Help:      "Plan fetches by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.submissions, m.duration, m.fetches)
	}
	return m
}

func (m *Metrics) observeSubmission(status PlanStatus, seconds float64) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(status)).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) observeFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}
