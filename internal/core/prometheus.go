package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"surveycore/pkg/domain"
)

// PrometheusMetricsRecorder publishes query timings and outcome counters
// through prometheus/client_golang.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder constructs a recorder and registers its
// collectors. A nil registerer falls back to the default registry.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "surveycore",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of canonical query runs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine", "query"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "surveycore",
		Subsystem: "query",
		Name:      "results_total",
		Help:      "Canonical query runs by outcome.",
	}, []string{"engine", "query", "status"})
	if err := reg.Register(durations); err != nil {
		return nil, err
	}
	if err := reg.Register(results); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{durations: durations, results: results}, nil
}

// ObserveQuery records one query run.
func (r *PrometheusMetricsRecorder) ObserveQuery(engine string, query domain.Query, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.durations.WithLabelValues(engine, string(query)).Observe(d.Seconds())
	r.results.WithLabelValues(engine, string(query), status).Inc()
}
