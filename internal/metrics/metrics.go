// Package metrics holds the Prometheus collectors of the importer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "importer"

var (
	rowsValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_validated_total",
		Help:      "Rows validated, broken down by result (valid, invalid).",
	}, []string{"result"})

	commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commits_total",
		Help:      "Commit attempts broken down by result (succeeded, failed_semesters, failed_refresh, failed_courses).",
	}, []string{"result"})

	semestersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "semesters_created_total",
		Help:      "Semesters created by committed imports.",
	})

	coursesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "courses_created_total",
		Help:      "Courses created by committed imports.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests broken down by route and status code.",
	}, []string{"route", "code"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "latency_seconds",
		Help:      "Latency distribution for HTTP requests.",
		Buckets: []float64{
			0.005, 0.01, 0.025, 0.05,
			0.1, 0.25, 0.5,
			1, 2.5, 5, 10,
		},
	}, []string{"route"})
)

// ObserveValidation counts the outcome of one validated import.
func ObserveValidation(valid, invalid int) {
	rowsValidated.WithLabelValues("valid").Add(float64(valid))
	rowsValidated.WithLabelValues("invalid").Add(float64(invalid))
}

// ObserveCommit counts a commit attempt and what it created.
func ObserveCommit(result string, semesters, courses int) {
	commits.WithLabelValues(result).Inc()
	semestersCreated.Add(float64(semesters))
	coursesCreated.Add(float64(courses))
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(route, code string, seconds float64) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpLatency.WithLabelValues(route).Observe(seconds)
}
