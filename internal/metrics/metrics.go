// Package metrics exposes Prometheus collectors for the incident API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Geocoder lookup outcomes.
const (
	GeocoderTable   = "table"
	GeocoderSidecar = "sidecar"
	GeocoderMiss    = "miss"
	GeocoderError   = "error"
)

const namespace = "incidents"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, partitioned by route pattern and status code.",
		},
		[]string{"route", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route"},
	)

	evaluationSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_submissions_total",
			Help:      "Human evaluation submissions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	geocoderLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocoder_lookups_total",
			Help:      "Airport code lookups, partitioned by where they were resolved.",
		},
		[]string{"outcome"},
	)
)

// Register attaches the collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		evaluationSubmissionsTotal,
		geocoderLookupsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(route string, code int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	if duration < 0 {
		duration = 0
	}
	httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveSubmission records a submit outcome.
func ObserveSubmission(outcome string) {
	evaluationSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveGeocoder records where an airport code was resolved.
func ObserveGeocoder(outcome string, n int) {
	if n <= 0 {
		return
	}
	geocoderLookupsTotal.WithLabelValues(outcome).Add(float64(n))
}
