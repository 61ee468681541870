package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for backend API calls
var (
	// apiRequestsTotal counts calls by templated route and response status
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werss_api_requests_total",
			Help: "Total number of WeRSS backend API requests",
		},
		[]string{"method", "route", "status"}, // status: HTTP code or "error"
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "werss_api_request_duration_seconds",
			Help:    "WeRSS backend API request duration in seconds, retries included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		},
		[]string{"method", "route"},
	)
)

// recordRequest records one logical API call. A zero status means the call
// never produced a response.
func recordRequest(method, route string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	apiRequestsTotal.WithLabelValues(method, route, label).Inc()
	apiRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
