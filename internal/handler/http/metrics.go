package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	controlRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werss_control_requests_total",
			Help: "Total number of daemon control requests",
		},
		[]string{"method", "route", "status"},
	)

	controlRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "werss_control_request_duration_seconds",
			Help:    "Daemon control request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	controlRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "werss_control_requests_in_flight",
			Help: "Current number of daemon control requests being served",
		},
	)
)

// Instrument records request metrics under route. Routes are fixed strings,
// so label cardinality stays bounded.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		controlRequestsInFlight.Inc()
		defer controlRequestsInFlight.Dec()

		rec := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		controlRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		controlRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler serves the Prometheus exposition format from the default
// gatherer.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
