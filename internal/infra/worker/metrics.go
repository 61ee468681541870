package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"werss-client/internal/pkg/config"
)

// WorkerMetrics holds the daemon's metrics:
//
//	werss_daemon_config_*                  (embedded ConfigMetrics)
//	werss_sync_job_runs_total{status}      started, success, failure, skipped
//	werss_sync_job_duration_seconds
//	werss_sync_subscriptions_total         subscriptions touched by the last run
//	werss_sync_last_success_timestamp
type WorkerMetrics struct {
	*config.ConfigMetrics

	SyncJobRunsTotal         *prometheus.CounterVec
	SyncJobDurationSeconds   prometheus.Histogram
	SyncSubscriptions        prometheus.Gauge
	SyncLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the metrics on reg, or the default registerer
// when reg is nil.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("werss_daemon", reg),

		SyncJobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "werss_sync_job_runs_total",
			Help: "Total number of scheduled sync runs by status",
		}, []string{"status"}),

		SyncJobDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "werss_sync_job_duration_seconds",
			Help:    "Duration of scheduled sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 180, 600, 1800},
		}),

		SyncSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "werss_sync_subscriptions_total",
			Help: "Number of subscriptions the backend reported for the last sync run",
		}),

		SyncLastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "werss_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync run",
		}),
	}
}

// RecordJobRun counts a run with the given status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.SyncJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes a run's duration.
func (m *WorkerMetrics) RecordJobDuration(d time.Duration) {
	m.SyncJobDurationSeconds.Observe(d.Seconds())
}

// RecordSuccess stores the subscription count and the success time.
func (m *WorkerMetrics) RecordSuccess(subscriptions int) {
	m.SyncSubscriptions.Set(float64(subscriptions))
	m.SyncLastSuccessTimestamp.SetToCurrentTime()
}
