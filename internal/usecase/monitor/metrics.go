package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll outcomes recorded in werss_monitor_polls_total.
const (
	pollResultError       = "error"
	pollResultUnchanged   = "unchanged"
	pollResultNewArticles = "new_articles"
	pollResultStale       = "stale"
)

var (
	// pollsTotal counts poll ticks by outcome
	pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werss_monitor_polls_total",
			Help: "Total number of article count polls",
		},
		[]string{"result"}, // error|unchanged|new_articles|stale
	)

	newArticlesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "werss_monitor_new_articles_total",
			Help: "Total number of new articles announced",
		},
	)

	lastCountGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "werss_monitor_last_count",
			Help: "Most recently observed total article count",
		},
	)

	enabledGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "werss_monitor_enabled",
			Help: "1 when the new-article poll loop is running, 0 otherwise",
		},
	)

	// sideEffectFailures counts failed or panicking announcement effects
	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werss_monitor_side_effect_failures_total",
			Help: "Total number of failed announcement side effects",
		},
		[]string{"effect"}, // sound|title|desktop|alerts
	)
)

func recordPoll(result string) {
	pollsTotal.WithLabelValues(result).Inc()
}

func setEnabled(enabled bool) {
	if enabled {
		enabledGauge.Set(1)
		return
	}
	enabledGauge.Set(0)
}
