package desktop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// soundPlaysTotal counts chime playbacks by result
	soundPlaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werss_desktop_sound_plays_total",
			Help: "Total number of notification chime playbacks",
		},
		[]string{"result"}, // played|fallback|failed
	)

	desktopNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "werss_desktop_notifications_total",
			Help: "Total number of OS notifications raised",
		},
		[]string{"result"}, // success|failure
	)
)
