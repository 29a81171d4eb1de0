package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts admission decisions by outcome: admitted, not_found,
	// closed, expired, missing_location, out_of_range, duplicate,
	// storage_error.
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoattend_checkins_total",
		Help: "Check-in admission decisions by outcome.",
	}, []string{"outcome"})

	// SessionsCreated counts opened sessions.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoattend_sessions_created_total",
		Help: "Sessions opened by professors.",
	})

	// SessionsClosed counts explicit close transitions.
	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoattend_sessions_closed_total",
		Help: "Sessions explicitly closed.",
	})

	// Exports counts roster exports by format.
	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoattend_exports_total",
		Help: "Roster exports by format.",
	}, []string{"format"})
)
