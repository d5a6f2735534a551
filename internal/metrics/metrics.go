// Package metrics provides Prometheus metrics for collabctl.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginsTotal counts login attempts by result.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabctl",
			Name:      "logins_total",
			Help:      "Total number of login attempts",
		},
		[]string{"result"},
	)

	// RefreshTotal counts token refreshes by result.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabctl",
			Name:      "token_refresh_total",
			Help:      "Total number of token refresh attempts",
		},
		[]string{"result"},
	)

	// ForcedLogoutsTotal counts logouts caused by a failed refresh.
	ForcedLogoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabctl",
			Name:      "forced_logouts_total",
			Help:      "Total number of sessions cleared because the refresh failed",
		},
		[]string{"reason"},
	)

	// SessionAuthenticated is 1 while the session is authenticated.
	SessionAuthenticated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "collabctl",
			Name:      "session_authenticated",
			Help:      "Session status (1 = authenticated, 0 = not authenticated)",
		},
	)

	// APIRequestsTotal counts backend requests by operation and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabctl",
			Name:      "api_requests_total",
			Help:      "Total number of backend API requests",
		},
		[]string{"op", "status"},
	)

	// APIRequestDuration measures backend request duration.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collabctl",
			Name:      "api_request_duration_seconds",
			Help:      "Duration of backend API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// RecordLogin records a login attempt.
func RecordLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}

// RecordRefresh records a refresh attempt.
func RecordRefresh(result string) {
	RefreshTotal.WithLabelValues(result).Inc()
}

// RecordForcedLogout records a session cleared after a failed refresh.
func RecordForcedLogout(reason string) {
	ForcedLogoutsTotal.WithLabelValues(reason).Inc()
}

// SetAuthenticated updates the session status gauge.
func SetAuthenticated(ok bool) {
	if ok {
		SessionAuthenticated.Set(1)
		return
	}
	SessionAuthenticated.Set(0)
}

// RecordAPIRequest records a backend request. A zero status means the request
// never got a response.
func RecordAPIRequest(op string, status int, duration float64) {
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APIRequestsTotal.WithLabelValues(op, label).Inc()
	APIRequestDuration.WithLabelValues(op).Observe(duration)
}
