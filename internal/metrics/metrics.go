// AngelaMos | 2026
// metrics.go

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	leadTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_lead_transitions_total",
		Help: "Accepted and rejected lead stage transitions",
	}, []string{"kind"})

	activityLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_activity_log_failures_total",
		Help: "Activity log writes that failed and were dropped",
	})

	permissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_permission_denials_total",
		Help: "Requests rejected by the permission guard",
	}, []string{"permission"})

	sessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_sessions_purged_total",
		Help: "Expired sessions removed by the admin purge",
	})
)

const (
	LoginSuccess      = "success"
	LoginInvalid      = "invalid_credentials"
	LoginLocked       = "locked"
	LoginStorageError = "error"
)

func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func ObserveLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveTransition counts a transition by kind (advance, skip, lost,
// converted, rejected).
func ObserveTransition(kind string) {
	leadTransitions.WithLabelValues(kind).Inc()
}

func IncActivityLogFailure() {
	activityLogFailures.Inc()
}

func ObservePermissionDenied(permission string) {
	permissionDenials.WithLabelValues(permission).Inc()
}

func AddSessionsPurged(n int64) {
	if n <= 0 {
		return
	}
	sessionsPurged.Add(float64(n))
}
