package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultExpired  = "expired"
	ResultRevoked  = "revoked"
	ResultGated    = "gated"
	ResultThrottle = "throttled"
	ResultError    = "error"
)

var (
	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hemline",
		Name:      "auth_events_total",
		Help:      "Session operations by outcome.",
	}, []string{"operation", "result"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hemline",
		Name:      "notifications_total",
		Help:      "Notification deliveries by kind and outcome.",
	}, []string{"kind", "result"})

	sweptAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hemline",
		Name:      "swept_accounts_total",
		Help:      "Accounts hard-deleted after the deletion grace window.",
	})
)

func AuthEvent(operation, result string) {
	authEvents.WithLabelValues(operation, result).Inc()
}

func Notification(kind, result string) {
	notifications.WithLabelValues(kind, result).Inc()
}

func SweptAccounts(n int) {
	if n > 0 {
		sweptAccounts.Add(float64(n))
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
