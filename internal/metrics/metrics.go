// Package metrics exposes Prometheus collectors for the application core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appcore",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of remote API requests.",
		},
		[]string{"method", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appcore",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of remote API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method"},
	)

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appcore",
			Subsystem: "session",
			Name:      "token_refreshes_total",
			Help:      "Total number of token refresh attempts.",
		},
		[]string{"result"},
	)

	queuePolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appcore",
			Subsystem: "queue",
			Name:      "polls_total",
			Help:      "Total number of telemedicine queue polls.",
		},
		[]string{"result"},
	)

	cartOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appcore",
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Total number of cart mutations.",
		},
		[]string{"op"},
	)

	paymentPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appcore",
			Subsystem: "payment",
			Name:      "status_polls_total",
			Help:      "Total number of payment status polls.",
		},
		[]string{"method", "result"},
	)
)

func init() {
	Registry.MustRegister(
		apiRequests,
		apiDuration,
		tokenRefreshes,
		queuePolls,
		cartOperations,
		paymentPolls,
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordAPIRequest records one remote API call.
func RecordAPIRequest(method string, status int, duration time.Duration) {
	apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	apiDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordTokenRefresh records one refresh attempt.
func RecordTokenRefresh(success bool) {
	tokenRefreshes.WithLabelValues(resultLabel(success)).Inc()
}

// RecordQueuePoll records one queue snapshot fetch.
func RecordQueuePoll(success bool) {
	queuePolls.WithLabelValues(resultLabel(success)).Inc()
}

// RecordCartOperation records one cart mutation ("add", "remove", "clear").
func RecordCartOperation(op string) {
	cartOperations.WithLabelValues(op).Inc()
}

// RecordPaymentPoll records one payment status poll.
func RecordPaymentPoll(method string, success bool) {
	paymentPolls.WithLabelValues(method, resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
