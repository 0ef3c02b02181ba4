package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_operations_total",
			Help: "Order review and status operations by outcome",
		},
		[]string{"operation", "status"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_fulfillment_side_effect_failures_total",
			Help: "Best-effort fulfillment steps that failed and were skipped",
		},
		[]string{"step"},
	)

	pushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_push_deliveries_total",
			Help: "Web push delivery attempts by result",
		},
		[]string{"result"},
	)
)

const (
	PushSent    = "sent"
	PushFailed  = "failed"
	PushEvicted = "evicted"
)

func RecordOrderOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	orderOperations.WithLabelValues(operation, status).Inc()
}

func RecordSideEffectFailure(step string) {
	sideEffectFailures.WithLabelValues(step).Inc()
}

func RecordPush(result string) {
	pushDeliveries.WithLabelValues(result).Inc()
}
