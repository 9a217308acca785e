package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "order_service"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests, by route.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "route"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "orders",
			Name:      "operations_total",
			Help:      "Order handler invocations, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	orderItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "orders",
			Name:      "items_per_order",
			Help:      "Number of line items in each created order.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
)

// PrometheusMiddleware records request count and latency per route template,
// so /order/1 and /order/2 share a series.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordOrderOperation counts an order handler outcome from its response code.
func RecordOrderOperation(operation string, code int) {
	orderOperations.WithLabelValues(operation, outcome(code)).Inc()
}

func ObserveOrderItems(n int) {
	orderItems.Observe(float64(n))
}

func outcome(code int) string {
	switch {
	case code >= 500:
		return "error"
	case code >= 400:
		return "rejected"
	default:
		return "success"
	}
}
