package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpMetricsOnce      sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
)

func initHTTPMetrics() {
	httpMetricsOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badge_to_cert",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed",
		}, []string{"method", "route", "status"})

		httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "badge_to_cert",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP request handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})

		httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "badge_to_cert",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being handled",
		})
	})
}

// MetricsMiddleware records request counts, latency and in-flight gauge per
// route template (not raw path, to keep cardinality bounded).
func MetricsMiddleware() gin.HandlerFunc {
	initHTTPMetrics()

	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		c.Next()

		httpRequestsInFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, route, status).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
