package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const httpMetricPrefix = "communal_http_"

// HTTPDurationBuckets are the latency buckets in seconds. Statement exports
// and synchronous computations sit in the upper buckets.
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// HTTPMetrics holds the Prometheus collectors of the HTTP layer
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewHTTPMetrics creates the collectors and registers them with reg
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: httpMetricPrefix + "requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    httpMetricPrefix + "request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: HTTPDurationBuckets,
			},
			[]string{"method", "route"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: httpMetricPrefix + "requests_in_flight",
			Help: "HTTP requests being served",
		}),
	}
	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Metrics records every request. Unmatched paths share the route label
// "unmatched" so scanners cannot blow up label cardinality.
func Metrics(m *HTTPMetrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
