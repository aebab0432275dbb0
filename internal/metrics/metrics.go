package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	verifications   *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	danglingLinks   prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traceability",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "traceability",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traceability",
		Name:      "verifications_total",
		Help:      "Dark code verifications by outcome",
	}, []string{"status"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "traceability",
		Name:      "import_rows_total",
		Help:      "Rows processed by batch imports",
	}, []string{"kind", "result"})
	dangling := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "traceability",
		Name:      "dangling_product_links",
		Help:      "Codes whose product_id references a missing product",
	})

	registry.MustRegister(requests, duration, verifications, importRows, dangling)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		verifications:   verifications,
		importRows:      importRows,
		danglingLinks:   dangling,
	}
}

// Handler serves /metrics.
func (m *Metrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.AbortWithStatus(http.StatusServiceUnavailable)
		}
	}
	return gin.WrapH(m.handler)
}

// Middleware records count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObserveVerification(status string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveImport(kind string, success, failure int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(kind, "success").Add(float64(success))
	m.importRows.WithLabelValues(kind, "failure").Add(float64(failure))
}

func (m *Metrics) SetDanglingLinks(n int64) {
	if m == nil {
		return
	}
	m.danglingLinks.Set(float64(n))
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}
