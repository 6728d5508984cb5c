// Package metrics exposes Prometheus metrics for the directory API.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dealbook"

// Metrics holds the application's Prometheus collectors.
type Metrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SearchCounter   *prometheus.CounterVec
	SearchResults   *prometheus.HistogramVec
	ExportCounter   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg. When reg is
// also a Gatherer, Handler serves it.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SearchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Directory searches by entity.",
		}, []string{"entity"}),
		SearchResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Total matches per directory search.",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}, []string{"entity"}),
		ExportCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports by entity and format.",
		}, []string{"entity", "format"}),
	}

	for _, c := range []prometheus.Collector{
		m.RequestCounter, m.RequestDuration, m.SearchCounter, m.SearchResults, m.ExportCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m, nil
}

// RecordSearch counts a search and observes its total match count.
func (m *Metrics) RecordSearch(entity string, total int64) {
	m.SearchCounter.WithLabelValues(entity).Inc()
	m.SearchResults.WithLabelValues(entity).Observe(float64(total))
}

// RecordExport counts a completed export.
func (m *Metrics) RecordExport(entity, format string) {
	m.ExportCounter.WithLabelValues(entity, format).Inc()
}

// Middleware records request count and latency. The route label is the
// matched gin route so ids do not create new series.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
