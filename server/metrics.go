package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hackernews/errs"
)

const namespace = "hackernews"

// Metrics 进程内的指标，使用独立的 Registry
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	resolves        *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_resolve_total",
			Help:      "GraphQL field resolutions by field and error code.",
		}, []string{"field", "code"}),
		resolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_resolve_duration_seconds",
			Help:      "GraphQL field resolution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"field"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.resolves,
		m.resolveDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveResolve 实现 graphql.Observer，成功时 code 记为 OK
func (m *Metrics) ObserveResolve(field string, code errs.Code, d time.Duration) {
	label := string(code)
	if label == "" {
		label = "OK"
	}
	m.resolves.WithLabelValues(field, label).Inc()
	m.resolveDuration.WithLabelValues(field).Observe(d.Seconds())
}

func (m *Metrics) observeRequest(method, route string, status int) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
