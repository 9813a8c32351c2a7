package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 使用独立 registry，不注册到全局默认 registry
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// 耗时分桶，从几百毫秒到数分钟
var DefaultLatencyBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: registry}

	m.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "doc_summary",
			Name:      "requests_total",
			Help:      "总结请求总数",
		},
		[]string{"mode", "status"},
	)

	m.latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "doc_summary",
			Name:      "latency_seconds",
			Help:      "总结请求耗时（秒）",
			Buckets:   DefaultLatencyBuckets,
		},
		[]string{"mode"},
	)

	m.inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "doc_summary",
			Name:      "inflight",
			Help:      "正在处理的总结请求数",
		},
	)

	registry.MustRegister(m.requests, m.latency, m.inflight)
	return m
}

// Track 记录请求开始，返回的函数在结束时调用，status 为 "ok" 或失败类别
func (m *Metrics) Track(mode string) func(status string) {
	start := time.Now()
	m.inflight.Inc()
	return func(status string) {
		m.inflight.Dec()
		m.requests.WithLabelValues(mode, status).Inc()
		m.latency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

