package mockserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	executions *prometheus.CounterVec
	inflight   prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "http_requests_total",
			Help:      "Backend requests by route and status code.",
		}, []string{"method", "route", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stepwise",
			Name:      "http_request_duration_seconds",
			Help:      "Backend request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "executions_total",
			Help:      "Finished scenario executions by outcome.",
		}, []string{"status"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "stepwise",
			Name:      "executions_running",
			Help:      "Executions currently running.",
		}),
	}
}
