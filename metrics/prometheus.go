package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the x402 collectors with reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		counters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "x402",
				Name:      "payments_total",
				Help:      "Payment events by type, network and token.",
			},
			[]string{"type", "network", "symbol"},
		),
		histogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "x402",
				Name:      "facilitator_latency_seconds",
				Help:      "Facilitator round-trip latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "network"},
		),
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"network": labels["network"],
		"symbol":  labels["symbol"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"network":   labels["network"],
	}).Observe(d.Seconds())
}
