package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generator (chat completion) metrics. The "purpose" label is rewrite, analysis or alternatives.
var (
	GeneratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_requests_total",
			Help:      "Total number of generator requests",
		},
		[]string{"model", "purpose", "status"},
	)

	GeneratorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_request_duration_seconds",
			Help:      "Generator request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"model", "purpose"},
	)

	GeneratorTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_tokens_total",
			Help:      "Total generator tokens consumed",
		},
		[]string{"model", "type"},
	)

	GeneratorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_errors_total",
			Help:      "Total generator errors",
		},
		[]string{"model", "error_type"},
	)
)

var genMetricsRegistered bool

// RegisterGeneratorMetrics registers the generator collectors. Must be called once from main.
func RegisterGeneratorMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		GeneratorRequestsTotal,
		GeneratorRequestDuration,
		GeneratorTokensTotal,
		GeneratorErrorsTotal,
	)
	genMetricsRegistered = true
}
