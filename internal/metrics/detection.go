package metrics

import "github.com/prometheus/client_golang/prometheus"

// Detection and resolution metrics.
var (
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Duplicate verdicts by status",
		},
		[]string{"status", "degraded"},
	)

	MaxSimilarity = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "max_similarity",
			Help:      "Highest candidate similarity per check",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		},
	)

	ProposalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_total",
			Help:      "Modification proposals by source",
		},
		[]string{"source"}, // "generator" / "fallback"
	)

	ResolutionImprovement = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_improvement",
			Help:      "Similarity drop between the initial check and the recheck",
			Buckets:   []float64{-0.2, -0.1, 0, 0.05, 0.1, 0.2, 0.3, 0.5, 1},
		},
	)
)

var detectionMetricsRegistered bool

// RegisterDetectionMetrics registers the detection collectors. Must be called once from main.
func RegisterDetectionMetrics() {
	if detectionMetricsRegistered {
		return
	}
	prometheus.MustRegister(VerdictsTotal, MaxSimilarity, ProposalsTotal, ResolutionImprovement)
	detectionMetricsRegistered = true
}

// ProposalSource returns the ProposalsTotal label for a proposal.
func ProposalSource(fallback bool) string {
	if fallback {
		return "fallback"
	}
	return "generator"
}
