// Package metrics registers Prometheus metrics for cardforge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CardsRendered counts finished renders by card kind.
	CardsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardforge_cards_rendered_total",
			Help: "Number of cards rendered",
		},
		[]string{"kind"},
	)

	// RenderDuration is a histogram of full card render time.
	RenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardforge_render_duration_seconds",
			Help:    "Time spent rendering and encoding one card",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
	)

	// ComponentsSkipped counts components left out of a render.
	ComponentsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardforge_components_skipped_total",
			Help: "Components skipped during rendering, by reason",
		},
		[]string{"reason"},
	)

	// BatchGroups counts processed batch groups by outcome
	// (rendered, lookup_failed, render_failed).
	BatchGroups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardforge_batch_groups_total",
			Help: "Batch groups processed, by outcome",
		},
		[]string{"outcome"},
	)

	// RateLimitRetries counts metadata lookups retried after a rate limit.
	RateLimitRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardforge_rate_limit_retries_total",
			Help: "Metadata lookups retried after an upstream rate limit",
		},
	)
)

// Register adds all metrics to the default Prometheus registry.
func Register() {
	prometheus.MustRegister(CardsRendered)
	prometheus.MustRegister(RenderDuration)
	prometheus.MustRegister(ComponentsSkipped)
	prometheus.MustRegister(BatchGroups)
	prometheus.MustRegister(RateLimitRetries)
}
