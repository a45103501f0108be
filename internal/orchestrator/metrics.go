package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated by runs.
type Metrics struct {
	stageTransitions  *prometheus.CounterVec   // stage
	stageDuration     *prometheus.HistogramVec // stage
	runs              *prometheus.CounterVec   // mode, status
	errors            *prometheus.CounterVec   // kind, recovered
	dispatches        *prometheus.CounterVec   // strategy
	dispatchFallbacks prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		stageTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "variantlab",
			Subsystem: "pipeline",
			Name:      "stage_transitions_total",
			Help:      "Stage transitions by target stage",
		}, []string{"stage"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "variantlab",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each completed stage",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 900, 1800, 3600, 7200, 14400},
		}, []string{"stage"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "variantlab",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Finished runs by mode and outcome",
		}, []string{"mode", "status"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "variantlab",
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Recorded stage errors by kind",
		}, []string{"kind", "recovered"}),
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "variantlab",
			Subsystem: "dispatch",
			Name:      "runs_total",
			Help:      "Training dispatches by strategy",
		}, []string{"strategy"}),
		dispatchFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "variantlab",
			Subsystem: "dispatch",
			Name:      "fallbacks_total",
			Help:      "Concurrent dispatches that fell back to sequential",
		}),
	}
}
