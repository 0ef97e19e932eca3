// Package metrics defines the prometheus collectors of the plan engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// which keeps services usable without a registry.
type Metrics struct {
	registry prometheus.Gatherer

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	generatedDays      prometheus.Counter
	hydrations         *prometheus.CounterVec
	qualityScore       prometheus.Histogram
	feedback           *prometheus.CounterVec
	activations        *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runplan_plan_generations_total",
			Help: "Plan generation attempts by result",
		}, []string{"result"}),
		generationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "runplan_plan_generation_duration_seconds",
			Help:    "Plan generation duration, including persistence",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		generatedDays: f.NewCounter(prometheus.CounterOpts{
			Name: "runplan_training_days_generated_total",
			Help: "Training days written by successful generations",
		}),
		hydrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runplan_telemetry_hydrations_total",
			Help: "Telemetry reconciliation attempts by result",
		}, []string{"result"}),
		qualityScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "runplan_day_quality_score",
			Help:    "Quality score of analysed days",
			Buckets: []float64{0, 25, 45, 50, 70, 75, 80, 100},
		}),
		feedback: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runplan_feedback_submissions_total",
			Help: "Feedback submissions by result",
		}, []string{"result"}),
		activations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runplan_plan_activations_total",
			Help: "Plan activation calls by result",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records one generation attempt.
func (m *Metrics) ObserveGeneration(result string, took time.Duration, days int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(result).Inc()
	m.generationDuration.Observe(took.Seconds())
	if result == ResultSuccess {
		m.generatedDays.Add(float64(days))
	}
}

// ObserveHydration records one reconciliation. score is nil when the day was
// not analysed.
func (m *Metrics) ObserveHydration(result string, score *int) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(result).Inc()
	if score != nil {
		m.qualityScore.Observe(float64(*score))
	}
}

func (m *Metrics) ObserveFeedback(result string) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveActivation(result string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(result).Inc()
}
