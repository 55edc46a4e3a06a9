package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dispatch decision service.
type Metrics struct {
	Decisions        *prometheus.CounterVec // labels: mode={AMBULANCE,DOCTOR_DRONE,COMBINED}, rule
	DecisionDuration prometheus.Histogram
	DecisionErrors   *prometheus.CounterVec // labels: stage={normalize,match,decide,zone}
	NormalizeErrors  *prometheus.CounterVec // labels: field={weather_risk,ground_eta_min,air_eta_min,harm_window,label}
	UnresolvedCases  prometheus.Counter
	MatchConfidence  prometheus.Histogram

	// Audit fan-out metrics.
	AuditPublished *prometheus.CounterVec // labels: sink={kafka,sqlite}
	AuditErrors    *prometheus.CounterVec // labels: sink={kafka,sqlite}

	// Reference data metrics.
	ReferenceCases prometheus.Gauge
	LandingZones   prometheus.Gauge
	RefdataReloads *prometheus.CounterVec // labels: outcome={success,error}

	MedicAssignments *prometheus.CounterVec // labels: outcome={assigned,none}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "decisions_total",
			Help:      "Dispatch decisions by response mode and triggered rule.",
		}, []string{"mode", "rule"}),
		DecisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aerial_dispatch",
			Name:      "decision_duration_seconds",
			Help:      "Duration of a complete decision pipeline run.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		DecisionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "decision_errors_total",
			Help:      "Decision requests rejected, by pipeline stage.",
		}, []string{"stage"}),
		NormalizeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "normalize_errors_total",
			Help:      "Raw field values that failed normalization, by field kind.",
		}, []string{"field"}),
		UnresolvedCases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "unresolved_cases_total",
			Help:      "Case queries that matched no reference case with sufficient confidence.",
		}),
		MatchConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aerial_dispatch",
			Name:      "match_confidence",
			Help:      "Similarity score of accepted case matches.",
			Buckets:   []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		AuditPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "audit_published_total",
			Help:      "Decision audit records published, by sink.",
		}, []string{"sink"}),
		AuditErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "audit_errors_total",
			Help:      "Decision audit publish failures, by sink.",
		}, []string{"sink"}),
		ReferenceCases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aerial_dispatch",
			Name:      "reference_cases",
			Help:      "Reference cases in the current snapshot.",
		}),
		LandingZones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aerial_dispatch",
			Name:      "landing_zones",
			Help:      "Landing zones in the current snapshot.",
		}),
		RefdataReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "refdata_reloads_total",
			Help:      "Reference data reload attempts by outcome.",
		}, []string{"outcome"}),
		MedicAssignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerial_dispatch",
			Name:      "medic_assignments_total",
			Help:      "Medic assignment attempts on aerial dispatches, by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.Decisions,
		m.DecisionDuration,
		m.DecisionErrors,
		m.NormalizeErrors,
		m.UnresolvedCases,
		m.MatchConfidence,
		m.AuditPublished,
		m.AuditErrors,
		m.ReferenceCases,
		m.LandingZones,
		m.RefdataReloads,
		m.MedicAssignments,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Decisions:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "decisions_total"}, []string{"mode", "rule"}),
		DecisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "aerial_dispatch", Name: "decision_duration_seconds"}),
		DecisionErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "decision_errors_total"}, []string{"stage"}),
		NormalizeErrors:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "normalize_errors_total"}, []string{"field"}),
		UnresolvedCases:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "unresolved_cases_total"}),
		MatchConfidence:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "aerial_dispatch", Name: "match_confidence"}),
		AuditPublished:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "audit_published_total"}, []string{"sink"}),
		AuditErrors:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "audit_errors_total"}, []string{"sink"}),
		ReferenceCases:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "aerial_dispatch", Name: "reference_cases"}),
		LandingZones:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "aerial_dispatch", Name: "landing_zones"}),
		RefdataReloads:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "refdata_reloads_total"}, []string{"outcome"}),
		MedicAssignments: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "aerial_dispatch", Name: "medic_assignments_total"}, []string{"outcome"}),
	}
}
