package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the report workflow.
type Metrics struct {
	// Draft persistence metrics.
	DraftSaves       *prometheus.CounterVec // labels: trigger={manual,autosave}
	DraftSaveErrors  *prometheus.CounterVec // labels: trigger={manual,autosave}
	AutosaveSkipped  prometheus.Counter
	DraftLoads       *prometheus.CounterVec // labels: result={restored,none,error}
	DraftSaveLatency prometheus.Histogram

	// Submission metrics.
	Submissions      *prometheus.CounterVec // labels: outcome={accepted,failed,rejected}
	SubmitDuration   prometheus.Histogram
	SubmitInProgress prometheus.Gauge

	// Media intake.
	MediaRejected prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all workflow metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.DraftSaves,
		m.DraftSaveErrors,
		m.AutosaveSkipped,
		m.DraftLoads,
		m.DraftSaveLatency,
		m.Submissions,
		m.SubmitDuration,
		m.SubmitInProgress,
		m.MediaRejected,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DraftSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "draft_saves_total",
			Help:      "Drafts written to the draft store, by trigger.",
		}, []string{"trigger"}),
		DraftSaveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "draft_save_errors_total",
			Help:      "Failed draft writes, by trigger.",
		}, []string{"trigger"}),
		AutosaveSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "autosave_skipped_total",
			Help:      "Autosave ticks that found nothing worth saving.",
		}),
		DraftLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "draft_loads_total",
			Help:      "Draft restore attempts, by result.",
		}, []string{"result"}),
		DraftSaveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_report",
			Name:      "draft_save_duration_seconds",
			Help:      "Duration of a draft save including any artificial delay.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "submissions_total",
			Help:      "Report submissions, by outcome.",
		}, []string{"outcome"}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_report",
			Name:      "submit_duration_seconds",
			Help:      "Duration of a report submission to the ingestion backend.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SubmitInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_report",
			Name:      "submit_in_progress",
			Help:      "1 while a submission is outstanding, 0 otherwise.",
		}),
		MediaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "media_rejected_total",
			Help:      "Offered files dropped for type or size.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_report",
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_report",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
