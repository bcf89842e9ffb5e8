package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taitrace_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taitrace_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taitrace_runs_total",
		Help: "Sandboxed runs by outcome",
	}, []string{"outcome"})

	RunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taitrace_runs_active",
		Help: "Number of sandboxed runs in progress",
	})

	TraceSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taitrace_trace_steps",
		Help:    "Steps recorded per successful run",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	ModelLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taitrace_model_loads_total",
		Help: "Model load attempts by tier and outcome",
	}, []string{"tier", "outcome"})

	ExplanationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taitrace_explanations_total",
		Help: "Step explanations by outcome",
	}, []string{"outcome"})

	ExplanationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taitrace_explanation_duration_seconds",
		Help:    "Model generation duration per step",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tier"})

	ExplanationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taitrace_explanation_cache_hits_total",
		Help: "Explanations served from the in-process cache",
	})
)
