// Package metrics registers the Prometheus collectors for analyses,
// saves, generation, and guard checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_analyses_started_total",
			Help: "Total number of analysis tasks started",
		},
	)

	AnalysesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_analyses_completed_total",
			Help: "Total number of analysis tasks finished, by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workflow_analysis_duration_seconds",
			Help:    "Duration of analysis tasks in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)

	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_generation_requests_total",
			Help: "Content generation requests, by content type and outcome",
		},
		[]string{"content_type", "outcome"},
	)

	SavesAttempted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_saves_total",
			Help: "Auto-save attempts, by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	SavesCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_saves_coalesced_total",
			Help: "Save triggers absorbed into an already in-flight save",
		},
	)

	CostLookupsSuperseded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_cost_lookups_superseded_total",
			Help: "Cost estimate responses discarded by a newer request",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workflow_sessions_active",
			Help: "Number of live workflow sessions",
		},
	)

	GuardViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_guard_violations_total",
			Help: "Blocked step navigations, by target step",
		},
		[]string{"target_step"},
	)
)
