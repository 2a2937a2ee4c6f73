// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreverstream_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foreverstream_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Trigger metrics
var (
	TriggerEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreverstream_trigger_events_total",
			Help: "Trigger events by handler and outcome",
		},
		[]string{"handler", "outcome"},
	)
)

// Pipeline metrics
var (
	JobSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreverstream_job_submissions_total",
			Help: "Managed transcoder job submissions by result",
		},
		[]string{"result"},
	)

	LadderRenditions = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "foreverstream_ladder_renditions",
			Help:    "Number of renditions in submitted ladders",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	LocalPipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foreverstream_local_pipeline_duration_seconds",
			Help:    "Local worker pipeline duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"result"},
	)

	LocalPipelineInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foreverstream_local_pipeline_in_flight",
			Help: "Local worker pipelines currently running",
		},
	)
)

// Store and background loop metrics
var (
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreverstream_status_transitions_total",
			Help: "Asset status transitions by target status and result",
		},
		[]string{"to", "result"},
	)

	ReconcilerActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foreverstream_reconciler_actions_total",
			Help: "Reconciler outcomes per polled job",
		},
		[]string{"action"},
	)

	ScratchSweepRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foreverstream_scratch_sweep_removed_total",
			Help: "Stale scratch directories removed by the sweeper",
		},
	)

	AssetsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "foreverstream_assets",
			Help: "Assets per status at the last stats refresh",
		},
		[]string{"status"},
	)
)

// Result label values shared across collectors.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// ObserveTransition counts one status transition attempt.
func ObserveTransition(to string, err error) {
	StatusTransitionsTotal.WithLabelValues(to, Result(err)).Inc()
}
