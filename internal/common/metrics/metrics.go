// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// Conversation-policy metrics.

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_extraction_duration_seconds",
			Help:    "Duration of signal extraction and gap analysis in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	FollowUpQuestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_questions_total",
			Help: "Follow-up questions produced, by source (generated or fallback)",
		},
		[]string{"source", "phase"},
	)

	FollowUpBudgetExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "followup_budget_exhausted_total",
			Help: "Sessions that ran out of follow-up attempts with required facts missing",
		},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_classifications_total",
			Help: "Cohort classifications performed, by resulting generation label",
		},
		[]string{"generation"},
	)

	ClassificationConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cohort_classification_confidence",
			Help:    "Confidence scores of cohort classifications",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)
