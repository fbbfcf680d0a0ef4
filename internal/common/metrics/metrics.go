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

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_transitions_total",
			Help: "Applied application status transitions",
		},
		[]string{"from", "to"},
	)

	StaffAccountsProvisioned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staff_accounts_provisioned_total",
			Help: "Staff accounts created from accepted offers",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notification delivery attempts by outcome",
		},
		[]string{"event", "channel", "outcome"},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Notifications dropped without delivery",
		},
		[]string{"event", "reason"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Events waiting in the notification queue",
		},
	)

	SequenceAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sequence_allocations_total",
			Help: "Document numbers issued",
		},
		[]string{"kind", "backend"},
	)

	SequenceConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sequence_allocation_conflicts_total",
			Help: "Allocation attempts that lost a race and were retried",
		},
		[]string{"kind", "backend"},
	)
)
