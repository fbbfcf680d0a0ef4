// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/metrics"
	"codavert-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
)

// JobHandler is implemented by every worker package.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Open subscribes handler to taskType on the broker.
func Open(client zbc.Client, taskType string, maxJobsActive int, timeout time.Duration, handler JobHandler) worker.JobWorker {
	return client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(maxJobsActive).
		Timeout(timeout).
		Name("codavert-" + taskType).
		Open()
}

// Runner carries the bookkeeping every handler does around its Execute:
// timeouts, metrics, tracing and reporting the outcome to the broker.
type Runner struct {
	taskType string
	timeout  time.Duration
	logger   logger.Logger
	errors   *errors.ErrorHandler
	obs      *observability.Observability
	retry    *RetryConfig
}

func NewRunner(taskType string, timeout time.Duration, log logger.Logger, obs *observability.Observability) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		taskType: taskType,
		timeout:  timeout,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
		obs:      obs,
		retry:    DefaultRetryConfig,
	}
}

// Run executes fn for one activated job. A nil error completes the job with
// fn's output as variables; anything else goes through the error handler.
func (r *Runner) Run(client worker.JobClient, job entities.Job, fn func(ctx context.Context) (interface{}, error)) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	ctx, span := r.obs.StartSpan(ctx, r.taskType,
		attribute.Int64("job.key", job.GetKey()),
		attribute.Int64("process.instance", job.GetProcessInstanceKey()),
	)
	defer span.End()

	r.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             r.taskType,
	})

	output, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		bpmnErr := r.errors.HandleJobError(ctx, client, job, err)
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, bpmnErr.Code).Inc()
		r.record(ctx, "failed", start)
		return
	}

	if err := CompleteJob(ctx, client, job, output, r.retry); err != nil {
		r.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": r.taskType,
		})
		r.record(ctx, "complete_failed", start)
		return
	}

	r.logger.Info("Job completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"worker":   r.taskType,
		"duration": time.Since(start).String(),
	})
	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	r.record(ctx, "completed", start)
}

func (r *Runner) record(ctx context.Context, status string, start time.Time) {
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(start).Seconds())
	if r.obs != nil {
		r.obs.RecordJobProcessed(ctx, r.taskType, status)
		r.obs.RecordJobDuration(ctx, r.taskType, time.Since(start), status)
	}
}
