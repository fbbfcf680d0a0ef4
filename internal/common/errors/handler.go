// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler fails or throws Zeebe jobs from StandardErrors.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError reports err to the broker. Retryable codes fail the job with
// a retry budget; everything else is thrown as a BPMN error so the process
// can route on the code.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) *BPMNError {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	if bpmnErr.Retries > 0 && job.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, bpmnErr)
	} else {
		h.throwBPMNError(ctx, client, job, bpmnErr)
	}
	return bpmnErr
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	retries := bpmnErr.Retries
	if int(job.Retries)-1 < retries {
		retries = int(job.Retries) - 1
	}
	if retries < 0 {
		retries = 0
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage("[" + bpmnErr.Code + "] " + bpmnErr.Message)

	if withVars, err := cmd.VariablesFromString(errorVariablesJSON(bpmnErr)); err == nil {
		if _, err := withVars.Send(ctx); err != nil {
			h.logSendFailure(job, err)
		}
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logSendFailure(job, err)
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if withVars, err := cmd.VariablesFromString(errorVariablesJSON(bpmnErr)); err == nil {
		if _, err := withVars.Send(ctx); err != nil {
			h.logSendFailure(job, err)
		}
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logSendFailure(job, err)
	}
}

func (h *ErrorHandler) logSendFailure(job entities.Job, err error) {
	h.logger.Error("Failed to report job error to broker", map[string]interface{}{
		"jobKey":  job.Key,
		"jobType": job.Type,
		"error":   err.Error(),
	})
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}

func errorVariablesJSON(bpmnErr *BPMNError) string {
	data, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "{}"
	}
	return string(data)
}
