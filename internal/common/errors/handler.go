// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Logger is the minimal logging surface the error handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// JobErrorHandler routes job failures to the right Zeebe command: retryable
// technical errors go back to the broker with a retry budget, business errors
// are thrown as BPMN errors so the process model can branch on them.
type JobErrorHandler struct {
	logger Logger
}

func NewJobErrorHandler(logger Logger) *JobErrorHandler {
	return &JobErrorHandler{logger: logger}
}

// Normalize coerces any error into a StandardError. Errors that are not
// already structured get ErrCodeUnknown with the raw message as details.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeUnknown,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ShouldRetry reports whether a failure should be retried given the error
// code and the retries the job has left.
func ShouldRetry(code ErrorCode, jobRetries int32) bool {
	return GetRetryCount(code) > 0 && jobRetries > 0
}

// HandleJobError resolves the error's retry policy and sends either a fail
// command or a BPMN throw-error command for the job.
func (h *JobErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	if ShouldRetry(stdErr.Code, job.Retries) {
		h.failJob(ctx, client, job, bpmnErr)
	} else {
		h.throwBPMNError(ctx, client, job, bpmnErr)
	}
}

func (h *JobErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	// Never grow a job's remaining retries; the broker owns the countdown.
	retries := int32(bpmnErr.Retries)
	if job.Retries > 0 && job.Retries < retries {
		retries = job.Retries
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message)

	if vars := bpmnErr.ToErrorVariables(); len(vars) > 0 {
		if varsJSON, err := json.Marshal(vars); err == nil {
			if cmdWithVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
				_, _ = cmdWithVars.Send(ctx)
				return
			}
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *JobErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars := bpmnErr.ToErrorVariables(); len(vars) > 0 {
		if varsJSON, err := json.Marshal(vars); err == nil {
			if cmdWithVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
				_, _ = cmdWithVars.Send(ctx)
				return
			}
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *JobErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
