// internal/workers/onboarding/save-response/handler.go
package saveresponse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonerrors "cohort-workers/internal/common/errors"
	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "save-response"
)

var (
	ErrResponseSaveFailed = errors.New("RESPONSE_SAVE_FAILED")
	ErrDuplicateResponse  = errors.New("DUPLICATE_RESPONSE")
	ErrInvalidInput       = errors.New("INPUT_VALIDATION_FAILED")
)

type Handler struct {
	config     *Config
	db         *sql.DB
	errHandler *commonerrors.JobErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		errHandler: commonerrors.NewJobErrorHandler(workerLog),
		logger:     workerLog,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SessionID == "" || input.SlotID == "" {
		return nil, fmt.Errorf("%w: sessionId and slotId are required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Response) == "" {
		return nil, fmt.Errorf("%w: response text is empty", ErrInvalidInput)
	}

	// A slot holds one answer per session; re-delivered jobs must not
	// produce a second row.
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM onboarding_responses
			WHERE session_id = $1 AND slot_id = $2
		)`, input.SessionID, input.SlotID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrResponseSaveFailed, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: response already stored for session %s slot %s",
			ErrDuplicateResponse, input.SessionID, input.SlotID)
	}

	responseID := uuid.New().String()
	savedAt := time.Now().UTC().Format(time.RFC3339)

	signalsJSON, err := json.Marshal(input.Signals)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal signals: %v", ErrResponseSaveFailed, err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO onboarding_responses (
			id, session_id, slot_id, response, signals, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		responseID,
		input.SessionID,
		input.SlotID,
		input.Response,
		signalsJSON,
		savedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrResponseSaveFailed, err)
	}

	h.writeAuditRow(ctx, input, responseID, savedAt)

	h.logger.Info("response stored", map[string]interface{}{
		"responseId": responseID,
		"sessionId":  input.SessionID,
		"slotId":     input.SlotID,
	})

	return &Output{
		ResponseID: responseID,
		SessionID:  input.SessionID,
		SlotID:     input.SlotID,
		SavedAt:    savedAt,
	}, nil
}

// writeAuditRow records the save in the audit trail. The response row is the
// source of truth; a failed audit insert is logged, never surfaced.
func (h *Handler) writeAuditRow(ctx context.Context, input *Input, responseID, savedAt string) {
	details, err := json.Marshal(map[string]interface{}{
		"sessionId":  input.SessionID,
		"slotId":     input.SlotID,
		"responseId": responseID,
	})
	if err != nil {
		h.logger.Warn("failed to marshal audit details", map[string]interface{}{
			"responseId": responseID,
			"error":      err.Error(),
		})
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			event_type, resource_type, resource_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5)`,
		"response_saved",
		"onboarding_response",
		responseID,
		details,
		savedAt,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"responseId": responseID,
			"error":      err.Error(),
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// classifyError maps the package sentinels onto structured errors so the
// shared handler can decide between retry and BPMN throw-error.
func classifyError(err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrDuplicateResponse):
		return commonerrors.NewDuplicateResponseError(err.Error())
	case errors.Is(err, ErrResponseSaveFailed):
		return commonerrors.NewResponseSaveFailedError(err)
	case errors.Is(err, ErrInvalidInput):
		return commonerrors.NewInputValidationFailedError(err.Error())
	default:
		return commonerrors.Normalize(err)
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := classifyError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
}

// Execute runs the save directly, outside a job context.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
