// internal/workers/onboarding/analyze-responses/handler.go
package analyzeresponses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "cohort-workers/internal/common/errors"
	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/common/metrics"
	"cohort-workers/internal/common/validation"
	"cohort-workers/internal/engine/extract"
	"cohort-workers/internal/engine/gap"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "analyze-responses"
)

var (
	ErrInputValidationFailed = errors.New("INPUT_VALIDATION_FAILED")
)

type Handler struct {
	config     *Config
	analyzer   *gap.Analyzer
	errHandler *commonerrors.JobErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		analyzer:   gap.NewAnalyzer(extract.New()),
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

	var variables map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &variables); err != nil {
		h.failJob(client, job, fmt.Errorf("parse variables: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, variables)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, variables map[string]interface{}) (*Output, error) {
	schema := GetInputSchema()
	validationResult := validation.ValidateInput(variables, schema)
	if !validationResult.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInputValidationFailed, validationResult.GetErrorMessages())
	}

	input := &Input{
		SessionID: variables["sessionId"].(string),
	}
	if responses, ok := variables["responses"].(map[string]interface{}); ok {
		input.Responses = responses
	}

	responseSet := gap.Normalize(input.Responses)

	extractStart := time.Now()
	analysis, err := h.analyzer.Analyze(responseSet)
	metrics.ExtractionDuration.Observe(time.Since(extractStart).Seconds())
	if err != nil {
		if errors.Is(err, gap.ErrEmptyResponses) {
			return nil, fmt.Errorf("%w: %v", ErrInputValidationFailed, err)
		}
		return nil, err
	}

	h.logger.Info("response analysis completed", map[string]interface{}{
		"sessionId":         input.SessionID,
		"needsFollowUp":     analysis.NeedsFollowUp,
		"hasBirthTimeframe": analysis.HasBirthTimeframe,
		"hasGeography":      analysis.HasGeography,
		"locationCount":     len(analysis.Signals.Locations),
	})

	return &Output{
		SessionID:         input.SessionID,
		NeedsFollowUp:     analysis.NeedsFollowUp,
		HasBirthTimeframe: analysis.HasBirthTimeframe,
		HasGeography:      analysis.HasGeography,
		MissingFields:     analysis.MissingInfo.MissingFields(),
		Signals:           analysis.Signals,
	}, nil
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
	if errors.Is(err, ErrInputValidationFailed) {
		return commonerrors.NewInputValidationFailedError(err.Error())
	}
	return commonerrors.Normalize(err)
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := classifyError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
}

// Execute runs the analysis directly, outside a job context.
func (h *Handler) Execute(ctx context.Context, variables map[string]interface{}) (*Output, error) {
	return h.execute(ctx, variables)
}
