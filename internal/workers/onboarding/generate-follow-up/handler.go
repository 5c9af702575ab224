// internal/workers/onboarding/generate-follow-up/handler.go
package generatefollowup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "cohort-workers/internal/common/errors"
	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/common/metrics"
	"cohort-workers/internal/engine/followup"
	"cohort-workers/internal/engine/novelty"
	"cohort-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "generate-follow-up"
)

var (
	ErrStateLoadFailed = errors.New("STATE_LOAD_FAILED")
	ErrStateSaveFailed = errors.New("STATE_SAVE_FAILED")
)

type Handler struct {
	config       *Config
	store        *StateStore
	orchestrator *followup.Orchestrator
	errHandler   *commonerrors.JobErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, redisClient *redis.Client, service followup.QuestionService, log logger.Logger) *Handler {
	filter := novelty.NewFilter(config.SimilarityThreshold)
	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        NewStateStore(redisClient, config.StateTTL),
		orchestrator: followup.NewOrchestrator(service, filter, config.MaxAttempts, config.DirectStyleAttempt, log),
		errHandler:   commonerrors.NewJobErrorHandler(workerLog),
		logger:       workerLog,
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
		h.failJob(client, job, "", fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, input.SessionID, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	state, err := h.store.Load(ctx, input.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateLoadFailed, err)
	}

	analysis := models.AnalysisResult{
		NeedsFollowUp:     input.NeedsFollowUp,
		HasBirthTimeframe: input.HasBirthTimeframe,
		HasGeography:      input.HasGeography,
		MissingInfo: models.MissingInfo{
			BirthTimeframe: !input.HasBirthTimeframe,
			Geography:      !input.HasGeography,
		},
		Signals: input.Signals,
	}

	// A stored question count ahead of the attempt counter means the last
	// question has since been answered and re-analyzed.
	if len(state.AskedQuestions) == state.AttemptNumber+1 {
		h.orchestrator.ObserveAnalysis(state, analysis)
	}

	// Once both required facts are known, the conversation either ends (no
	// questions were ever needed) or continues with bounded enrichment
	// rounds until the attempt budget is used up.
	if !analysis.NeedsFollowUp {
		done := state.Phase == models.PhaseRequiredInfo || state.AttemptNumber >= h.config.MaxAttempts
		if done {
			if err := h.store.Delete(ctx, input.SessionID); err != nil {
				h.logger.Warn("failed to clear conversation state", map[string]interface{}{
					"sessionId": input.SessionID,
					"error":     err.Error(),
				})
			}
			return &Output{
				SessionID:     input.SessionID,
				NeedsFollowUp: false,
				AttemptNumber: state.AttemptNumber,
			}, nil
		}
	}

	result := h.orchestrator.NextQuestion(ctx, state, analysis)

	if result.BudgetExhausted {
		metrics.FollowUpBudgetExhausted.Inc()
		if err := h.store.Delete(ctx, input.SessionID); err != nil {
			h.logger.Warn("failed to clear conversation state", map[string]interface{}{
				"sessionId": input.SessionID,
				"error":     err.Error(),
			})
		}
		h.logger.Info("follow-up budget exhausted", map[string]interface{}{
			"sessionId":     input.SessionID,
			"missingFields": result.MissingFields,
		})
		return &Output{
			SessionID:          input.SessionID,
			NeedsFollowUp:      false,
			AttemptNumber:      state.AttemptNumber,
			MissingFields:      result.MissingFields,
			ProceedWithUnknown: true,
		}, nil
	}

	if err := h.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateSaveFailed, err)
	}

	source := "generated"
	if result.FromFallback {
		source = "fallback"
	}
	metrics.FollowUpQuestions.WithLabelValues(source, string(state.Phase)).Inc()

	h.logger.Info("follow-up question prepared", map[string]interface{}{
		"sessionId":     input.SessionID,
		"attemptNumber": state.AttemptNumber,
		"phase":         string(state.Phase),
		"source":        source,
	})

	return &Output{
		SessionID:     input.SessionID,
		NeedsFollowUp: true,
		Question:      result.Question,
		AttemptNumber: state.AttemptNumber,
		Phase:         string(state.Phase),
		MissingFields: result.MissingFields,
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
func classifyError(sessionID string, err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, ErrStateLoadFailed):
		return commonerrors.NewStateLoadFailedError(sessionID, err)
	case errors.Is(err, ErrStateSaveFailed):
		return commonerrors.NewStateSaveFailedError(sessionID, err)
	default:
		return commonerrors.Normalize(err)
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, sessionID string, err error) {
	stdErr := classifyError(sessionID, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
}

// Execute runs the follow-up decision directly, outside a job context.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
