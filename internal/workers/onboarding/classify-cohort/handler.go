// internal/workers/onboarding/classify-cohort/handler.go
package classifycohort

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonerrors "cohort-workers/internal/common/errors"
	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/common/metrics"
	"cohort-workers/internal/engine/cohort"
	"cohort-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "classify-cohort"

	cacheKeyPrefix = "cohort:result:"
)

var (
	ErrClassificationFailed = errors.New("CLASSIFICATION_FAILED")
	ErrResultSaveFailed     = errors.New("RESULT_SAVE_FAILED")
)

type Handler struct {
	config      *Config
	classifier  *cohort.Classifier
	db          *sql.DB
	redisClient *redis.Client
	errHandler  *commonerrors.JobErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) *Handler {
	workerLog := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		classifier:  cohort.NewClassifier(),
		db:          db,
		redisClient: redisClient,
		errHandler:  commonerrors.NewJobErrorHandler(workerLog),
		logger:      workerLog,
	}
}

// cachedResult is the cache envelope: the classification plus the row id so
// a redelivered job can answer without re-classifying or re-inserting.
type cachedResult struct {
	models.CohortResult
	ResultID string `json:"resultId"`
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
	if input.SessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrClassificationFailed)
	}

	if cached, ok := h.cachedOutput(ctx, input.SessionID); ok {
		return cached, nil
	}

	var region *string
	if loc := input.Signals.PrimaryLocation(); loc != "" {
		region = &loc
	}

	result := h.classifier.Classify(input.Signals.BirthYear, input.Signals.BirthDecade, region)

	metrics.Classifications.WithLabelValues(result.Generation).Inc()
	metrics.ClassificationConfidence.Observe(result.Confidence)

	resultID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal result: %v", ErrClassificationFailed, err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO cohort_results (
			id, session_id, generation, confidence, region,
			micro_generation, cusp, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		resultID,
		input.SessionID,
		result.Generation,
		result.Confidence,
		result.Region,
		result.MicroGeneration,
		result.Cusp,
		resultJSON,
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrResultSaveFailed, err)
	}

	// Cache write failures are non-critical; the database row is the record.
	cacheJSON, err := json.Marshal(cachedResult{CohortResult: result, ResultID: resultID})
	if err != nil {
		cacheJSON = resultJSON
	}
	if err := h.redisClient.Set(ctx, cacheKeyPrefix+input.SessionID, string(cacheJSON), h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("failed to cache classification result", map[string]interface{}{
			"sessionId": input.SessionID,
			"error":     err.Error(),
		})
	}

	h.logger.Info("cohort classified", map[string]interface{}{
		"sessionId":       input.SessionID,
		"generation":      result.Generation,
		"confidence":      result.Confidence,
		"cusp":            result.Cusp,
		"microGeneration": result.MicroGeneration,
	})

	return &Output{
		SessionID:       input.SessionID,
		Generation:      result.Generation,
		Confidence:      result.Confidence,
		Region:          result.Region,
		MicroGeneration: result.MicroGeneration,
		Alternatives:    result.Alternatives,
		Cusp:            result.Cusp,
		ResolvedYear:    result.ResolvedYear,
		ResultID:        resultID,
	}, nil
}

// cachedOutput replays a previously stored classification for the session,
// keeping redelivered jobs from inserting a second result row.
func (h *Handler) cachedOutput(ctx context.Context, sessionID string) (*Output, bool) {
	data, err := h.redisClient.Get(ctx, cacheKeyPrefix+sessionID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("classification cache read failed", map[string]interface{}{
				"sessionId": sessionID,
				"error":     err.Error(),
			})
		}
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil || cached.ResultID == "" {
		return nil, false
	}

	h.logger.Info("returning cached classification", map[string]interface{}{
		"sessionId": sessionID,
		"resultId":  cached.ResultID,
	})

	return &Output{
		SessionID:       sessionID,
		Generation:      cached.Generation,
		Confidence:      cached.Confidence,
		Region:          cached.Region,
		MicroGeneration: cached.MicroGeneration,
		Alternatives:    cached.Alternatives,
		Cusp:            cached.Cusp,
		ResolvedYear:    cached.ResolvedYear,
		ResultID:        cached.ResultID,
	}, true
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
	case errors.Is(err, ErrClassificationFailed):
		return commonerrors.NewClassificationFailedError(err)
	case errors.Is(err, ErrResultSaveFailed):
		return commonerrors.NewResultSaveFailedError(err)
	default:
		return commonerrors.Normalize(err)
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := classifyError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
}

// Execute runs the classification directly, outside a job context.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
