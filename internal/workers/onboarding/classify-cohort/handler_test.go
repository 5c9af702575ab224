package classifycohort

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	commonerrors "cohort-workers/internal/common/errors"
	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/engine/cohort"
	"cohort-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDeps(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return db, mock, mr, client
}

func intPtr(i int) *int {
	return &i
}

func TestExecute_MillennialWithRegion(t *testing.T) {
	db, mock, mr, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	mock.ExpectExec(`INSERT INTO cohort_results`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), &Input{
		SessionID: "sess-200",
		Signals: models.ExtractedSignals{
			BirthYear: intPtr(1985),
			Locations: []string{"Columbus"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.GenMillennial, output.Generation)
	assert.GreaterOrEqual(t, output.Confidence, 0.8)
	assert.Equal(t, "Columbus", output.Region)
	assert.False(t, output.Cusp)
	assert.Equal(t, 1985, output.ResolvedYear)
	assert.NotEmpty(t, output.ResultID)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Result is cached for later retrieval, row id included.
	val, err := mr.Get(cacheKeyPrefix + "sess-200")
	require.NoError(t, err)
	var cached cachedResult
	require.NoError(t, json.Unmarshal([]byte(val), &cached))
	assert.Equal(t, models.GenMillennial, cached.Generation)
	assert.Equal(t, output.ResultID, cached.ResultID)
}

func TestExecute_RedeliveredJobRepliesFromCache(t *testing.T) {
	db, mock, mr, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	result := cohort.NewClassifier().Classify(intPtr(1985), nil, nil)
	cached, err := json.Marshal(cachedResult{CohortResult: result, ResultID: "res-1"})
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKeyPrefix+"sess-207", string(cached)))

	// No sqlmock expectations: a cache hit must not touch the database.
	output, err := h.Execute(context.Background(), &Input{
		SessionID: "sess-207",
		Signals: models.ExtractedSignals{
			BirthYear: intPtr(1985),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "res-1", output.ResultID)
	assert.Equal(t, result.Generation, output.Generation)
	assert.Equal(t, result.Confidence, output.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_DecadeOnlyUsesMidpoint(t *testing.T) {
	db, mock, _, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	mock.ExpectExec(`INSERT INTO cohort_results`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), &Input{
		SessionID: "sess-201",
		Signals: models.ExtractedSignals{
			BirthDecade: intPtr(1990),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.GenMillennial, output.Generation)
	assert.Equal(t, 1995, output.ResolvedYear)
	assert.Equal(t, "unknown", output.Region)
}

func TestExecute_UnresolvedSignalsClassifyUnknown(t *testing.T) {
	db, mock, _, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	mock.ExpectExec(`INSERT INTO cohort_results`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), &Input{
		SessionID:          "sess-202",
		ProceedWithUnknown: true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.GenUnknown, output.Generation)
	assert.InDelta(t, 0.1, output.Confidence, 1e-9)
	assert.Zero(t, output.ResolvedYear)
}

func TestExecute_CuspYearReportsMicroGeneration(t *testing.T) {
	db, mock, _, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	mock.ExpectExec(`INSERT INTO cohort_results`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := h.Execute(context.Background(), &Input{
		SessionID: "sess-203",
		Signals: models.ExtractedSignals{
			BirthYear: intPtr(1981),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.GenMillennial, output.Generation)
	assert.True(t, output.Cusp)
	assert.Equal(t, models.MicroGenXennials, output.MicroGeneration)
}

func TestExecute_InsertFailureIsRetryable(t *testing.T) {
	db, mock, _, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	mock.ExpectExec(`INSERT INTO cohort_results`).
		WillReturnError(sql.ErrConnDone)

	_, err := h.Execute(context.Background(), &Input{
		SessionID: "sess-204",
		Signals: models.ExtractedSignals{
			BirthYear: intPtr(1985),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResultSaveFailed)
}

func TestExecute_MissingSessionIDRejected(t *testing.T) {
	db, _, _, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassificationFailed)
}

func TestExecute_CacheWriteUsesConfiguredTTL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, redisMock := redismock.NewClientMock()
	h := NewHandler(LoadConfig(), db, redisClient, logger.NewTestLogger(t))

	mock.ExpectExec(`INSERT INTO cohort_results`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	redisMock.ExpectGet(cacheKeyPrefix + "sess-206").RedisNil()
	// The envelope carries a generated row id, so match the value loosely.
	redisMock.Regexp().ExpectSet(cacheKeyPrefix+"sess-206", `.*"resultId":.*`, 24*time.Hour).SetVal("OK")

	_, err = h.Execute(context.Background(), &Input{
		SessionID: "sess-206",
		Signals: models.ExtractedSignals{
			BirthYear: intPtr(1985),
			Locations: []string{"Columbus"},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestClassifyError_Routing(t *testing.T) {
	stdErr := classifyError(fmt.Errorf("%w: sessionId is required", ErrClassificationFailed))
	assert.Equal(t, commonerrors.ErrCodeClassificationFailed, stdErr.Code)
	// Bad input cannot be retried; it must surface as a BPMN error.
	assert.False(t, commonerrors.ShouldRetry(stdErr.Code, 3))

	stdErr = classifyError(fmt.Errorf("%w: insert failed", ErrResultSaveFailed))
	assert.Equal(t, commonerrors.ErrCodeResultSaveFailed, stdErr.Code)
	assert.True(t, commonerrors.ShouldRetry(stdErr.Code, 3))

	stdErr = classifyError(errors.New("boom"))
	assert.Equal(t, commonerrors.ErrCodeUnknown, stdErr.Code)
	assert.False(t, commonerrors.ShouldRetry(stdErr.Code, 3))
}

func TestExecute_CacheFailureDoesNotFailJob(t *testing.T) {
	db, mock, mr, client := setupDeps(t)
	h := NewHandler(LoadConfig(), db, client, logger.NewTestLogger(t))

	mock.ExpectExec(`INSERT INTO cohort_results`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mr.Close()

	output, err := h.Execute(context.Background(), &Input{
		SessionID: "sess-205",
		Signals: models.ExtractedSignals{
			BirthYear: intPtr(1985),
			Locations: []string{"Columbus"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.GenMillennial, output.Generation)
}
