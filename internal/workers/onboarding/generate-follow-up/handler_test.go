package generatefollowup

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	commonerrors "cohort-workers/internal/common/errors"
	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	question string
	err      error
	calls    int
}

func (s *stubService) GenerateQuestion(ctx context.Context, instruction string) (string, error) {
	s.calls++
	return s.question, s.err
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func newTestHandler(t *testing.T, client *redis.Client, service *stubService) *Handler {
	t.Helper()
	return NewHandler(LoadConfig(), client, service, logger.NewTestLogger(t))
}

func incompleteInput(sessionID string) *Input {
	return &Input{
		SessionID:         sessionID,
		NeedsFollowUp:     true,
		HasBirthTimeframe: true,
		HasGeography:      false,
	}
}

func completeInput(sessionID string) *Input {
	year := 1985
	return &Input{
		SessionID:         sessionID,
		NeedsFollowUp:     false,
		HasBirthTimeframe: true,
		HasGeography:      true,
		Signals: models.ExtractedSignals{
			BirthYear: &year,
			Locations: []string{"Columbus"},
		},
	}
}

func storedState(t *testing.T, mr *miniredis.Miniredis, sessionID string) *models.ConversationState {
	t.Helper()
	val, err := mr.Get(stateKey(sessionID))
	require.NoError(t, err)

	var state models.ConversationState
	require.NoError(t, json.Unmarshal([]byte(val), &state))
	return &state
}

func TestExecute_FirstFollowUpQuestion(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "Which part of the world did you grow up in?"}
	h := newTestHandler(t, client, service)

	output, err := h.Execute(context.Background(), incompleteInput("sess-100"))
	require.NoError(t, err)

	assert.True(t, output.NeedsFollowUp)
	assert.Equal(t, "Which part of the world did you grow up in?", output.Question)
	assert.Equal(t, 0, output.AttemptNumber)
	assert.Equal(t, string(models.PhaseRequiredInfo), output.Phase)
	assert.Equal(t, []string{"geography"}, output.MissingFields)

	state := storedState(t, mr, "sess-100")
	assert.Equal(t, []string{"Which part of the world did you grow up in?"}, state.AskedQuestions)
	assert.Equal(t, 0, state.AttemptNumber)
}

func TestExecute_CompleteOnFirstPassEndsConversation(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "unused"}
	h := newTestHandler(t, client, service)

	output, err := h.Execute(context.Background(), completeInput("sess-101"))
	require.NoError(t, err)

	assert.False(t, output.NeedsFollowUp)
	assert.False(t, output.ProceedWithUnknown)
	assert.Empty(t, output.Question)
	assert.Zero(t, service.calls)
	assert.False(t, mr.Exists(stateKey("sess-101")))
}

func TestExecute_AnsweredQuestionAdvancesAttempt(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "Could you name the town where you were raised?"}
	h := newTestHandler(t, client, service)

	// First round asked a question that has since been answered, still
	// without resolving geography.
	_, err := h.Execute(context.Background(), incompleteInput("sess-102"))
	require.NoError(t, err)

	output, err := h.Execute(context.Background(), incompleteInput("sess-102"))
	require.NoError(t, err)

	assert.True(t, output.NeedsFollowUp)
	assert.Equal(t, 1, output.AttemptNumber)

	state := storedState(t, mr, "sess-102")
	assert.Equal(t, 1, state.AttemptNumber)
	assert.Len(t, state.AskedQuestions, 2)
}

func TestExecute_DuplicateQuestionFallsBackToBank(t *testing.T) {
	_, client := setupRedis(t)
	service := &stubService{question: "Where did you spend your early years?"}
	h := newTestHandler(t, client, service)

	// The stub repeats itself; the second round must swap in a bank entry
	// instead of asking the same thing twice.
	_, err := h.Execute(context.Background(), incompleteInput("sess-103"))
	require.NoError(t, err)

	output, err := h.Execute(context.Background(), incompleteInput("sess-103"))
	require.NoError(t, err)

	assert.True(t, output.NeedsFollowUp)
	assert.NotEqual(t, "Where did you spend your early years?", output.Question)
	assert.Equal(t, "Could you tell me more specifically where you grew up?", output.Question)
}

func TestExecute_BudgetExhaustedProceedsWithUnknown(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "ignored"}
	h := newTestHandler(t, client, service)

	state := &models.ConversationState{
		SessionID:      "sess-104",
		AttemptNumber:  3,
		Phase:          models.PhaseRequiredInfo,
		AskedQuestions: []string{"q1", "q2", "q3", "q4"},
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, mr.Set(stateKey("sess-104"), string(data)))

	output, err := h.Execute(context.Background(), incompleteInput("sess-104"))
	require.NoError(t, err)

	assert.False(t, output.NeedsFollowUp)
	assert.True(t, output.ProceedWithUnknown)
	assert.Equal(t, []string{"geography"}, output.MissingFields)
	assert.False(t, mr.Exists(stateKey("sess-104")))
}

func TestExecute_EnrichmentRoundAfterCompletion(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "What music shaped your childhood?"}
	h := newTestHandler(t, client, service)

	// One follow-up was asked and the answer completed the required facts;
	// the conversation moves to enrichment rather than stopping cold.
	state := &models.ConversationState{
		SessionID:      "sess-105",
		AttemptNumber:  0,
		Phase:          models.PhaseRequiredInfo,
		AskedQuestions: []string{"Where did you spend your early years?"},
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, mr.Set(stateKey("sess-105"), string(data)))

	output, err := h.Execute(context.Background(), completeInput("sess-105"))
	require.NoError(t, err)

	assert.True(t, output.NeedsFollowUp)
	assert.Equal(t, string(models.PhaseEnrichment), output.Phase)
	assert.Equal(t, "What music shaped your childhood?", output.Question)
	assert.Empty(t, output.MissingFields)
}

func TestExecute_EnrichmentStopsAtBudget(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "unused"}
	h := newTestHandler(t, client, service)

	state := &models.ConversationState{
		SessionID:      "sess-106",
		AttemptNumber:  3,
		Phase:          models.PhaseEnrichment,
		AskedQuestions: []string{"q1", "q2", "q3", "q4"},
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, mr.Set(stateKey("sess-106"), string(data)))

	output, err := h.Execute(context.Background(), completeInput("sess-106"))
	require.NoError(t, err)

	assert.False(t, output.NeedsFollowUp)
	assert.False(t, output.ProceedWithUnknown)
	assert.Zero(t, service.calls)
	assert.False(t, mr.Exists(stateKey("sess-106")))
}

func TestExecute_StateSurvivesWithTTL(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "Could you name the town where you were raised?"}
	h := newTestHandler(t, client, service)

	_, err := h.Execute(context.Background(), incompleteInput("sess-107"))
	require.NoError(t, err)

	require.True(t, mr.Exists(stateKey("sess-107")))
	assert.Equal(t, time.Hour, mr.TTL(stateKey("sess-107")))
}

func TestExecute_RedisDownFailsWithLoadError(t *testing.T) {
	mr, client := setupRedis(t)
	service := &stubService{question: "unused"}
	h := newTestHandler(t, client, service)
	mr.Close()

	_, err := h.Execute(context.Background(), incompleteInput("sess-108"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateLoadFailed)
}

func TestClassifyError_Routing(t *testing.T) {
	stdErr := classifyError("sess-109", fmt.Errorf("%w: redis down", ErrStateLoadFailed))
	assert.Equal(t, commonerrors.ErrCodeStateLoadFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "sess-109")
	assert.True(t, commonerrors.ShouldRetry(stdErr.Code, 3))

	stdErr = classifyError("sess-109", fmt.Errorf("%w: redis down", ErrStateSaveFailed))
	assert.Equal(t, commonerrors.ErrCodeStateSaveFailed, stdErr.Code)
	assert.True(t, commonerrors.ShouldRetry(stdErr.Code, 3))

	// Unparseable payloads carry no session id and must not retry.
	stdErr = classifyError("", fmt.Errorf("parse input: unexpected end of JSON input"))
	assert.Equal(t, commonerrors.ErrCodeUnknown, stdErr.Code)
	assert.False(t, commonerrors.ShouldRetry(stdErr.Code, 3))
}
