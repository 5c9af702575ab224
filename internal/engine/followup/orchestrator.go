// internal/engine/followup/orchestrator.go
package followup

import (
	"context"
	"strings"

	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/engine/novelty"
	"cohort-workers/internal/models"
)

const (
	// DefaultMaxAttempts is the follow-up budget per session.
	DefaultMaxAttempts = 4
	// DefaultDirectStyleAttempt is the attempt index at which required-info
	// questions stop being conversational and ask outright.
	DefaultDirectStyleAttempt = 2
)

// QuestionService is the external language-model collaborator. Any error,
// empty string, or otherwise unusable payload is treated as a failure and
// recovered through the fallback banks.
type QuestionService interface {
	GenerateQuestion(ctx context.Context, instruction string) (string, error)
}

// Result is one orchestrator step. When BudgetExhausted is set the caller
// must proceed to classification with whatever partial signals exist; no
// further questions will be produced.
type Result struct {
	Question        string   `json:"question"`
	MissingFields   []string `json:"missingFields"`
	BudgetExhausted bool     `json:"budgetExhausted"`
	// FromFallback records that the deterministic bank supplied the question.
	// Internal only; the wording never distinguishes the two sources.
	FromFallback bool `json:"-"`
}

// Orchestrator runs the follow-up state machine for one session. It holds no
// per-session state itself; ConversationState is passed in and mutated on
// every call so independent sessions never share anything.
type Orchestrator struct {
	service            QuestionService
	filter             *novelty.Filter
	maxAttempts        int
	directStyleAttempt int
	log                logger.Logger
}

func NewOrchestrator(service QuestionService, filter *novelty.Filter, maxAttempts, directStyleAttempt int, log logger.Logger) *Orchestrator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if directStyleAttempt <= 0 {
		directStyleAttempt = DefaultDirectStyleAttempt
	}
	return &Orchestrator{
		service:            service,
		filter:             filter,
		maxAttempts:        maxAttempts,
		directStyleAttempt: directStyleAttempt,
		log:                log,
	}
}

// ObserveAnalysis applies the state transitions owed after an answer has
// been analyzed: the attempt counter advances unconditionally, and the phase
// moves to enrichment the moment both required facts are known. It is called
// once per analyzed answer, before the next NextQuestion.
func (o *Orchestrator) ObserveAnalysis(state *models.ConversationState, analysis models.AnalysisResult) {
	state.AttemptNumber++
	if state.Phase == models.PhaseRequiredInfo && analysis.HasBirthTimeframe && analysis.HasGeography {
		state.Phase = models.PhaseEnrichment
	}
}

// NextQuestion produces the next follow-up question for the session, or a
// budget-exhausted signal when the attempt budget is spent with required
// facts still missing. External-call failures never surface here; they are
// absorbed by the fallback banks.
func (o *Orchestrator) NextQuestion(ctx context.Context, state *models.ConversationState, analysis models.AnalysisResult) Result {
	missing := analysis.MissingInfo.MissingFields()

	if state.Phase == models.PhaseRequiredInfo && state.AttemptNumber >= o.maxAttempts {
		o.log.Info("follow-up budget exhausted, proceeding with partial information", map[string]interface{}{
			"session_id": state.SessionID,
			"attempts":   state.AttemptNumber,
			"missing":    missing,
		})
		return Result{MissingFields: missing, BudgetExhausted: true}
	}

	style := styleConversational
	if state.Phase == models.PhaseRequiredInfo && state.AttemptNumber >= o.directStyleAttempt {
		style = styleDirect
	}

	question, fromFallback := o.generate(ctx, state, analysis, style)
	state.RecordQuestion(question)

	o.log.Debug("follow-up question selected", map[string]interface{}{
		"session_id": state.SessionID,
		"attempt":    state.AttemptNumber,
		"phase":      string(state.Phase),
		"style":      string(style),
		"fallback":   fromFallback,
	})

	return Result{
		Question:      question,
		MissingFields: missing,
		FromFallback:  fromFallback,
	}
}

// generate tries the language model first and falls back to the banks on
// failure, unusable output, or a near-duplicate of an earlier question.
func (o *Orchestrator) generate(ctx context.Context, state *models.ConversationState, analysis models.AnalysisResult, style questionStyle) (string, bool) {
	instruction := buildInstruction(state, analysis, style, o.maxAttempts)

	generated, err := o.service.GenerateQuestion(ctx, instruction)
	if err != nil {
		o.log.Warn("question generation failed, using fallback bank", map[string]interface{}{
			"session_id": state.SessionID,
			"error":      err.Error(),
		})
		return o.fallback(state, analysis), true
	}

	generated = strings.TrimSpace(generated)
	if generated == "" {
		return o.fallback(state, analysis), true
	}
	if o.filter.IsTooSimilar(generated, state.AskedQuestions) {
		o.log.Debug("generated question too similar to history, using fallback bank", map[string]interface{}{
			"session_id": state.SessionID,
		})
		return o.fallback(state, analysis), true
	}
	return generated, false
}

// fallback walks the bank for the missing facts starting at the attempt
// index, skipping entries already asked, and reuses the last entry once the
// bank is spent.
func (o *Orchestrator) fallback(state *models.ConversationState, analysis models.AnalysisResult) string {
	bank := bankFor(analysis.MissingInfo)
	for i := state.AttemptNumber; i < len(bank); i++ {
		entry := bankEntry(bank, i)
		if !asked(entry, state.AskedQuestions) {
			return entry
		}
	}
	return bankEntry(bank, len(bank)-1)
}

func asked(q string, history []string) bool {
	for _, h := range history {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(q)) {
			return true
		}
	}
	return false
}
