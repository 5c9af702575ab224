// internal/workers/onboarding/generate-follow-up/state.go
package generatefollowup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cohort-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "onboarding:state:"

// StateStore persists per-session conversation state between process steps.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

func stateKey(sessionID string) string {
	return stateKeyPrefix + sessionID
}

// Load returns the stored state for a session, or a fresh one when no state
// exists yet.
func (s *StateStore) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	val, err := s.client.Get(ctx, stateKey(sessionID)).Result()
	if err == redis.Nil {
		return models.NewConversationState(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &state, nil
}

func (s *StateStore) Save(ctx context.Context, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *StateStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, stateKey(sessionID)).Err()
}
